// Package mailer delivers transactional email such as registration codes.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"codeberg.org/luchgpt/server/internal/config"
	"codeberg.org/luchgpt/server/internal/logger"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTP sender when a host is configured, otherwise one that only logs
func New(cfg config.SMTPConfig) Sender {
	if cfg.Host == "" {
		return LogSender{}
	}

	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

type SMTPSender struct {
	cfg  config.SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	port := s.cfg.Port
	if port == 0 {
		port = 587
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := s.send(addr, auth, s.cfg.From, []string{to}, buildMessage(s.cfg.From, to, subject, body)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}

// writes messages to the log instead of delivering them, for development
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, body string) error {
	logger.FromContext(ctx).Info("mail not sent, smtp disabled", "to", to, "subject", subject, "body", body)
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	return []byte(b.String())
}

// the registration code email
func ConfirmationMessage(code string) (subject, body string) {
	subject = "Your luchgpt confirmation code"
	body = fmt.Sprintf("Your confirmation code is %s.\nIt expires in 15 minutes.", code)

	return subject, body
}
