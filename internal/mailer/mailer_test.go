package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"codeberg.org/luchgpt/server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutHostLogsOnly(t *testing.T) {
	sender := New(config.SMTPConfig{})
	assert.IsType(t, LogSender{}, sender)
	assert.NoError(t, sender.Send(context.Background(), "a@example.com", "hi", "body"))
}

func TestSMTPSender(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)

	sender := &SMTPSender{
		cfg: config.SMTPConfig{Host: "mail.example.com", Port: 2525, Username: "u", Password: "p", From: "bot@example.com"},
		send: func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotTo, gotMsg = addr, to, string(msg)
			return nil
		},
	}

	subject, body := ConfirmationMessage("123456")
	require.NoError(t, sender.Send(context.Background(), "user@example.com", subject, body))

	assert.Equal(t, "mail.example.com:2525", gotAddr)
	assert.Equal(t, []string{"user@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "From: bot@example.com\r\n"))
	assert.Contains(t, gotMsg, "123456")
}

func TestSMTPSenderWrapsErrors(t *testing.T) {
	sender := &SMTPSender{
		cfg: config.SMTPConfig{Host: "mail.example.com"},
		send: func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("connection refused")
		},
	}

	err := sender.Send(context.Background(), "user@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send mail")
}
