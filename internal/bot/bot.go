// Package bot serves the chat service over the Telegram Bot API.
package bot

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"codeberg.org/luchgpt/server/internal/coordinator"
	"codeberg.org/luchgpt/server/internal/errors"
	"codeberg.org/luchgpt/server/internal/logger"
	"codeberg.org/luchgpt/server/luchgpt/users"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Bot struct {
	api     API
	coord   *coordinator.Coordinator
	users   users.Repository
	http    HTTPClient
	workers int
}

type Option func(*Bot)

// sets the client used to download photos
func WithHTTPClient(client HTTPClient) Option {
	return func(b *Bot) {
		b.http = client
	}
}

// bounds how many updates are handled concurrently
func WithWorkers(n int) Option {
	return func(b *Bot) {
		if n > 0 {
			b.workers = n
		}
	}
}

func New(api API, coord *coordinator.Coordinator, userRepo users.Repository, opts ...Option) *Bot {
	b := &Bot{
		api:     api,
		coord:   coord,
		users:   userRepo,
		http:    &http.Client{Timeout: 30 * time.Second},
		workers: defaultWorkers,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// handles updates until ctx is done or the channel closes, then waits for in-flight handlers
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	sem := make(chan struct{}, b.workers)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()

				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// routes one update to its handler
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while handling update", "update_id", update.UpdateID, "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	caller := callerFor(msg.From)
	chatID := msg.Chat.ID

	ctx = logger.WithContext(ctx, logger.With("telegram_id", msg.From.ID))

	if msg.IsCommand() {
		b.handleCommand(ctx, caller, msg)
		return
	}

	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, caller, msg)
		return
	}

	if msg.Text == "" {
		b.reply(chatID, "I can read text and photos.")
		return
	}

	b.converse(ctx, caller, chatID, coordinator.SendRequest{Caller: caller, Text: msg.Text})
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		logger.Warn("failed to answer callback", "error", err)
	}

	if query.From == nil || query.Message == nil || query.Message.Chat == nil {
		return
	}

	caller := callerFor(query.From)
	chatID := query.Message.Chat.ID

	ctx = logger.WithContext(ctx, logger.With("telegram_id", query.From.ID))

	switch data := query.Data; {
	case data == actionNew:
		b.newChat(ctx, caller, chatID, "")
	case data == actionChats:
		b.listChats(ctx, caller, chatID)
	case data == actionProfile:
		b.profile(ctx, caller, chatID)
	case data == actionEnd:
		b.endChat(ctx, caller, chatID, "")
	case data == actionModels:
		b.showModels(ctx, caller, chatID)
	case strings.HasPrefix(data, actionSelect):
		b.selectChat(ctx, caller, chatID, strings.TrimPrefix(data, actionSelect))
	case strings.HasPrefix(data, actionDelete):
		b.deleteChat(ctx, caller, chatID, strings.TrimPrefix(data, actionDelete))
	case strings.HasPrefix(data, actionModel):
		b.changeModel(ctx, caller, chatID, strings.TrimPrefix(data, actionModel))
	}
}

// runs one exchange and posts the answer
func (b *Bot) converse(ctx context.Context, caller coordinator.Caller, chatID int64, req coordinator.SendRequest) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		logger.Debug("failed to send typing action", "error", err)
	}

	reply, err := b.coord.Send(ctx, req)
	if err != nil {
		b.fail(ctx, chatID, err)
		return
	}

	for _, part := range splitText(reply.BotMessage.Content, maxMessageRunes) {
		b.reply(chatID, part)
	}

	if reply.ChatClosed {
		b.replyWithKeyboard(chatID, "This chat reached its message limit and was closed. Start a new one to continue.", mainMenuKeyboard())
	}
}

// reports err to the user; only unexpected failures are logged
func (b *Bot) fail(ctx context.Context, chatID int64, err error) {
	outcome := errors.Dispatch(err)

	if outcome.Status >= http.StatusInternalServerError {
		logger.FromContext(ctx).Error("request failed", "error", err)
	}

	msg := tgbotapi.NewMessage(chatID, outcome.Message)

	var chatLimit *coordinator.ChatLimitError

	switch {
	case stderrors.As(err, &chatLimit):
		msg.ReplyMarkup = chatsKeyboard(chatLimit.Existing)
	case outcome.Code == errors.CodeNoActiveChat, outcome.Code == errors.CodeChatCapacityExceeded:
		msg.ReplyMarkup = mainMenuKeyboard()
	case outcome.Code == errors.CodeGuestLimitExceeded:
		msg.Text += "\nRegister on the website, then send /login <email> <password> here to continue."
	}

	b.send(msg)
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard

	b.send(msg)
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		logger.Warn("failed to send telegram message", "error", err)
	}
}

func callerFor(from *tgbotapi.User) coordinator.Caller {
	return coordinator.AccountCaller(users.ProviderTelegram, strconv.FormatInt(from.ID, 10))
}

// splits text into chunks of at most limit runes, preferring line breaks
func splitText(text string, limit int) []string {
	if text == "" {
		return []string{"…"}
	}

	var parts []string

	for utf8.RuneCountInString(text) > limit {
		runes := []rune(text)
		cut := limit

		if i := strings.LastIndex(string(runes[:limit]), "\n"); i > 0 {
			cut = utf8.RuneCountInString(string(runes[:limit])[:i])
		}

		parts = append(parts, string(runes[:cut]))
		text = strings.TrimLeft(string(runes[cut:]), "\n")
	}

	if text != "" {
		parts = append(parts, text)
	}

	return parts
}
