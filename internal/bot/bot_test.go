package bot

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/luchgpt/server/internal/auth"
	"codeberg.org/luchgpt/server/internal/coordinator"
	"codeberg.org/luchgpt/server/internal/llm"
	"codeberg.org/luchgpt/server/internal/models"
	"codeberg.org/luchgpt/server/internal/quota"
	"codeberg.org/luchgpt/server/luchgpt/chats"
	"codeberg.org/luchgpt/server/luchgpt/guests"
	"codeberg.org/luchgpt/server/luchgpt/usage"
	"codeberg.org/luchgpt/server/luchgpt/users"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}

	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, c)

	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return "https://files.example/" + fileID, nil
}

func (f *fakeAPI) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.sent)

	return f.sent[len(f.sent)-1]
}

type fakeHTTP struct {
	body []byte
}

func (f fakeHTTP) Do(*http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(f.body)),
	}, nil
}

type echo struct{}

func (echo) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	return &llm.Response{Text: "echo: " + req.Prompt}, nil
}

type harness struct {
	bot   *Bot
	api   *fakeAPI
	users *users.MemoryRepository
	chats *chats.MemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	now := time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	catalog := models.Default()

	h := &harness{
		api:   &fakeAPI{},
		users: users.NewMemoryRepository(),
		chats: chats.NewMemoryStore(),
	}

	coord := coordinator.New(coordinator.Deps{
		Users:   h.users,
		Chats:   h.chats,
		Quota:   quota.NewPolicy(usage.NewMemoryLedger(), catalog, quota.WithClock(clock)),
		Guests:  guests.NewMemoryTracker(),
		AI:      echo{},
		Catalog: catalog,
	}, coordinator.WithClock(clock))

	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	h.bot = New(h.api, coord, h.users, WithHTTPClient(fakeHTTP{body: buf.Bytes()}))

	return h
}

func (h *harness) text(from int64, text string) {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, FirstName: "Ann"},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
	}

	if strings.HasPrefix(text, "/") {
		command := strings.SplitN(text, " ", 2)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}}
	}

	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})
}

func (h *harness) callback(from int64, data string) {
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: from}},
		Data:    data,
	}})
}

// a verified user with a known password
func (h *harness) member(t *testing.T, email string, tier users.Tier) *users.User {
	t.Helper()

	ctx := context.Background()

	hash, err := auth.HashPassword("secret pass")
	require.NoError(t, err)

	_, err = h.users.Register(ctx, email, hash)
	require.NoError(t, err)

	user, err := h.users.MarkEmailVerified(ctx, email)
	require.NoError(t, err)

	if tier == users.TierPremium {
		user, err = h.users.SetSubscription(ctx, user.ID, tier, nil)
		require.NoError(t, err)
	}

	return user
}

func TestStart(t *testing.T) {
	h := newHarness(t)

	h.text(42, "/start")

	msg := h.api.last(t)
	assert.Contains(t, msg.Text, "Hi, Ann!")
	assert.NotNil(t, msg.ReplyMarkup)
}

func TestMessageWithoutActiveChat(t *testing.T) {
	h := newHarness(t)

	h.text(42, "hello")

	assert.Contains(t, h.api.last(t).Text, "no active chat")
}

func TestGuestConversation(t *testing.T) {
	h := newHarness(t)

	h.text(42, "/new")
	assert.Contains(t, h.api.last(t).Text, "New chat started")

	for i := 0; i < 3; i++ {
		h.text(42, "ping")
		assert.Equal(t, "echo: ping", h.api.last(t).Text)
	}

	h.text(42, "ping")
	assert.Contains(t, h.api.last(t).Text, "/login")
}

func TestLoginLinksAccount(t *testing.T) {
	h := newHarness(t)
	user := h.member(t, "ann@example.com", users.TierFree)

	h.text(42, "/login ann@example.com wrong")
	assert.Contains(t, h.api.last(t).Text, "Wrong email or password")

	h.text(42, "/login ann@example.com secret pass")
	assert.Equal(t, "You are logged in.", h.api.last(t).Text)

	var deleted bool
	for _, req := range h.api.requests {
		if _, ok := req.(tgbotapi.DeleteMessageConfig); ok {
			deleted = true
		}
	}
	assert.True(t, deleted, "the login message must be deleted")

	linked, err := h.users.FindOrCreateByAccount(context.Background(), users.ProviderTelegram, "42")
	require.NoError(t, err)
	assert.Equal(t, user.ID, linked.ID)

	h.text(42, "/profile")
	assert.Contains(t, h.api.last(t).Text, "ann@example.com: free")
}

func TestLoginAccountLimit(t *testing.T) {
	h := newHarness(t)
	h.member(t, "ann@example.com", users.TierFree)

	h.text(1, "/login ann@example.com secret pass")
	h.text(2, "/login ann@example.com secret pass")
	h.text(3, "/login ann@example.com secret pass")

	assert.NotEqual(t, "You are logged in.", h.api.last(t).Text)
}

func TestPhotoOnVisionChat(t *testing.T) {
	h := newHarness(t)
	h.member(t, "ann@example.com", users.TierPremium)

	h.text(42, "/login ann@example.com secret pass")
	h.text(42, "/new vision")
	assert.Contains(t, h.api.last(t).Text, "Vision")

	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 2,
		From:      &tgbotapi.User{ID: 42},
		Chat:      &tgbotapi.Chat{ID: 42},
		Caption:   "what is this",
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", FileSize: 100},
			{FileID: "large", FileSize: 1000},
		},
	}})

	assert.Equal(t, "echo: what is this", h.api.last(t).Text)
}

func TestPhotoOnTextModel(t *testing.T) {
	h := newHarness(t)

	h.text(42, "/new")
	h.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From:  &tgbotapi.User{ID: 42},
		Chat:  &tgbotapi.Chat{ID: 42},
		Photo: []tgbotapi.PhotoSize{{FileID: "p", FileSize: 10}},
	}})

	assert.NotContains(t, h.api.last(t).Text, "echo")
}

func TestCallbacksSelectAndEnd(t *testing.T) {
	h := newHarness(t)

	h.text(42, "/new")
	h.callback(42, actionEnd)
	assert.Contains(t, h.api.last(t).Text, "finished")

	h.callback(42, actionChats)
	markup, ok := h.api.last(t).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.NotEmpty(t, markup.InlineKeyboard)

	selectData := *markup.InlineKeyboard[0][0].CallbackData
	require.True(t, strings.HasPrefix(selectData, actionSelect))

	h.callback(42, selectData)
	assert.Contains(t, h.api.last(t).Text, "Continuing")

	h.text(42, "again")
	assert.Equal(t, "echo: again", h.api.last(t).Text)
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)

	h.text(42, "/dance")

	assert.Contains(t, h.api.last(t).Text, "Unknown command")
}

func TestSplitText(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitText("short", 10))

	parts := splitText("aaaa\nbbbb\ncccc", 10)
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, parts)

	long := strings.Repeat("я", 25)
	parts = splitText(long, 10)
	require.Len(t, parts, 3)
	assert.Equal(t, strings.Repeat("я", 10), parts[0])
	assert.Equal(t, strings.Repeat("я", 5), parts[2])
}
