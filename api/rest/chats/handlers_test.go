package chats

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/luchgpt/server/api/rest/resttest"
	"codeberg.org/luchgpt/server/internal/coordinator"
	"codeberg.org/luchgpt/server/luchgpt/chats"
	"codeberg.org/luchgpt/server/luchgpt/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *resttest.Env {
	t.Helper()

	env := resttest.New(t)
	RegisterRoutes(env.API, env.Coord)

	return env
}

func TestChatRoutes_RequireToken(t *testing.T) {
	env := setup(t)

	w := env.Do(t, http.MethodGet, "/api/v1/chats", "", nil)
	resttest.RequireError(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestSendMessage_NoActiveChat(t *testing.T) {
	env := setup(t)
	_, token := env.Member(t, "a@example.com", false)

	w := env.Do(t, http.MethodPost, "/api/v1/chats/messages", token, SendMessageRequest{Content: "hi"})
	resttest.RequireError(t, w, http.StatusConflict, "no_active_chat")
}

func TestChatLifecycle(t *testing.T) {
	env := setup(t)
	_, token := env.Member(t, "a@example.com", false)

	w := env.Do(t, http.MethodPost, "/api/v1/chats", token, CreateChatRequest{ModelKey: "fast"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created ChatResponse
	resttest.Decode(t, w, &created)
	assert.True(t, created.Chat.IsActive)

	w = env.Do(t, http.MethodPost, "/api/v1/chats/messages", token, SendMessageRequest{Content: "hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var reply coordinator.Reply
	resttest.Decode(t, w, &reply)
	assert.Equal(t, "echo: hello", reply.BotMessage.Content)
	assert.Equal(t, chats.RoleUser, reply.UserMessage.Role)
	assert.False(t, reply.ChatClosed)

	w = env.Do(t, http.MethodGet, fmt.Sprintf("/api/v1/chats/%d/messages", created.Chat.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var history MessagesResponse
	resttest.Decode(t, w, &history)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "hello", history.Messages[0].Content)

	w = env.Do(t, http.MethodPut, fmt.Sprintf("/api/v1/chats/%d/title", created.Chat.ID), token,
		RenameChatRequest{Title: "greetings"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Do(t, http.MethodPost, "/api/v1/chats/active/finish", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var finished ChatResponse
	resttest.Decode(t, w, &finished)
	assert.False(t, finished.Chat.IsActive)
	assert.Equal(t, "greetings", finished.Chat.DisplayTitle())

	w = env.Do(t, http.MethodGet, "/api/v1/chats/active", token, nil)
	resttest.RequireError(t, w, http.StatusConflict, "no_active_chat")

	w = env.Do(t, http.MethodPut, fmt.Sprintf("/api/v1/chats/%d/select", created.Chat.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Do(t, http.MethodDelete, fmt.Sprintf("/api/v1/chats/%d", created.Chat.ID), token, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = env.Do(t, http.MethodGet, "/api/v1/chats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list ChatsResponse
	resttest.Decode(t, w, &list)
	assert.Empty(t, list.Chats)
}

func TestSendMessage_FreeQuotaExhausted(t *testing.T) {
	env := setup(t)
	_, token := env.Member(t, "a@example.com", false)

	w := env.Do(t, http.MethodPost, "/api/v1/chats", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	for i := 0; i < 5; i++ {
		w = env.Do(t, http.MethodPost, "/api/v1/chats/messages", token, SendMessageRequest{Content: "q"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = env.Do(t, http.MethodPost, "/api/v1/chats/messages", token, SendMessageRequest{Content: "q"})
	resttest.RequireError(t, w, http.StatusTooManyRequests, "quota_exceeded")
}

func TestSendMessage_GuestLimit(t *testing.T) {
	env := setup(t)
	token := env.Guest(t, "web:test")

	w := env.Do(t, http.MethodPost, "/api/v1/chats", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	for i := 0; i < 3; i++ {
		w = env.Do(t, http.MethodPost, "/api/v1/chats/messages", token, SendMessageRequest{Content: "q"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = env.Do(t, http.MethodPost, "/api/v1/chats/messages", token, SendMessageRequest{Content: "q"})
	resttest.RequireError(t, w, http.StatusForbidden, "guest_limit_exceeded")
}

func TestCreateChat_LimitReached(t *testing.T) {
	env := setup(t)
	_, token := env.Member(t, "a@example.com", false)

	for i := 0; i < coordinator.DefaultLimits().FreeChatLimit; i++ {
		w := env.Do(t, http.MethodPost, "/api/v1/chats", token, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := env.Do(t, http.MethodPost, "/api/v1/chats", token, nil)
	resttest.RequireError(t, w, http.StatusConflict, "chat_limit_reached")
}

func TestChangeModel_LockedForFreeUsers(t *testing.T) {
	env := setup(t)
	_, token := env.Member(t, "a@example.com", false)

	w := env.Do(t, http.MethodPost, "/api/v1/chats", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.Do(t, http.MethodPut, "/api/v1/chats/active/model", token, ChangeModelRequest{ModelKey: "smart"})
	resttest.RequireError(t, w, http.StatusForbidden, "forbidden")
}

func TestForeignChatIsNotFound(t *testing.T) {
	env := setup(t)
	_, owner := env.Member(t, "owner@example.com", false)
	_, other := env.Member(t, "other@example.com", false)

	w := env.Do(t, http.MethodPost, "/api/v1/chats", owner, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var created ChatResponse
	resttest.Decode(t, w, &created)

	w = env.Do(t, http.MethodGet, fmt.Sprintf("/api/v1/chats/%d/messages", created.Chat.ID), other, nil)
	resttest.RequireError(t, w, http.StatusNotFound, "not_found")

	w = env.Do(t, http.MethodDelete, "/api/v1/chats/abc", owner, nil)
	resttest.RequireError(t, w, http.StatusNotFound, "not_found")
}

func TestSendImage(t *testing.T) {
	env := setup(t)
	user, token := env.Member(t, "a@example.com", false)

	_, err := env.Users.SetSubscription(context.Background(), user.ID, users.TierPremium, nil)
	require.NoError(t, err)

	w := env.Do(t, http.MethodPost, "/api/v1/chats", token, CreateChatRequest{ModelKey: "vision"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Run("rejects non-images", func(t *testing.T) {
		w := uploadImage(t, env, token, []byte("plain text, not pixels"), "what is it")
		resttest.RequireError(t, w, http.StatusBadRequest, "bad_request")
	})

	t.Run("stores a placeholder and the caption", func(t *testing.T) {
		w := uploadImage(t, env, token, tinyPNG(t), "describe")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var reply coordinator.Reply
		resttest.Decode(t, w, &reply)
		assert.Equal(t, "[Image]\ndescribe", reply.UserMessage.Content)
	})
}

func uploadImage(t *testing.T, env *resttest.Env, token string, data []byte, prompt string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", "upload.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, form.WriteField("prompt", prompt))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/images", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)

	return w
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}
