// Package resttest wires handlers to in-memory stores for HTTP tests.
package resttest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
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
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const Secret = "rest-test-secret"

// answers every prompt with "echo: <prompt>"
type EchoCompleter struct{}

func (EchoCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	return &llm.Response{
		Text:  "echo: " + req.Prompt,
		Model: req.Model,
		Usage: &llm.Usage{PromptTokens: 2, CompletionTokens: 3, TotalTokens: 5},
	}, nil
}

type Env struct {
	Router *gin.Engine
	API    *gin.RouterGroup
	Coord  *coordinator.Coordinator
	Users  *users.MemoryRepository
	Chats  *chats.MemoryStore
	Guests *guests.MemoryTracker
	Ledger *usage.MemoryLedger
	Now    time.Time
}

// a gin engine with an /api/v1 group and a coordinator over memory stores
func New(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", Secret)

	env := &Env{
		Router: gin.New(),
		Users:  users.NewMemoryRepository(),
		Chats:  chats.NewMemoryStore(),
		Guests: guests.NewMemoryTracker(),
		Ledger: usage.NewMemoryLedger(),
		Now:    time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC),
	}

	catalog := models.Default()
	clock := func() time.Time { return env.Now }

	env.Coord = coordinator.New(coordinator.Deps{
		Users:   env.Users,
		Chats:   env.Chats,
		Quota:   quota.NewPolicy(env.Ledger, catalog, quota.WithClock(clock)),
		Guests:  env.Guests,
		AI:      EchoCompleter{},
		Catalog: catalog,
	}, coordinator.WithClock(clock))

	env.API = env.Router.Group("/api/v1")

	return env
}

// registers and verifies a user, returning it with a bearer token
func (e *Env) Member(t *testing.T, email string, admin bool) (*users.User, string) {
	t.Helper()

	ctx := context.Background()

	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)

	_, err = e.Users.Register(ctx, email, hash)
	require.NoError(t, err)

	user, err := e.Users.MarkEmailVerified(ctx, email)
	require.NoError(t, err)

	token, err := auth.GenerateJWT(user.ID, email, admin)
	require.NoError(t, err)

	return user, token
}

// starts a web guest session, returning its bearer token
func (e *Env) Guest(t *testing.T, identity string) string {
	t.Helper()

	session, err := e.Guests.GetOrCreateGuestSession(context.Background(), identity)
	require.NoError(t, err)

	token, err := auth.GenerateGuestJWT(session.Token)
	require.NoError(t, err)

	return token
}

// performs a request against the router; body is JSON-encoded unless nil
func (e *Env) Do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)

	return w
}

// decodes a JSON response body into out
func Decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

// asserts the status and the machine-readable error code of a failure
func RequireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	require.Equal(t, status, w.Code, w.Body.String())

	var body struct {
		Error string `json:"error"`
	}
	Decode(t, w, &body)
	require.Equal(t, code, body.Error)
}
