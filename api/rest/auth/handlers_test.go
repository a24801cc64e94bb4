package auth

import (
	"context"
	"net/http"
	"regexp"
	"sync"
	"testing"

	"codeberg.org/luchgpt/server/api/rest/resttest"
	"codeberg.org/luchgpt/server/internal/auth"
	"codeberg.org/luchgpt/server/luchgpt/confirmations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type capturingSender struct {
	mu    sync.Mutex
	sent  map[string]string
	fails bool
}

func (s *capturingSender) Send(_ context.Context, to, _, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fails {
		return assert.AnError
	}

	if s.sent == nil {
		s.sent = make(map[string]string)
	}
	s.sent[to] = body

	return nil
}

func (s *capturingSender) code(t *testing.T, to string) string {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	code := codePattern.FindString(s.sent[to])
	require.NotEmpty(t, code, "no code mailed to %s", to)

	return code
}

type fixture struct {
	env  *resttest.Env
	mail *capturingSender
}

func setup(t *testing.T) *fixture {
	t.Helper()

	env := resttest.New(t)
	mail := &capturingSender{}

	RegisterRoutes(env.API, Deps{
		Users:         env.Users,
		Guests:        env.Guests,
		Confirmations: confirmations.NewMemoryRepository(),
		Mailer:        mail,
	}, env.Coord, 3)

	return &fixture{env: env, mail: mail}
}

func TestRegisterConfirmLogin(t *testing.T) {
	f := setup(t)
	creds := RegisterRequest{Email: "New@Example.com ", Password: "correct horse"}

	w := f.env.Do(t, http.MethodPost, "/api/v1/auth/register", "", creds)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	login := LoginRequest{Email: "new@example.com", Password: "correct horse"}

	w = f.env.Do(t, http.MethodPost, "/api/v1/auth/login", "", login)
	resttest.RequireError(t, w, http.StatusForbidden, "forbidden")

	w = f.env.Do(t, http.MethodPost, "/api/v1/auth/confirm", "", ConfirmRequest{
		Email: "new@example.com",
		Code:  f.mail.code(t, "new@example.com"),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var confirmed AuthResponse
	resttest.Decode(t, w, &confirmed)
	assert.True(t, confirmed.User.EmailVerified)
	assert.NotEmpty(t, confirmed.Token)

	w = f.env.Do(t, http.MethodPost, "/api/v1/auth/login", "", login)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var loggedIn AuthResponse
	resttest.Decode(t, w, &loggedIn)

	claims, err := auth.ValidateJWT(loggedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, confirmed.User.ID, claims.UserID)

	w = f.env.Do(t, http.MethodGet, "/api/v1/auth/me", loggedIn.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var me UserResponse
	resttest.Decode(t, w, &me)
	assert.Equal(t, "new@example.com", me.User.EmailAddress())
}

func TestRegister_TakenEmail(t *testing.T) {
	f := setup(t)
	f.env.Member(t, "taken@example.com", false)

	w := f.env.Do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		Email:    "taken@example.com",
		Password: "long enough",
	})
	resttest.RequireError(t, w, http.StatusConflict, "conflict")
}

func TestRegister_Validation(t *testing.T) {
	f := setup(t)

	w := f.env.Do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{Email: "nope", Password: "short"})
	resttest.RequireError(t, w, http.StatusBadRequest, "validation_error")
}

func TestRegister_InvalidEmailAfterTrimming(t *testing.T) {
	f := setup(t)

	for _, email := range []string{"   ", "not-an-email ", " a@b@c.com"} {
		w := f.env.Do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
			Email:    email,
			Password: "long enough",
		})
		resttest.RequireError(t, w, http.StatusBadRequest, "validation_error")
	}

	assert.Empty(t, f.mail.sent)
}

func TestEmailIsNormalizedEverywhere(t *testing.T) {
	f := setup(t)

	w := f.env.Do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		Email:    "  Mixed.Case@Example.COM",
		Password: "correct horse",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w = f.env.Do(t, http.MethodPost, "/api/v1/auth/confirm", "", ConfirmRequest{
		Email: "MIXED.case@example.com\t",
		Code:  f.mail.code(t, "mixed.case@example.com"),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.env.Do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Email:    " Mixed.Case@example.com ",
		Password: "correct horse",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AuthResponse
	resttest.Decode(t, w, &resp)
	assert.Equal(t, "mixed.case@example.com", resp.User.EmailAddress())
}

func TestRegister_MailFailure(t *testing.T) {
	f := setup(t)
	f.mail.fails = true

	w := f.env.Do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		Email:    "a@example.com",
		Password: "long enough",
	})
	resttest.RequireError(t, w, http.StatusInternalServerError, "server_error")
}

func TestConfirm_WrongCode(t *testing.T) {
	f := setup(t)

	w := f.env.Do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		Email:    "a@example.com",
		Password: "long enough",
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	wrong := "000000"
	if f.mail.code(t, "a@example.com") == wrong {
		wrong = "111111"
	}

	w = f.env.Do(t, http.MethodPost, "/api/v1/auth/confirm", "", ConfirmRequest{Email: "a@example.com", Code: wrong})
	resttest.RequireError(t, w, http.StatusBadRequest, "bad_request")

	w = f.env.Do(t, http.MethodPost, "/api/v1/auth/confirm", "", ConfirmRequest{Email: "b@example.com", Code: wrong})
	resttest.RequireError(t, w, http.StatusNotFound, "not_found")
}

func TestLogin_BadCredentials(t *testing.T) {
	f := setup(t)
	f.env.Member(t, "a@example.com", false)

	w := f.env.Do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: "a@example.com", Password: "wrong"})
	resttest.RequireError(t, w, http.StatusUnauthorized, "unauthorized")

	w = f.env.Do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: "ghost@example.com", Password: "wrong"})
	resttest.RequireError(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestGuestSession(t *testing.T) {
	f := setup(t)

	w := f.env.Do(t, http.MethodPost, "/api/v1/auth/guest", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var guest GuestResponse
	resttest.Decode(t, w, &guest)
	assert.Equal(t, int64(3), guest.Remaining)

	claims, err := auth.ValidateJWT(guest.Token)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.GuestToken)

	w = f.env.Do(t, http.MethodGet, "/api/v1/auth/me", guest.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var me UserResponse
	resttest.Decode(t, w, &me)
	assert.True(t, me.User.IsGuest())
}
