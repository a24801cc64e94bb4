package auth

import (
	stderrors "errors"
	"net/http"
	"strings"

	"codeberg.org/luchgpt/server/internal/auth"
	"codeberg.org/luchgpt/server/internal/coordinator"
	"codeberg.org/luchgpt/server/internal/errors"
	"codeberg.org/luchgpt/server/internal/logger"
	"codeberg.org/luchgpt/server/internal/mailer"
	"codeberg.org/luchgpt/server/luchgpt/users"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"
)

const googleProvider = "google"

// RegisterHandler godoc
// @Summary Register with email and password
// @Description Stores an unconfirmed account and emails a 6-digit code valid for 15 minutes
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Credentials"
// @Success 202 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/auth/register [post]
func RegisterHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		email, err := normalizeEmail(req.Email)
		if err != nil {
			errors.ValidationError(c, err)
			return
		}

		ctx := c.Request.Context()

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			errors.InternalError(c, "failed to register", err)
			return
		}

		if _, err := deps.Users.Register(ctx, email, hash); err != nil {
			errors.Respond(c, err)
			return
		}

		code, err := deps.Confirmations.Create(ctx, email)
		if err != nil {
			errors.InternalError(c, "failed to issue confirmation code", err)
			return
		}

		subject, body := mailer.ConfirmationMessage(code.Code)
		if err := deps.Mailer.Send(ctx, email, subject, body); err != nil {
			errors.InternalError(c, "failed to send confirmation email", err)
			return
		}

		c.JSON(http.StatusAccepted, MessageResponse{Message: "confirmation code sent"})
	}
}

// ConfirmHandler godoc
// @Summary Confirm email
// @Description Checks the emailed code (5 attempts) and returns a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ConfirmRequest true "Email and code"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /api/v1/auth/confirm [post]
func ConfirmHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		email, err := normalizeEmail(req.Email)
		if err != nil {
			errors.ValidationError(c, err)
			return
		}

		ctx := c.Request.Context()

		if err := deps.Confirmations.Verify(ctx, email, req.Code); err != nil {
			errors.Respond(c, err)
			return
		}

		user, err := deps.Users.MarkEmailVerified(ctx, email)
		if err != nil {
			errors.Respond(c, err)
			return
		}

		respondWithToken(c, user)
	}
}

// LoginHandler godoc
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /api/v1/auth/login [post]
func LoginHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		email, err := normalizeEmail(req.Email)
		if err != nil {
			errors.ValidationError(c, err)
			return
		}

		user, err := deps.Users.FindByEmail(c.Request.Context(), email)
		if err != nil && !stderrors.Is(err, users.ErrNotFound) {
			errors.Respond(c, err)
			return
		}

		if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
			errors.Unauthorized(c, "invalid email or password")
			return
		}

		if !user.EmailVerified {
			errors.Forbidden(c, "email not confirmed")
			return
		}

		respondWithToken(c, user)
	}
}

// GuestHandler godoc
// @Summary Start a guest session
// @Description Returns a guest JWT allowing a few requests before registration
// @Tags auth
// @Produce json
// @Success 201 {object} GuestResponse
// @Router /api/v1/auth/guest [post]
func GuestHandler(deps Deps, guestLimit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := deps.Guests.GetOrCreateGuestSession(c.Request.Context(), "web:"+uuid.NewString())
		if err != nil {
			errors.InternalError(c, "failed to start guest session", err)
			return
		}

		token, err := auth.GenerateGuestJWT(session.Token)
		if err != nil {
			errors.InternalError(c, "failed to generate token", err)
			return
		}

		c.JSON(http.StatusCreated, GuestResponse{
			Token:     token,
			Remaining: session.Remaining(guestLimit),
		})
	}
}

// BeginAuthHandler godoc
// @Summary Start Google authentication
// @Tags auth
// @Success 302 {string} string "Redirect to Google"
// @Router /api/v1/auth/google [get]
func BeginAuthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// set provider in query for gothic
		q := c.Request.URL.Query()
		q.Set("provider", googleProvider)
		c.Request.URL.RawQuery = q.Encode()

		gothic.BeginAuthHandler(c.Writer, c.Request)
	}
}

// CallbackHandler godoc
// @Summary Google callback
// @Description Returns user data and JWT token; the Google email counts as verified
// @Tags auth
// @Produce json
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/auth/google/callback [get]
func CallbackHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		q.Set("provider", googleProvider)
		c.Request.URL.RawQuery = q.Encode()

		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			errors.InternalError(c, "authentication failed", err)
			return
		}

		if gothUser.Email == "" {
			errors.BadRequest(c, "google account has no email", nil)
			return
		}

		email, err := normalizeEmail(gothUser.Email)
		if err != nil {
			errors.BadRequest(c, "google account has no usable email", nil)
			return
		}

		user, err := deps.Users.FindOrCreateVerified(
			c.Request.Context(),
			users.ProviderGoogle,
			gothUser.UserID,
			email,
		)
		if err != nil {
			errors.InternalError(c, "failed to create user", err)
			return
		}

		respondWithToken(c, user)
	}
}

// GetCurrentUserHandler godoc
// @Summary Get current user
// @Description Get the authenticated user; guests get their lazily created guest account
// @Tags auth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/auth/me [get]
// @Security BearerAuth
func GetCurrentUserHandler(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := auth.RequireCaller(c)
		if !ok {
			return
		}

		user, err := coord.User(c.Request.Context(), caller)
		if err != nil {
			errors.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, UserResponse{User: user})
	}
}

// LogoutHandler godoc
// @Summary Logout
// @Description Clear the OAuth session cookie; JWTs simply expire
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /api/v1/auth/logout [post]
func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := gothic.Logout(c.Writer, c.Request); err != nil {
			logger.ErrorErr(err, "failed to logout user from gothic session")
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
	}
}

func respondWithToken(c *gin.Context, user *users.User) {
	token, err := auth.GenerateJWT(user.ID, user.EmailAddress(), user.IsAdmin)
	if err != nil {
		errors.InternalError(c, "failed to generate token", err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{User: user, Token: token})
}

// trims and lowercases the address, then validates what is left
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))

	if err := binding.Validator.ValidateStruct(emailAddress{Email: email}); err != nil {
		return "", err
	}

	return email, nil
}
