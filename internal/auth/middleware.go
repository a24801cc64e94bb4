package auth

import (
	"strings"

	"codeberg.org/luchgpt/server/internal/coordinator"
	"codeberg.org/luchgpt/server/internal/errors"
	"codeberg.org/luchgpt/server/internal/logger"
	"codeberg.org/luchgpt/server/luchgpt/users"
	"github.com/gin-gonic/gin"
)

// validates JWT tokens and adds user info to context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			errors.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			errors.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := ValidateJWT(token)
		if err != nil {
			errors.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		setClaims(c, claims)

		c.Next()
	}
}

// validates JWT if present but doesn't require it
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if claims, err := ValidateJWT(token); err == nil {
				setClaims(c, claims)
			}
		}

		c.Next()
	}
}

// requires a registered user whose token carries the admin flag; runs after AuthMiddleware
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok || !c.GetBool(ContextIsAdmin) {
			errors.Forbidden(c, "admin access required")
			c.Abort()
			return
		}

		c.Next()
	}
}

// extracts user_id from context after AuthMiddleware; false for guests
func GetUserID(c *gin.Context) (int64, bool) {
	userID := c.GetInt64(ContextUserID)
	return userID, userID != 0
}

// the coordinator caller for the authenticated request
func GetCaller(c *gin.Context) (coordinator.Caller, bool) {
	if token := c.GetString(ContextGuestToken); token != "" {
		return coordinator.AccountCaller(users.ProviderGuest, token), true
	}

	if userID, ok := GetUserID(c); ok {
		return coordinator.UserCaller(userID), true
	}

	return coordinator.Caller{}, false
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}

func setClaims(c *gin.Context, claims *Claims) {
	if claims.GuestToken != "" {
		c.Set(ContextGuestToken, claims.GuestToken)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(),
			logger.FromContext(c.Request.Context()).With("guest", true)))
		return
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserEmail, claims.Email)
	c.Set(ContextIsAdmin, claims.IsAdmin)

	c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(),
		logger.FromContext(c.Request.Context()).With("user_id", claims.UserID)))
}

// like GetCaller, answering 401 when the request carries no identity
func RequireCaller(c *gin.Context) (coordinator.Caller, bool) {
	caller, ok := GetCaller(c)
	if !ok {
		errors.Unauthorized(c, "")
	}

	return caller, ok
}
