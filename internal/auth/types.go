package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// represents JWT claims; guest tokens carry GuestToken and no user id
type Claims struct {
	UserID     int64  `json:"user_id,omitempty"`
	Email      string `json:"email,omitempty"`
	IsAdmin    bool   `json:"is_admin,omitempty"`
	GuestToken string `json:"guest_token,omitempty"`
	jwt.RegisteredClaims
}

// gin context keys set by the middleware
const (
	ContextUserID     = "user_id"
	ContextUserEmail  = "user_email"
	ContextIsAdmin    = "is_admin"
	ContextGuestToken = "guest_token"
)
