package admin

import (
	"time"

	"codeberg.org/luchgpt/server/luchgpt/users"
)

type SetSubscriptionRequest struct {
	Tier      users.Tier `json:"tier" binding:"required,oneof=free premium"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type ResetUsageRequest struct {
	// calendar date as 2006-01-02; today when empty
	Date string `json:"date"`
}

type UserResponse struct {
	User *users.User `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
