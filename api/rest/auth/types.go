package auth

import (
	"codeberg.org/luchgpt/server/internal/mailer"
	"codeberg.org/luchgpt/server/luchgpt/confirmations"
	"codeberg.org/luchgpt/server/luchgpt/guests"
	"codeberg.org/luchgpt/server/luchgpt/users"
)

// collaborators of the auth handlers
type Deps struct {
	Users         users.Repository
	Guests        guests.Tracker
	Confirmations confirmations.Repository
	Mailer        mailer.Sender
}

// AuthResponse returned after a successful login or confirmation
type AuthResponse struct {
	User  *users.User `json:"user"`
	Token string      `json:"token"`
}

// GuestResponse returned when a guest session starts
type GuestResponse struct {
	Token     string `json:"token"`
	Remaining int64  `json:"remaining"`
}

// UserResponse wraps user data
type UserResponse struct {
	User *users.User `json:"user"`
}

// MessageResponse for simple success messages
type MessageResponse struct {
	Message string `json:"message"`
}

// Email fields are trimmed and lowercased before the address itself is validated
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type ConfirmRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,max=72"`
}

type emailAddress struct {
	Email string `binding:"required,email,max=254"`
}
