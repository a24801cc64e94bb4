package users

import (
	"context"
	"errors"
	"time"
)

// subscription levels
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// external identity providers bound through user_accounts
const (
	ProviderTelegram = "telegram"
	ProviderGoogle   = "google"
	ProviderGuest    = "guest"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// repository interface for user database operations
type Repository interface {
	FindByID(ctx context.Context, userID int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindOrCreateByAccount(ctx context.Context, provider, providerID string) (*User, error)
	FindOrCreateVerified(ctx context.Context, provider, providerID, email string) (*User, error)
	Register(ctx context.Context, email, passwordHash string) (*User, error)
	MarkEmailVerified(ctx context.Context, email string) (*User, error)
	LinkAccount(ctx context.Context, userID int64, provider, providerID string) error
	CountAccounts(ctx context.Context, userID int64, provider string) (int, error)
	SetSubscription(ctx context.Context, userID int64, tier Tier, expiresAt *time.Time) (*User, error)
}

// represents a person using the bot or the web client
type User struct {
	ID                    int64      `json:"id"`
	Email                 *string    `json:"email,omitempty"`
	EmailVerified         bool       `json:"email_verified"`
	PasswordHash          string     `json:"-"`
	Tier                  Tier       `json:"tier"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	DefaultModelKey       string     `json:"default_model_key"`
	IsAdmin               bool       `json:"is_admin"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// users without a verified email are treated as guests
func (u *User) IsGuest() bool {
	return !u.EmailVerified
}

// tier in force at now; an expired premium subscription counts as free
func (u *User) EffectiveTier(now time.Time) Tier {
	if u.Tier != TierPremium {
		return TierFree
	}

	if u.SubscriptionExpiresAt != nil && !u.SubscriptionExpiresAt.After(now) {
		return TierFree
	}

	return TierPremium
}

// returns the email or an empty string
func (u *User) EmailAddress() string {
	if u.Email == nil {
		return ""
	}

	return *u.Email
}
