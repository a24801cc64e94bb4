package confirmations

import (
	"context"
	"errors"
	"time"
)

const (
	// lifetime of an emailed code
	CodeTTL = 15 * time.Minute

	// wrong guesses allowed before a code is burned
	MaxAttempts = 5
)

var (
	ErrNotFound        = errors.New("no pending confirmation code")
	ErrInvalidCode     = errors.New("invalid confirmation code")
	ErrCodeExpired     = errors.New("confirmation code expired")
	ErrTooManyAttempts = errors.New("too many confirmation attempts")
)

// email confirmation codes issued at registration
type Repository interface {
	// issues a fresh code for email; earlier codes stay valid until they expire
	Create(ctx context.Context, email string) (*Code, error)

	// checks the newest pending code for email, counting failed attempts
	Verify(ctx context.Context, email, code string) error

	// removes codes that expired before cutoff
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type Code struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Code      string    `json:"-"`
	Attempts  int       `json:"attempts"`
	Confirmed bool      `json:"confirmed"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// decides the outcome of a guess against a pending code
func check(pending *Code, guess string, now time.Time) error {
	if pending.Attempts >= MaxAttempts {
		return ErrTooManyAttempts
	}

	if !pending.ExpiresAt.After(now) {
		return ErrCodeExpired
	}

	if pending.Code != guess {
		return ErrInvalidCode
	}

	return nil
}
