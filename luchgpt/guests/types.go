package guests

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("guest session not found")

// anonymous quota tracking, independent of users and chats
type Tracker interface {
	// returns the identity's session, creating one with a zero counter and a fresh token
	GetOrCreateGuestSession(ctx context.Context, identity string) (*Session, error)

	// lifetime counter; single atomic upsert returning the new count
	IncrementGuestRequest(ctx context.Context, token string) (int64, error)

	GetByToken(ctx context.Context, token string) (*Session, error)
}

// anonymous session keyed by an opaque token
type Session struct {
	ID            int64      `json:"id"`
	Token         string     `json:"token"`
	Identity      *string    `json:"identity,omitempty"`
	RequestCount  int64      `json:"request_count"`
	CreatedAt     time.Time  `json:"created_at"`
	LastRequestAt *time.Time `json:"last_request_at,omitempty"`
}

// how many requests remain under limit
func (s *Session) Remaining(limit int64) int64 {
	if s.RequestCount >= limit {
		return 0
	}

	return limit - s.RequestCount
}
