package confirmations

import (
	"context"
	"strings"
	"sync"
	"time"
)

// in-process Repository for tests and single-node development runs
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	codes  []*Code
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

// overrides the clock, for tests
func (m *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	m.now = now
	return m
}

func (m *MemoryRepository) Create(_ context.Context, email string) (*Code, error) {
	value, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := m.now()

	code := &Code{
		ID:        m.nextID,
		Email:     normalize(email),
		Code:      value,
		ExpiresAt: now.Add(CodeTTL),
		CreatedAt: now,
	}

	m.codes = append(m.codes, code)

	c := *code
	return &c, nil
}

func (m *MemoryRepository) Verify(_ context.Context, email, guess string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = normalize(email)

	var pending *Code
	for i := len(m.codes) - 1; i >= 0; i-- {
		if m.codes[i].Email == email && !m.codes[i].Confirmed {
			pending = m.codes[i]
			break
		}
	}

	if pending == nil {
		return ErrNotFound
	}

	result := check(pending, strings.TrimSpace(guess), m.now())

	switch result {
	case nil:
		pending.Confirmed = true
	case ErrInvalidCode:
		pending.Attempts++
	}

	return result
}

func (m *MemoryRepository) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.codes[:0]
	var removed int64

	for _, code := range m.codes {
		if code.ExpiresAt.Before(cutoff) {
			removed++
			continue
		}

		kept = append(kept, code)
	}

	m.codes = kept

	return removed, nil
}
