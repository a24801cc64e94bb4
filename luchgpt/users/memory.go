package users

import (
	"context"
	"sync"
	"time"
)

type accountKey struct {
	provider   string
	providerID string
}

// in-process Repository for tests and single-node development runs
type MemoryRepository struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*User
	accounts map[accountKey]int64
	now      func() time.Time
}

// creates an empty in-memory user repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[int64]*User),
		accounts: make(map[accountKey]int64),
		now:      time.Now,
	}
}

func (m *MemoryRepository) FindByID(_ context.Context, userID int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}

	return clone(user), nil
}

func (m *MemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := m.byEmail(email)
	if user == nil {
		return nil, ErrNotFound
	}

	return clone(user), nil
}

func (m *MemoryRepository) FindOrCreateByAccount(_ context.Context, provider, providerID string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := accountKey{provider, providerID}
	if id, ok := m.accounts[key]; ok {
		return clone(m.users[id]), nil
	}

	user := m.insert(nil, false)
	m.accounts[key] = user.ID

	return clone(user), nil
}

func (m *MemoryRepository) FindOrCreateVerified(_ context.Context, provider, providerID, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := accountKey{provider, providerID}
	if id, ok := m.accounts[key]; ok {
		return clone(m.users[id]), nil
	}

	user := m.byEmail(email)
	if user == nil {
		user = m.insert(&email, true)
	}

	user.EmailVerified = true
	m.accounts[key] = user.ID

	return clone(user), nil
}

func (m *MemoryRepository) Register(_ context.Context, email, passwordHash string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := m.byEmail(email)
	if user != nil && user.EmailVerified {
		return nil, ErrEmailTaken
	}

	if user == nil {
		user = m.insert(&email, false)
	}

	user.PasswordHash = passwordHash
	user.UpdatedAt = m.now()

	return clone(user), nil
}

func (m *MemoryRepository) MarkEmailVerified(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := m.byEmail(email)
	if user == nil {
		return nil, ErrNotFound
	}

	user.EmailVerified = true
	user.UpdatedAt = m.now()

	return clone(user), nil
}

func (m *MemoryRepository) LinkAccount(_ context.Context, userID int64, provider, providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return ErrNotFound
	}

	m.accounts[accountKey{provider, providerID}] = userID

	return nil
}

func (m *MemoryRepository) CountAccounts(_ context.Context, userID int64, provider string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0

	for key, id := range m.accounts {
		if id == userID && key.provider == provider {
			count++
		}
	}

	return count, nil
}

func (m *MemoryRepository) SetSubscription(_ context.Context, userID int64, tier Tier, expiresAt *time.Time) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}

	user.Tier = tier
	user.SubscriptionExpiresAt = expiresAt
	user.UpdatedAt = m.now()

	return clone(user), nil
}

// caller holds the lock
func (m *MemoryRepository) insert(email *string, verified bool) *User {
	m.nextID++
	now := m.now()

	user := &User{
		ID:              m.nextID,
		Email:           email,
		EmailVerified:   verified,
		Tier:            TierFree,
		DefaultModelKey: "fast",
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	m.users[user.ID] = user

	return user
}

// caller holds the lock
func (m *MemoryRepository) byEmail(email string) *User {
	for _, user := range m.users {
		if user.Email != nil && *user.Email == email {
			return user
		}
	}

	return nil
}

func clone(user *User) *User {
	c := *user
	return &c
}
