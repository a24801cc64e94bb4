package guests

import (
	"context"
	"sync"
	"time"
)

// in-process Tracker guarded by a mutex
type MemoryTracker struct {
	mu         sync.Mutex
	nextID     int64
	byToken    map[string]*Session
	byIdentity map[string]*Session
	now        func() time.Time
}

var _ Tracker = (*MemoryTracker)(nil)

// creates an empty in-memory tracker
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		byToken:    make(map[string]*Session),
		byIdentity: make(map[string]*Session),
		now:        time.Now,
	}
}

func (m *MemoryTracker) GetOrCreateGuestSession(_ context.Context, identity string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.byIdentity[identity]; ok {
		return copySession(session), nil
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	id := identity
	session := m.insert(token)
	session.Identity = &id
	m.byIdentity[identity] = session

	return copySession(session), nil
}

func (m *MemoryTracker) IncrementGuestRequest(_ context.Context, token string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.byToken[token]
	if !ok {
		session = m.insert(token)
	}

	now := m.now()
	session.RequestCount++
	session.LastRequestAt = &now

	return session.RequestCount, nil
}

func (m *MemoryTracker) GetByToken(_ context.Context, token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}

	return copySession(session), nil
}

// caller holds the lock
func (m *MemoryTracker) insert(token string) *Session {
	m.nextID++

	session := &Session{
		ID:        m.nextID,
		Token:     token,
		CreatedAt: m.now(),
	}

	m.byToken[token] = session

	return session
}

func copySession(session *Session) *Session {
	c := *session
	return &c
}
