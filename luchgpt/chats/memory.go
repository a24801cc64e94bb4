package chats

import (
	"context"
	"sort"
	"sync"
	"time"
)

// in-process Store; every operation holds one mutex, so swaps are never observed half-done
type MemoryStore struct {
	mu         sync.Mutex
	nextChatID int64
	nextMsgID  int64
	chats      map[int64]*Chat
	messages   map[int64][]*Message
	now        func() time.Time
}

// creates an empty in-memory chat store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats:    make(map[int64]*Chat),
		messages: make(map[int64][]*Message),
		now:      time.Now,
	}
}

// overrides the clock, for tests
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) CreateChat(_ context.Context, userID int64, modelKey string, admit AdmitFunc) (*Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if admit != nil {
		if err := admit(m.countLocked(userID)); err != nil {
			return nil, err
		}
	}

	m.deactivateAll(userID)

	m.nextChatID++
	now := m.now()

	chat := &Chat{
		ID:                m.nextChatID,
		UserID:            userID,
		ModelKey:          modelKey,
		IsActive:          true,
		CreatedAt:         now,
		LastInteractionAt: now,
	}

	m.chats[chat.ID] = chat

	return copyChat(chat), nil
}

func (m *MemoryStore) SetActiveChat(_ context.Context, userID, chatID int64, modelKey *string) (*Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.chats[chatID]
	if !ok || chat.UserID != userID {
		return nil, ErrNotFound
	}

	m.deactivateAll(userID)
	chat.IsActive = true

	if modelKey != nil {
		chat.ModelKey = *modelKey
	}

	return copyChat(chat), nil
}

func (m *MemoryStore) GetActiveChat(_ context.Context, userID int64) (*Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, chat := range m.chats {
		if chat.UserID == userID && chat.IsActive {
			return copyChat(chat), nil
		}
	}

	return nil, nil
}

func (m *MemoryStore) FinishChat(_ context.Context, chatID int64, title *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.chats[chatID]
	if !ok || !chat.IsActive {
		return nil
	}

	chat.IsActive = false

	if title != nil {
		truncated := TruncateTitle(*title)
		chat.Title = &truncated
	}

	return nil
}

func (m *MemoryStore) DeleteChat(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.chats, chatID)
	delete(m.messages, chatID)

	return nil
}

func (m *MemoryStore) ListChats(_ context.Context, userID int64, limit int) ([]*Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	var out []*Chat

	for _, chat := range m.chats {
		if chat.UserID == userID {
			out = append(out, copyChat(chat))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastInteractionAt.Equal(out[j].LastInteractionAt) {
			return out[i].ID > out[j].ID
		}

		return out[i].LastInteractionAt.After(out[j].LastInteractionAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (m *MemoryStore) GetChat(_ context.Context, chatID int64) (*Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.chats[chatID]
	if !ok {
		return nil, ErrNotFound
	}

	return copyChat(chat), nil
}

func (m *MemoryStore) CountChats(_ context.Context, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.countLocked(userID), nil
}

func (m *MemoryStore) countLocked(userID int64) int {
	count := 0

	for _, chat := range m.chats {
		if chat.UserID == userID {
			count++
		}
	}

	return count
}

func (m *MemoryStore) RenameChat(_ context.Context, chatID int64, title string) (*Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.chats[chatID]
	if !ok {
		return nil, ErrNotFound
	}

	truncated := TruncateTitle(title)
	chat.Title = &truncated

	return copyChat(chat), nil
}

func (m *MemoryStore) CountUserMessages(_ context.Context, chatID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0

	for _, msg := range m.messages[chatID] {
		if msg.Role == RoleUser {
			count++
		}
	}

	return count, nil
}

func (m *MemoryStore) AppendExchange(_ context.Context, chatID int64, prompt, reply NewMessage) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.chats[chatID]
	if !ok {
		return nil, ErrNotFound
	}

	now := m.now()
	chat.LastInteractionAt = now

	out := make([]*Message, 0, 2)

	for _, turn := range []struct {
		role Role
		msg  NewMessage
	}{{RoleUser, prompt}, {RoleBot, reply}} {
		m.nextMsgID++

		msg := &Message{
			ID:               m.nextMsgID,
			ChatID:           chatID,
			Role:             turn.role,
			Content:          turn.msg.Content,
			PromptTokens:     turn.msg.PromptTokens,
			CompletionTokens: turn.msg.CompletionTokens,
			TotalTokens:      turn.msg.TotalTokens,
			CreatedAt:        now,
		}

		m.messages[chatID] = append(m.messages[chatID], msg)
		out = append(out, copyMessage(msg))
	}

	return out, nil
}

// messages are kept in insertion order, which is (created_at, id) order
func (m *MemoryStore) RecentMessages(_ context.Context, chatID int64, perRole int) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.messages[chatID]
	seen := map[Role]int{}
	keep := make([]bool, len(all))

	for i := len(all) - 1; i >= 0; i-- {
		role := all[i].Role
		if seen[role] < perRole {
			seen[role]++
			keep[i] = true
		}
	}

	var out []*Message

	for i, msg := range all {
		if keep[i] {
			out = append(out, copyMessage(msg))
		}
	}

	return out, nil
}

func (m *MemoryStore) Messages(_ context.Context, chatID int64, limit int) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.messages[chatID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}

	out := make([]*Message, 0, len(all))
	for _, msg := range all {
		out = append(out, copyMessage(msg))
	}

	return out, nil
}

// caller holds the lock
func (m *MemoryStore) deactivateAll(userID int64) {
	for _, chat := range m.chats {
		if chat.UserID == userID {
			chat.IsActive = false
		}
	}
}

func copyChat(chat *Chat) *Chat {
	c := *chat
	return &c
}

func copyMessage(msg *Message) *Message {
	c := *msg
	return &c
}
