package chats

import (
	"context"
	"errors"
	"time"
)

const (
	// titles longer than this are cut
	MaxTitleLength = 28

	// used when ListChats gets a non-positive limit
	DefaultListLimit = 20
)

var ErrNotFound = errors.New("chat not found")

// author of a message
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// called with the user's current chat count while the user is locked;
// a non-nil error aborts the create and is returned as is
type AdmitFunc func(count int) error

// chat and message persistence; count limits are enforced by callers
type Store interface {
	CreateChat(ctx context.Context, userID int64, modelKey string, admit AdmitFunc) (*Chat, error)
	SetActiveChat(ctx context.Context, userID, chatID int64, modelKey *string) (*Chat, error)
	GetActiveChat(ctx context.Context, userID int64) (*Chat, error)
	FinishChat(ctx context.Context, chatID int64, title *string) error
	DeleteChat(ctx context.Context, chatID int64) error
	ListChats(ctx context.Context, userID int64, limit int) ([]*Chat, error)

	GetChat(ctx context.Context, chatID int64) (*Chat, error)
	CountChats(ctx context.Context, userID int64) (int, error)
	RenameChat(ctx context.Context, chatID int64, title string) (*Chat, error)

	CountUserMessages(ctx context.Context, chatID int64) (int, error)
	AppendExchange(ctx context.Context, chatID int64, prompt, reply NewMessage) ([]*Message, error)
	RecentMessages(ctx context.Context, chatID int64, perRole int) ([]*Message, error)
	Messages(ctx context.Context, chatID int64, limit int) ([]*Message, error)
}

// a conversation owned by one user
type Chat struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	ModelKey          string    `json:"model_key"`
	Title             *string   `json:"title,omitempty"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
}

// title or a fallback label
func (c *Chat) DisplayTitle() string {
	if c.Title != nil && *c.Title != "" {
		return *c.Title
	}

	return "Chat " + c.CreatedAt.Format("2006-01-02 15:04")
}

// a single turn in a chat
type Message struct {
	ID               int64     `json:"id"`
	ChatID           int64     `json:"chat_id"`
	Role             Role      `json:"role"`
	Content          string    `json:"content"`
	PromptTokens     *int      `json:"prompt_tokens,omitempty"`
	CompletionTokens *int      `json:"completion_tokens,omitempty"`
	TotalTokens      *int      `json:"total_tokens,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// input for AppendExchange
type NewMessage struct {
	Content          string
	PromptTokens     *int
	CompletionTokens *int
	TotalTokens      *int
}

// cuts a title to MaxTitleLength runes
func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= MaxTitleLength {
		return title
	}

	return string(runes[:MaxTitleLength])
}
