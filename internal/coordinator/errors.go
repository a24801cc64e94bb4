package coordinator

import (
	"errors"
	"fmt"

	"codeberg.org/luchgpt/server/luchgpt/chats"
)

var (
	ErrNoActiveChat         = errors.New("no active chat")
	ErrChatCapacityExceeded = errors.New("chat capacity exceeded")
	ErrGuestLimitExceeded   = errors.New("guest limit exceeded")
	ErrChatLimitReached     = errors.New("chat limit reached")
	ErrModelLocked          = errors.New("model not available on the free tier")
	ErrUnknownModel         = errors.New("unknown model")
	ErrImageUnsupported     = errors.New("model does not accept images")
	ErrEmptyMessage         = errors.New("message is empty")
	ErrAccountLimitReached  = errors.New("linked account limit reached")
	ErrInvalidCaller        = errors.New("caller has no identity")
)

// the chat already holds the maximum number of user messages and was closed
type ChatCapacityError struct {
	ChatID int64
	Limit  int
}

func (e *ChatCapacityError) Error() string {
	return fmt.Sprintf("chat %d reached %d messages and was closed", e.ChatID, e.Limit)
}

func (e *ChatCapacityError) Is(target error) bool {
	return target == ErrChatCapacityExceeded
}

// a guest used up the lifetime request allowance
type GuestLimitError struct {
	Limit int64
}

func (e *GuestLimitError) Error() string {
	return fmt.Sprintf("guest limit of %d requests exceeded", e.Limit)
}

func (e *GuestLimitError) Is(target error) bool {
	return target == ErrGuestLimitExceeded
}

// the user holds as many chats as the tier allows
type ChatLimitError struct {
	Limit    int
	Existing []*chats.Chat
}

func (e *ChatLimitError) Error() string {
	return fmt.Sprintf("chat limit of %d reached", e.Limit)
}

func (e *ChatLimitError) Is(target error) bool {
	return target == ErrChatLimitReached
}
