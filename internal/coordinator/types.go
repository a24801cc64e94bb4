package coordinator

import (
	"fmt"
	"time"

	"codeberg.org/luchgpt/server/internal/config"
	"codeberg.org/luchgpt/server/internal/quota"
	"codeberg.org/luchgpt/server/luchgpt/chats"
	"codeberg.org/luchgpt/server/luchgpt/users"
)

const (
	defaultFreeChatLimit    = 5
	defaultPremiumChatLimit = 60
	defaultGuestTotalLimit  = 3
	defaultMaxUserMessages  = 200
	defaultHistoryPerRole   = 120

	// Telegram accounts a registered user may link
	MaxTelegramAccounts = 2
)

// who is making a request; either a known user id or an external account
type Caller struct {
	UserID     int64
	Provider   string
	ExternalID string
}

// caller authenticated as a known user
func UserCaller(userID int64) Caller {
	return Caller{UserID: userID}
}

// caller identified by an external account, created on first contact
func AccountCaller(provider, externalID string) Caller {
	return Caller{Provider: provider, ExternalID: externalID}
}

// guest tracker identity; web guests carry their session token instead
func (c Caller) identity() string {
	if c.Provider != "" {
		return c.Provider + ":" + c.ExternalID
	}

	return fmt.Sprintf("user:%d", c.UserID)
}

// capacity ceilings enforced by the coordinator
type Limits struct {
	FreeChatLimit    int
	PremiumChatLimit int
	GuestTotalLimit  int64
	MaxUserMessages  int
	HistoryPerRole   int
}

func DefaultLimits() Limits {
	return Limits{
		FreeChatLimit:    defaultFreeChatLimit,
		PremiumChatLimit: defaultPremiumChatLimit,
		GuestTotalLimit:  defaultGuestTotalLimit,
		MaxUserMessages:  defaultMaxUserMessages,
		HistoryPerRole:   defaultHistoryPerRole,
	}
}

// limits from configuration; zero values keep the defaults
func LimitsFromConfig(cfg config.LimitsConfig) Limits {
	limits := DefaultLimits()

	if cfg.FreeChatLimit > 0 {
		limits.FreeChatLimit = cfg.FreeChatLimit
	}

	if cfg.PremiumChatLimit > 0 {
		limits.PremiumChatLimit = cfg.PremiumChatLimit
	}

	if cfg.GuestTotalLimit > 0 {
		limits.GuestTotalLimit = cfg.GuestTotalLimit
	}

	if cfg.MaxUserMessages > 0 {
		limits.MaxUserMessages = cfg.MaxUserMessages
	}

	return limits
}

// input of Send; ChatID activates that chat first
type SendRequest struct {
	Caller   Caller
	ChatID   *int64
	Text     string
	ImageURL string
}

// outcome of Send
type Reply struct {
	Chat        *chats.Chat    `json:"chat"`
	UserMessage *chats.Message `json:"user_message"`
	BotMessage  *chats.Message `json:"bot_message"`
	Reasoning   string         `json:"reasoning,omitempty"`

	// the chat hit the message cap with this exchange and is no longer active
	ChatClosed bool `json:"chat_closed"`
}

// lifetime allowance of a guest
type GuestUsage struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
}

// account overview shown by /profile
type Profile struct {
	User                  *users.User    `json:"user"`
	Tier                  users.Tier     `json:"tier"`
	SubscriptionExpiresAt *time.Time     `json:"subscription_expires_at,omitempty"`
	Guest                 *GuestUsage    `json:"guest,omitempty"`
	Usage                 []quota.Status `json:"usage"`
	UsedToday             int64          `json:"used_today"`
	Chats                 int            `json:"chats"`
	ChatLimit             int            `json:"chat_limit"`
	ActiveChat            *chats.Chat    `json:"active_chat,omitempty"`
}
