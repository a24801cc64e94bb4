// Package coordinator drives chats, quotas and guest allowances for both front ends.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/luchgpt/server/internal/llm"
	"codeberg.org/luchgpt/server/internal/metrics"
	"codeberg.org/luchgpt/server/internal/models"
	"codeberg.org/luchgpt/server/internal/quota"
	"codeberg.org/luchgpt/server/luchgpt/chats"
	"codeberg.org/luchgpt/server/luchgpt/guests"
	"codeberg.org/luchgpt/server/luchgpt/users"
)

// collaborators of the coordinator
type Deps struct {
	Users   users.Repository
	Chats   chats.Store
	Quota   *quota.Policy
	Guests  guests.Tracker
	AI      llm.Completer
	Catalog *models.Catalog
}

type Coordinator struct {
	users   users.Repository
	chats   chats.Store
	quota   *quota.Policy
	guests  guests.Tracker
	ai      llm.Completer
	catalog *models.Catalog
	limits  Limits
	now     func() time.Time
}

// configures Coordinator
type Option func(*Coordinator)

func WithLimits(limits Limits) Option {
	return func(c *Coordinator) { c.limits = limits }
}

// overrides the clock used for subscription expiry, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func New(deps Deps, opts ...Option) *Coordinator {
	c := &Coordinator{
		users:   deps.Users,
		chats:   deps.Chats,
		quota:   deps.Quota,
		guests:  deps.Guests,
		ai:      deps.AI,
		catalog: deps.Catalog,
		limits:  DefaultLimits(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// the catalog the coordinator validates model keys against
func (c *Coordinator) Catalog() *models.Catalog {
	return c.catalog
}

// resolves the caller, creating the user on first contact through an external account
func (c *Coordinator) User(ctx context.Context, caller Caller) (*users.User, error) {
	if caller.UserID != 0 {
		return c.users.FindByID(ctx, caller.UserID)
	}

	if caller.Provider == "" || caller.ExternalID == "" {
		return nil, ErrInvalidCaller
	}

	user, err := c.users.FindOrCreateByAccount(ctx, caller.Provider, caller.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	return user, nil
}

// Send runs one exchange with the AI in the caller's active chat.
//
// Checks run in order: active chat, message cap, guest allowance, daily quota.
// A rejected check leaves every counter after it untouched. The exchange is
// persisted only when the AI answers.
func (c *Coordinator) Send(ctx context.Context, req SendRequest) (*Reply, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" && req.ImageURL == "" {
		return nil, ErrEmptyMessage
	}

	user, err := c.User(ctx, req.Caller)
	if err != nil {
		return nil, err
	}

	if req.ChatID != nil {
		if _, err := c.chats.SetActiveChat(ctx, user.ID, *req.ChatID, nil); err != nil {
			return nil, err
		}
	}

	chat, err := c.chats.GetActiveChat(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active chat: %w", err)
	}

	if chat == nil {
		return nil, ErrNoActiveChat
	}

	sent, err := c.chats.CountUserMessages(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	if sent >= c.limits.MaxUserMessages {
		if err := c.closeFull(ctx, chat.ID); err != nil {
			return nil, err
		}

		return nil, &ChatCapacityError{ChatID: chat.ID, Limit: c.limits.MaxUserMessages}
	}

	model, ok := c.catalog.Get(chat.ModelKey)
	if !ok {
		return nil, ErrUnknownModel
	}

	if req.ImageURL != "" && !model.Vision {
		return nil, ErrImageUnsupported
	}

	if user.IsGuest() {
		if err := c.chargeGuest(ctx, req.Caller); err != nil {
			return nil, err
		}
	}

	if err := c.quota.CheckAndIncrement(ctx, user.ID, chat.ModelKey, user.EffectiveTier(c.now())); err != nil {
		return nil, err
	}

	history, err := c.chats.RecentMessages(ctx, chat.ID, c.limits.HistoryPerRole)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	resp, err := c.ai.Complete(ctx, llm.Request{
		Model:        model.ProviderID,
		SystemPrompt: model.SystemPrompt,
		History:      toTurns(history),
		Prompt:       text,
		ImageURL:     req.ImageURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get model reply: %w", err)
	}

	reasoning, answer := llm.SplitReasoning(resp.Text)
	if answer == "" {
		answer = strings.TrimSpace(resp.Text)
	}

	prompt := chats.NewMessage{Content: promptContent(text, req.ImageURL)}
	reply := chats.NewMessage{Content: answer}

	if resp.Usage != nil {
		prompt.PromptTokens = &resp.Usage.PromptTokens
		reply.CompletionTokens = &resp.Usage.CompletionTokens
		reply.TotalTokens = &resp.Usage.TotalTokens
	}

	saved, err := c.chats.AppendExchange(ctx, chat.ID, prompt, reply)
	if err != nil {
		return nil, fmt.Errorf("failed to save exchange: %w", err)
	}

	out := &Reply{
		UserMessage: saved[0],
		BotMessage:  saved[1],
		Reasoning:   reasoning,
	}

	if sent+1 >= c.limits.MaxUserMessages {
		if err := c.closeFull(ctx, chat.ID); err != nil {
			return nil, err
		}

		out.ChatClosed = true
	}

	out.Chat, err = c.chats.GetChat(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload chat: %w", err)
	}

	return out, nil
}

// opens a new active chat; free users are kept on models the free tier allows
func (c *Coordinator) CreateChat(ctx context.Context, caller Caller, modelKey string) (*chats.Chat, error) {
	user, err := c.User(ctx, caller)
	if err != nil {
		return nil, err
	}

	if user.IsGuest() {
		session, err := c.guestSession(ctx, caller)
		if err != nil {
			return nil, err
		}

		if session.RequestCount >= c.limits.GuestTotalLimit {
			return nil, &GuestLimitError{Limit: c.limits.GuestTotalLimit}
		}
	}

	if modelKey == "" {
		modelKey = user.DefaultModelKey
	}

	if _, ok := c.catalog.Get(modelKey); !ok {
		return nil, ErrUnknownModel
	}

	tier := user.EffectiveTier(c.now())
	if tier == users.TierFree && !c.catalog.AllowedForFree(modelKey) {
		modelKey = models.KeyFast
	}

	limit := c.chatLimit(tier)

	// the count is taken under the store's per-user lock
	chat, err := c.chats.CreateChat(ctx, user.ID, modelKey, func(count int) error {
		if count >= limit {
			return &ChatLimitError{Limit: limit}
		}
		return nil
	})

	var limitErr *ChatLimitError
	if errors.As(err, &limitErr) {
		limitErr.Existing, err = c.chats.ListChats(ctx, user.ID, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list chats: %w", err)
		}

		return nil, limitErr
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	metrics.ChatsCreated.WithLabelValues(string(tier)).Inc()

	return chat, nil
}

// makes an owned chat the active one
func (c *Coordinator) SelectChat(ctx context.Context, caller Caller, chatID int64) (*chats.Chat, error) {
	user, err := c.User(ctx, caller)
	if err != nil {
		return nil, err
	}

	return c.chats.SetActiveChat(ctx, user.ID, chatID, nil)
}

// the active chat or ErrNoActiveChat
func (c *Coordinator) ActiveChat(ctx context.Context, caller Caller) (*chats.Chat, error) {
	user, err := c.User(ctx, caller)
	if err != nil {
		return nil, err
	}

	return c.activeChat(ctx, user.ID)
}

// closes the active chat, storing title when given
func (c *Coordinator) FinishChat(ctx context.Context, caller Caller, title *string) (*chats.Chat, error) {
	user, err := c.User(ctx, caller)
	if err != nil {
		return nil, err
	}

	chat, err := c.activeChat(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if title != nil && strings.TrimSpace(*title) == "" {
		title = nil
	}

	if err := c.chats.FinishChat(ctx, chat.ID, title); err != nil {
		return nil, fmt.Errorf("failed to finish chat: %w", err)
	}

	return c.chats.GetChat(ctx, chat.ID)
}

func (c *Coordinator) DeleteChat(ctx context.Context, caller Caller, chatID int64) error {
	if _, err := c.ownedChat(ctx, caller, chatID); err != nil {
		return err
	}

	return c.chats.DeleteChat(ctx, chatID)
}

func (c *Coordinator) ListChats(ctx context.Context, caller Caller, limit int) ([]*chats.Chat, error) {
	user, err := c.User(ctx, caller)
	if err != nil {
		return nil, err
	}

	return c.chats.ListChats(ctx, user.ID, limit)
}

func (c *Coordinator) RenameChat(ctx context.Context, caller Caller, chatID int64, title string) (*chats.Chat, error) {
	if _, err := c.ownedChat(ctx, caller, chatID); err != nil {
		return nil, err
	}

	return c.chats.RenameChat(ctx, chatID, strings.TrimSpace(title))
}

// messages of an owned chat in chronological order
func (c *Coordinator) History(ctx context.Context, caller Caller, chatID int64, limit int) ([]*chats.Message, error) {
	if _, err := c.ownedChat(ctx, caller, chatID); err != nil {
		return nil, err
	}

	return c.chats.Messages(ctx, chatID, limit)
}

// switches the model of the active chat
func (c *Coordinator) ChangeModel(ctx context.Context, caller Caller, modelKey string) (*chats.Chat, error) {
	if _, ok := c.catalog.Get(modelKey); !ok {
		return nil, ErrUnknownModel
	}

	user, err := c.User(ctx, caller)
	if err != nil {
		return nil, err
	}

	if user.EffectiveTier(c.now()) == users.TierFree && !c.catalog.AllowedForFree(modelKey) {
		return nil, ErrModelLocked
	}

	chat, err := c.activeChat(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return c.chats.SetActiveChat(ctx, user.ID, chat.ID, &modelKey)
}

func (c *Coordinator) Profile(ctx context.Context, caller Caller) (*Profile, error) {
	user, err := c.User(ctx, caller)
	if err != nil {
		return nil, err
	}

	tier := user.EffectiveTier(c.now())

	profile := &Profile{
		User:      user,
		Tier:      tier,
		ChatLimit: c.chatLimit(tier),
	}

	if tier == users.TierPremium {
		profile.SubscriptionExpiresAt = user.SubscriptionExpiresAt
	}

	if user.IsGuest() {
		session, err := c.guestSession(ctx, caller)
		if err != nil {
			return nil, err
		}

		profile.Guest = &GuestUsage{
			Used:      session.RequestCount,
			Limit:     c.limits.GuestTotalLimit,
			Remaining: session.Remaining(c.limits.GuestTotalLimit),
		}
	}

	for _, key := range c.catalog.Keys() {
		if tier == users.TierFree && !c.catalog.AllowedForFree(key) {
			continue
		}

		status, err := c.quota.Status(ctx, user.ID, key, tier)
		if err != nil {
			return nil, err
		}

		profile.Usage = append(profile.Usage, status)
	}

	today, err := c.quota.UsageToday(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}

	for _, count := range today {
		profile.UsedToday += count
	}

	profile.Chats, err = c.chats.CountChats(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count chats: %w", err)
	}

	profile.ActiveChat, err = c.chats.GetActiveChat(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active chat: %w", err)
	}

	return profile, nil
}

// binds an external account to a registered user, replacing any previous binding
func (c *Coordinator) LinkAccount(ctx context.Context, userID int64, provider, externalID string) (*users.User, error) {
	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if provider == users.ProviderTelegram {
		current, err := c.users.FindOrCreateByAccount(ctx, provider, externalID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve account: %w", err)
		}

		if current.ID == user.ID {
			return user, nil
		}

		linked, err := c.users.CountAccounts(ctx, user.ID, provider)
		if err != nil {
			return nil, fmt.Errorf("failed to count accounts: %w", err)
		}

		if linked >= MaxTelegramAccounts {
			return nil, ErrAccountLimitReached
		}
	}

	if err := c.users.LinkAccount(ctx, user.ID, provider, externalID); err != nil {
		return nil, fmt.Errorf("failed to link account: %w", err)
	}

	return user, nil
}

// grants or revokes premium; a nil expiry never expires
func (c *Coordinator) SetSubscription(ctx context.Context, userID int64, tier users.Tier, expiresAt *time.Time) (*users.User, error) {
	if tier != users.TierFree && tier != users.TierPremium {
		return nil, fmt.Errorf("invalid tier %q", tier)
	}

	if tier == users.TierFree {
		expiresAt = nil
	}

	return c.users.SetSubscription(ctx, userID, tier, expiresAt)
}

// clears a user's counters for day, or for today when day is nil
func (c *Coordinator) ResetUsage(ctx context.Context, userID int64, day *time.Time) error {
	if _, err := c.users.FindByID(ctx, userID); err != nil {
		return err
	}

	target := c.quota.Today()
	if day != nil {
		target = *day
	}

	if err := c.quota.Reset(ctx, userID, target); err != nil {
		return fmt.Errorf("failed to reset usage: %w", err)
	}

	return nil
}

func (c *Coordinator) activeChat(ctx context.Context, userID int64) (*chats.Chat, error) {
	chat, err := c.chats.GetActiveChat(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active chat: %w", err)
	}

	if chat == nil {
		return nil, ErrNoActiveChat
	}

	return chat, nil
}

// chats owned by someone else are reported as missing
func (c *Coordinator) ownedChat(ctx context.Context, caller Caller, chatID int64) (*chats.Chat, error) {
	user, err := c.User(ctx, caller)
	if err != nil {
		return nil, err
	}

	chat, err := c.chats.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if chat.UserID != user.ID {
		return nil, chats.ErrNotFound
	}

	return chat, nil
}

func (c *Coordinator) chatLimit(tier users.Tier) int {
	if tier == users.TierPremium {
		return c.limits.PremiumChatLimit
	}

	return c.limits.FreeChatLimit
}

// web guests present their session token; everyone else is tracked by identity
func (c *Coordinator) guestSession(ctx context.Context, caller Caller) (*guests.Session, error) {
	if caller.Provider == users.ProviderGuest {
		session, err := c.guests.GetByToken(ctx, caller.ExternalID)
		if err == nil {
			return session, nil
		}

		if !errors.Is(err, guests.ErrNotFound) {
			return nil, fmt.Errorf("failed to get guest session: %w", err)
		}

		return &guests.Session{Token: caller.ExternalID}, nil
	}

	session, err := c.guests.GetOrCreateGuestSession(ctx, caller.identity())
	if err != nil {
		return nil, fmt.Errorf("failed to get guest session: %w", err)
	}

	return session, nil
}

// counts the attempt, then rejects it when it goes past the allowance
func (c *Coordinator) chargeGuest(ctx context.Context, caller Caller) error {
	session, err := c.guestSession(ctx, caller)
	if err != nil {
		return err
	}

	count, err := c.guests.IncrementGuestRequest(ctx, session.Token)
	if err != nil {
		return fmt.Errorf("failed to count guest request: %w", err)
	}

	if count > c.limits.GuestTotalLimit {
		metrics.GuestRequests.WithLabelValues(metrics.OutcomeRejected).Inc()
		return &GuestLimitError{Limit: c.limits.GuestTotalLimit}
	}

	metrics.GuestRequests.WithLabelValues(metrics.OutcomeAllowed).Inc()

	return nil
}

func (c *Coordinator) closeFull(ctx context.Context, chatID int64) error {
	if err := c.chats.FinishChat(ctx, chatID, nil); err != nil {
		return fmt.Errorf("failed to close full chat: %w", err)
	}

	metrics.ChatsForceClosed.Inc()

	return nil
}

func toTurns(history []*chats.Message) []llm.Turn {
	turns := make([]llm.Turn, 0, len(history))

	for _, msg := range history {
		role := llm.RoleUser
		if msg.Role == chats.RoleBot {
			role = llm.RoleAssistant
		}

		turns = append(turns, llm.Turn{Role: role, Content: msg.Content})
	}

	return turns
}

// image turns are stored as a marker plus the caption; data URIs are not kept
func promptContent(text, imageURL string) string {
	if imageURL == "" {
		return text
	}

	content := "[Image]"
	if !strings.HasPrefix(imageURL, "data:") {
		content += " " + imageURL
	}

	if text != "" {
		content += "\n" + text
	}

	return content
}
