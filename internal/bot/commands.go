package bot

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/luchgpt/server/internal/auth"
	"codeberg.org/luchgpt/server/internal/coordinator"
	"codeberg.org/luchgpt/server/internal/logger"
	"codeberg.org/luchgpt/server/luchgpt/users"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `Send a message to talk to the model in your active chat.

/new [model] - start a new chat
/chats - list your chats
/select <id> - continue a chat
/end [title] - finish the active chat
/delete <id> - delete a chat
/model [key] - change the model of the active chat
/profile - your tier and today's usage
/login <email> <password> - link this Telegram account to your registered account
/help - this message`

func (b *Bot) handleCommand(ctx context.Context, caller coordinator.Caller, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.start(ctx, caller, msg)
	case "help":
		b.reply(chatID, helpText)
	case "new":
		b.newChat(ctx, caller, chatID, args)
	case "chats":
		b.listChats(ctx, caller, chatID)
	case "select":
		b.selectChat(ctx, caller, chatID, args)
	case "end":
		b.endChat(ctx, caller, chatID, args)
	case "delete":
		b.deleteChat(ctx, caller, chatID, args)
	case "model":
		if args == "" {
			b.showModels(ctx, caller, chatID)
			return
		}
		b.changeModel(ctx, caller, chatID, args)
	case "profile":
		b.profile(ctx, caller, chatID)
	case "login":
		b.login(ctx, msg, args)
	default:
		b.reply(chatID, "Unknown command. Send /help for the list.")
	}
}

func (b *Bot) start(ctx context.Context, caller coordinator.Caller, msg *tgbotapi.Message) {
	if _, err := b.coord.User(ctx, caller); err != nil {
		b.fail(ctx, msg.Chat.ID, err)
		return
	}

	name := msg.From.FirstName
	if name == "" {
		name = "there"
	}

	b.replyWithKeyboard(msg.Chat.ID, fmt.Sprintf("Hi, %s! I am LuchGPT, your personal assistant.\nPress the button below to start a conversation.", name), mainMenuKeyboard())
}

func (b *Bot) newChat(ctx context.Context, caller coordinator.Caller, chatID int64, modelKey string) {
	chat, err := b.coord.CreateChat(ctx, caller, modelKey)
	if err != nil {
		b.fail(ctx, chatID, err)
		return
	}

	b.replyWithKeyboard(chatID, fmt.Sprintf("New chat started.\nModel: %s", b.modelTitle(chat.ModelKey)), activeChatKeyboard())
}

func (b *Bot) listChats(ctx context.Context, caller coordinator.Caller, chatID int64) {
	list, err := b.coord.ListChats(ctx, caller, chatListLimit)
	if err != nil {
		b.fail(ctx, chatID, err)
		return
	}

	if len(list) == 0 {
		b.replyWithKeyboard(chatID, "You have no chats yet.", mainMenuKeyboard())
		return
	}

	b.replyWithKeyboard(chatID, "Your chats:", chatsKeyboard(list))
}

func (b *Bot) selectChat(ctx context.Context, caller coordinator.Caller, chatID int64, rawID string) {
	id, ok := b.parseChatID(chatID, rawID)
	if !ok {
		return
	}

	chat, err := b.coord.SelectChat(ctx, caller, id)
	if err != nil {
		b.fail(ctx, chatID, err)
		return
	}

	b.replyWithKeyboard(chatID, fmt.Sprintf("Continuing %q.\nModel: %s", chat.DisplayTitle(), b.modelTitle(chat.ModelKey)), activeChatKeyboard())
}

func (b *Bot) endChat(ctx context.Context, caller coordinator.Caller, chatID int64, title string) {
	var titlePtr *string
	if title != "" {
		titlePtr = &title
	}

	chat, err := b.coord.FinishChat(ctx, caller, titlePtr)
	if err != nil {
		b.fail(ctx, chatID, err)
		return
	}

	b.replyWithKeyboard(chatID, fmt.Sprintf("Chat %q finished.", chat.DisplayTitle()), mainMenuKeyboard())
}

func (b *Bot) deleteChat(ctx context.Context, caller coordinator.Caller, chatID int64, rawID string) {
	id, ok := b.parseChatID(chatID, rawID)
	if !ok {
		return
	}

	if err := b.coord.DeleteChat(ctx, caller, id); err != nil {
		b.fail(ctx, chatID, err)
		return
	}

	b.reply(chatID, "Chat deleted.")
	b.listChats(ctx, caller, chatID)
}

func (b *Bot) showModels(ctx context.Context, caller coordinator.Caller, chatID int64) {
	chat, err := b.coord.ActiveChat(ctx, caller)
	if err != nil {
		b.fail(ctx, chatID, err)
		return
	}

	b.replyWithKeyboard(chatID, "Choose a model:", modelsKeyboard(b.coord.Catalog(), chat.ModelKey))
}

func (b *Bot) changeModel(ctx context.Context, caller coordinator.Caller, chatID int64, modelKey string) {
	chat, err := b.coord.ChangeModel(ctx, caller, modelKey)
	if err != nil {
		b.fail(ctx, chatID, err)
		return
	}

	b.reply(chatID, fmt.Sprintf("Model switched to %s.", b.modelTitle(chat.ModelKey)))
}

func (b *Bot) profile(ctx context.Context, caller coordinator.Caller, chatID int64) {
	profile, err := b.coord.Profile(ctx, caller)
	if err != nil {
		b.fail(ctx, chatID, err)
		return
	}

	b.replyWithKeyboard(chatID, formatProfile(profile, b.modelTitle), mainMenuKeyboard())
}

// binds this Telegram account to a registered user; the message with the password is deleted
func (b *Bot) login(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID

	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID)); err != nil {
		logger.Warn("failed to delete login message", "error", err)
	}

	email, password, ok := strings.Cut(args, " ")
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)

	if !ok || email == "" || password == "" {
		b.reply(chatID, "Usage: /login <email> <password>")
		return
	}

	user, err := b.users.FindByEmail(ctx, email)
	if err != nil && !stderrors.Is(err, users.ErrNotFound) {
		b.fail(ctx, chatID, err)
		return
	}

	if user == nil || !user.EmailVerified || !auth.CheckPassword(user.PasswordHash, password) {
		b.reply(chatID, "Wrong email or password, or the email is not confirmed yet.")
		return
	}

	if _, err := b.coord.LinkAccount(ctx, user.ID, users.ProviderTelegram, strconv.FormatInt(msg.From.ID, 10)); err != nil {
		b.fail(ctx, chatID, err)
		return
	}

	logger.FromContext(ctx).Info("telegram account linked", "user_id", user.ID)

	b.replyWithKeyboard(chatID, "You are logged in.", mainMenuKeyboard())
}

func (b *Bot) parseChatID(chatID int64, raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		b.reply(chatID, "Send a chat id, for example /select 12. Use /chats to see them.")
		return 0, false
	}

	return id, true
}

func (b *Bot) modelTitle(key string) string {
	if m, ok := b.coord.Catalog().Get(key); ok {
		return m.Title
	}

	return key
}

func formatProfile(p *coordinator.Profile, modelTitle func(string) string) string {
	var sb strings.Builder

	switch {
	case p.Guest != nil:
		fmt.Fprintf(&sb, "Guest\nRequests left: %d of %d\n", p.Guest.Remaining, p.Guest.Limit)
	case p.SubscriptionExpiresAt != nil:
		fmt.Fprintf(&sb, "%s: %s\nSubscription until %s\n", p.User.EmailAddress(), p.Tier, p.SubscriptionExpiresAt.Format("2006-01-02"))
	default:
		fmt.Fprintf(&sb, "%s: %s\n", p.User.EmailAddress(), p.Tier)
	}

	fmt.Fprintf(&sb, "Chats: %d of %d\n", p.Chats, p.ChatLimit)

	if p.Guest == nil {
		sb.WriteString("Today:\n")
		for _, status := range p.Usage {
			fmt.Fprintf(&sb, "  %s: %d of %d\n", modelTitle(status.ModelKey), status.Used, status.Limit)
		}
	}

	if p.ActiveChat != nil {
		fmt.Fprintf(&sb, "Active chat: %s (%s)", p.ActiveChat.DisplayTitle(), modelTitle(p.ActiveChat.ModelKey))
	}

	return strings.TrimRight(sb.String(), "\n")
}
