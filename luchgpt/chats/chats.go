package chats

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/luchgpt/server/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repository struct {
	db *pgxpool.Pool
}

// creates a Postgres-backed chat store
func NewRepository(db *pgxpool.Pool) Store {
	return &repository{db: db}
}

func scanChat(row pgx.Row) (*Chat, error) {
	var chat Chat

	err := row.Scan(
		&chat.ID,
		&chat.UserID,
		&chat.ModelKey,
		&chat.Title,
		&chat.IsActive,
		&chat.CreatedAt,
		&chat.LastInteractionAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return &chat, nil
}

func scanMessages(rows pgx.Rows) ([]*Message, error) {
	defer rows.Close()

	var messages []*Message

	for rows.Next() {
		var msg Message

		if err := rows.Scan(
			&msg.ID,
			&msg.ChatID,
			&msg.Role,
			&msg.Content,
			&msg.PromptTokens,
			&msg.CompletionTokens,
			&msg.TotalTokens,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return messages, nil
}

// runs fn in a transaction that holds the user's row lock
func (r *repository) withUserLock(ctx context.Context, userID int64, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("failed to rollback transaction", "error", err)
		}
	}()

	var lockedID int64
	if err := tx.QueryRow(ctx, queryLockUser, userID).Scan(&lockedID); err != nil {
		return fmt.Errorf("failed to lock user %d: %w", userID, err)
	}

	if _, err := tx.Exec(ctx, queryDeactivateAll, userID); err != nil {
		return fmt.Errorf("failed to deactivate chats: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// deactivates the user's chats and inserts a new active one; admit, when set,
// sees the chat count under the same lock
func (r *repository) CreateChat(ctx context.Context, userID int64, modelKey string, admit AdmitFunc) (*Chat, error) {
	var chat *Chat

	err := r.withUserLock(ctx, userID, func(tx pgx.Tx) error {
		if admit != nil {
			var count int
			if err := tx.QueryRow(ctx, queryCountChats, userID).Scan(&count); err != nil {
				return fmt.Errorf("failed to count chats: %w", err)
			}

			if err := admit(count); err != nil {
				return err
			}
		}

		var err error

		chat, err = scanChat(tx.QueryRow(ctx, queryInsertChat, userID, modelKey))
		if err != nil {
			return fmt.Errorf("failed to insert chat: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return chat, nil
}

// makes chatID the user's only active chat, optionally switching its model
func (r *repository) SetActiveChat(ctx context.Context, userID, chatID int64, modelKey *string) (*Chat, error) {
	var chat *Chat

	err := r.withUserLock(ctx, userID, func(tx pgx.Tx) error {
		var err error

		chat, err = scanChat(tx.QueryRow(ctx, queryActivateChat, userID, chatID, modelKey))
		return err
	})

	if err != nil {
		return nil, err
	}

	return chat, nil
}

// returns the active chat, or nil when there is none
func (r *repository) GetActiveChat(ctx context.Context, userID int64) (*Chat, error) {
	chat, err := scanChat(r.db.QueryRow(ctx, queryGetActiveChat, userID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}

	return chat, err
}

// closes an active chat; inactive chats are left untouched
func (r *repository) FinishChat(ctx context.Context, chatID int64, title *string) error {
	if title != nil {
		truncated := TruncateTitle(*title)
		title = &truncated
	}

	if _, err := r.db.Exec(ctx, queryFinishChat, chatID, title); err != nil {
		return fmt.Errorf("failed to finish chat: %w", err)
	}

	return nil
}

// removes the chat and its messages
func (r *repository) DeleteChat(ctx context.Context, chatID int64) error {
	if _, err := r.db.Exec(ctx, queryDeleteChat, chatID); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	return nil
}

// lists the user's chats, most recently used first
func (r *repository) ListChats(ctx context.Context, userID int64, limit int) ([]*Chat, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(ctx, queryListChats, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	defer rows.Close()

	var chats []*Chat

	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}

		chats = append(chats, chat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chats: %w", err)
	}

	return chats, nil
}

func (r *repository) GetChat(ctx context.Context, chatID int64) (*Chat, error) {
	return scanChat(r.db.QueryRow(ctx, queryGetChat, chatID))
}

func (r *repository) CountChats(ctx context.Context, userID int64) (int, error) {
	var count int

	if err := r.db.QueryRow(ctx, queryCountChats, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chats: %w", err)
	}

	return count, nil
}

func (r *repository) RenameChat(ctx context.Context, chatID int64, title string) (*Chat, error) {
	return scanChat(r.db.QueryRow(ctx, queryRenameChat, chatID, TruncateTitle(title)))
}

func (r *repository) CountUserMessages(ctx context.Context, chatID int64) (int, error) {
	var count int

	if err := r.db.QueryRow(ctx, queryCountUserMessages, chatID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}

	return count, nil
}

// stores the user turn and the bot turn together and bumps last_interaction_at
func (r *repository) AppendExchange(ctx context.Context, chatID int64, prompt, reply NewMessage) ([]*Message, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("failed to rollback transaction", "error", err)
		}
	}()

	tag, err := tx.Exec(ctx, queryTouchChat, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to touch chat: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	messages := make([]*Message, 0, 2)

	for _, turn := range []struct {
		role Role
		msg  NewMessage
	}{{RoleUser, prompt}, {RoleBot, reply}} {
		rows, err := tx.Query(ctx, queryInsertMessage,
			chatID,
			turn.role,
			turn.msg.Content,
			turn.msg.PromptTokens,
			turn.msg.CompletionTokens,
			turn.msg.TotalTokens,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s message: %w", turn.role, err)
		}

		inserted, err := scanMessages(rows)
		if err != nil {
			return nil, err
		}

		messages = append(messages, inserted...)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return messages, nil
}

// history replayed to the model: newest perRole messages of each role, oldest first
func (r *repository) RecentMessages(ctx context.Context, chatID int64, perRole int) ([]*Message, error) {
	rows, err := r.db.Query(ctx, queryRecentMessages, chatID, perRole)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	return scanMessages(rows)
}

// latest limit messages, oldest first
func (r *repository) Messages(ctx context.Context, chatID int64, limit int) ([]*Message, error) {
	rows, err := r.db.Query(ctx, queryMessages, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	return scanMessages(rows)
}
