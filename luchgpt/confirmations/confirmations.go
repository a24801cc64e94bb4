package confirmations

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"codeberg.org/luchgpt/server/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db, now: time.Now}
}

func scanCode(row pgx.Row) (*Code, error) {
	var code Code

	err := row.Scan(
		&code.ID,
		&code.Email,
		&code.Code,
		&code.Attempts,
		&code.Confirmed,
		&code.ExpiresAt,
		&code.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return &code, nil
}

func (r *repository) Create(ctx context.Context, email string) (*Code, error) {
	value, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	code, err := scanCode(r.db.QueryRow(ctx, queryCreate, normalize(email), value, r.now().Add(CodeTTL)))
	if err != nil {
		return nil, fmt.Errorf("failed to create confirmation code: %w", err)
	}

	return code, nil
}

func (r *repository) Verify(ctx context.Context, email, guess string) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Warn("failed to rollback transaction", "error", rbErr)
		}
	}()

	pending, err := scanCode(tx.QueryRow(ctx, queryLatestPending, normalize(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}

		return fmt.Errorf("failed to load confirmation code: %w", err)
	}

	result := check(pending, strings.TrimSpace(guess), r.now())

	switch {
	case result == nil:
		if _, err := tx.Exec(ctx, queryConfirm, pending.ID); err != nil {
			return fmt.Errorf("failed to confirm code: %w", err)
		}

	case errors.Is(result, ErrInvalidCode):
		if _, err := tx.Exec(ctx, queryIncrementAttempts, pending.ID); err != nil {
			return fmt.Errorf("failed to record attempt: %w", err)
		}

	default:
		return result
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result
}

func (r *repository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, queryDeleteExpired, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired codes: %w", err)
	}

	return tag.RowsAffected(), nil
}

// six random digits
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
