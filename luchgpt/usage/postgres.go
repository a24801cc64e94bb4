package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger backed by the usage_counters table
type PostgresLedger struct {
	db *pgxpool.Pool
}

var _ Ledger = (*PostgresLedger)(nil)

// creates a Postgres-backed ledger
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) IncrementUsage(ctx context.Context, userID int64, day time.Time, modelKey string) (int64, error) {
	var count int64

	if err := l.db.QueryRow(ctx, queryIncrementUsage, userID, dateOnly(day), modelKey).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}

	return count, nil
}

func (l *PostgresLedger) GetUsage(ctx context.Context, userID int64, day time.Time, modelKey string) (int64, error) {
	var count int64

	if err := l.db.QueryRow(ctx, queryGetUsage, userID, dateOnly(day), modelKey).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get usage: %w", err)
	}

	return count, nil
}

func (l *PostgresLedger) GetTotalUsageForDay(ctx context.Context, userID int64, day time.Time) (int64, error) {
	var count int64

	if err := l.db.QueryRow(ctx, queryGetTotalUsage, userID, dateOnly(day)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get total usage: %w", err)
	}

	return count, nil
}

func (l *PostgresLedger) UsageForDay(ctx context.Context, userID int64, day time.Time) (map[string]int64, error) {
	rows, err := l.db.Query(ctx, queryUsageForDay, userID, dateOnly(day))
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}

	defer rows.Close()

	out := make(map[string]int64)

	for rows.Next() {
		var (
			modelKey string
			count    int64
		)

		if err := rows.Scan(&modelKey, &count); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}

		out[modelKey] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}

	return out, nil
}

func (l *PostgresLedger) ResetUsage(ctx context.Context, userID int64, day time.Time) error {
	if _, err := l.db.Exec(ctx, queryResetUsage, userID, dateOnly(day)); err != nil {
		return fmt.Errorf("failed to reset usage: %w", err)
	}

	return nil
}
