package usage

import (
	"context"
	"time"
)

// layout of the calendar date part of usage keys
const DateLayout = "2006-01-02"

// per-(user, day, model) request counters; only the calendar date of a day argument is used
type Ledger interface {
	// single atomic upsert returning the post-increment count
	IncrementUsage(ctx context.Context, userID int64, day time.Time, modelKey string) (int64, error)

	// zero when no counter exists; never creates one
	GetUsage(ctx context.Context, userID int64, day time.Time, modelKey string) (int64, error)

	GetTotalUsageForDay(ctx context.Context, userID int64, day time.Time) (int64, error)

	// per-model breakdown for a day
	UsageForDay(ctx context.Context, userID int64, day time.Time) (map[string]int64, error)

	// deletes every counter of the user-day
	ResetUsage(ctx context.Context, userID int64, day time.Time) error
}

// one stored counter
type Counter struct {
	UserID   int64     `json:"user_id"`
	Date     time.Time `json:"date"`
	ModelKey string    `json:"model_key"`
	Count    int64     `json:"count"`
}

// truncates to a midnight UTC value carrying the same calendar date
func dateOnly(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
