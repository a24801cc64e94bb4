package quota

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/luchgpt/server/internal/metrics"
	"codeberg.org/luchgpt/server/internal/models"
	"codeberg.org/luchgpt/server/luchgpt/usage"
	"codeberg.org/luchgpt/server/luchgpt/users"
)

// decides the applicable ceiling and charges the usage ledger
type Policy struct {
	ledger    usage.Ledger
	catalog   *models.Catalog
	freeLimit int64
	location  *time.Location
	now       func() time.Time
}

// configures Policy
type Option func(*Policy)

// sets the shared daily ceiling of the free tier
func WithFreeDailyLimit(limit int64) Option {
	return func(p *Policy) { p.freeLimit = limit }
}

// sets the time zone whose calendar date keys the counters (default UTC)
func WithLocation(loc *time.Location) Option {
	return func(p *Policy) {
		if loc != nil {
			p.location = loc
		}
	}
}

// overrides the clock, for tests
func WithClock(now func() time.Time) Option {
	return func(p *Policy) { p.now = now }
}

// creates a quota policy over ledger
func NewPolicy(ledger usage.Ledger, catalog *models.Catalog, opts ...Option) *Policy {
	p := &Policy{
		ledger:    ledger,
		catalog:   catalog,
		freeLimit: FreeDailyLimit,
		location:  time.UTC,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// the current day in the policy's time zone
func (p *Policy) Today() time.Time {
	return p.now().In(p.location)
}

// ceiling for a model under a tier; unknown premium models fall back to the free ceiling
func (p *Policy) Limit(modelKey string, tier users.Tier) int64 {
	if tier == users.TierPremium {
		if limit, ok := p.catalog.PremiumLimit(modelKey); ok {
			return limit
		}
	}

	return p.freeLimit
}

// reads the usage the gate compares against: the day's total for free users, the model's count otherwise
func (p *Policy) current(ctx context.Context, userID int64, day time.Time, modelKey string, tier users.Tier) (int64, error) {
	if tier == users.TierPremium {
		if _, ok := p.catalog.PremiumLimit(modelKey); ok {
			return p.ledger.GetUsage(ctx, userID, day, modelKey)
		}
	}

	return p.ledger.GetTotalUsageForDay(ctx, userID, day)
}

// fails with *ExceededError when the ceiling is reached; otherwise charges one request to modelKey
func (p *Policy) CheckAndIncrement(ctx context.Context, userID int64, modelKey string, tier users.Tier) error {
	day := p.Today()
	limit := p.Limit(modelKey, tier)

	used, err := p.current(ctx, userID, day, modelKey, tier)
	if err != nil {
		return fmt.Errorf("failed to read usage: %w", err)
	}

	if used >= limit {
		metrics.QuotaDecisions.WithLabelValues(string(tier), modelKey, metrics.OutcomeRejected).Inc()

		return &ExceededError{
			Limit:    limit,
			Used:     used,
			ModelKey: modelKey,
			Tier:     tier,
		}
	}

	// always per-model, even when the gate read the pooled total
	if _, err := p.ledger.IncrementUsage(ctx, userID, day, modelKey); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}

	metrics.QuotaDecisions.WithLabelValues(string(tier), modelKey, metrics.OutcomeAllowed).Inc()

	return nil
}

// usage and ceiling for a model without charging anything
func (p *Policy) Status(ctx context.Context, userID int64, modelKey string, tier users.Tier) (Status, error) {
	used, err := p.current(ctx, userID, p.Today(), modelKey, tier)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read usage: %w", err)
	}

	_, perModel := p.catalog.PremiumLimit(modelKey)

	return Status{
		ModelKey: modelKey,
		Used:     used,
		Limit:    p.Limit(modelKey, tier),
		Pooled:   tier != users.TierPremium || !perModel,
	}, nil
}

// per-model counters of today
func (p *Policy) UsageToday(ctx context.Context, userID int64) (map[string]int64, error) {
	return p.ledger.UsageForDay(ctx, userID, p.Today())
}

// deletes a user's counters for the calendar date of day
func (p *Policy) Reset(ctx context.Context, userID int64, day time.Time) error {
	return p.ledger.ResetUsage(ctx, userID, day)
}

// requests left today for a model
func (p *Policy) Remaining(ctx context.Context, userID int64, modelKey string, tier users.Tier) (int64, error) {
	status, err := p.Status(ctx, userID, modelKey, tier)
	if err != nil {
		return 0, err
	}

	return status.Remaining(), nil
}
