package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Ledger keeping one hash per user-day, one field per model
type RedisLedger struct {
	client    goredis.Cmdable
	keyPrefix string
}

var _ Ledger = (*RedisLedger)(nil)

// configures RedisLedger
type Option func(*RedisLedger)

// sets the key prefix (default "luchgpt:")
func WithKeyPrefix(prefix string) Option {
	return func(l *RedisLedger) { l.keyPrefix = prefix }
}

// creates a Redis-backed ledger
func NewRedisLedger(client goredis.Cmdable, opts ...Option) *RedisLedger {
	l := &RedisLedger{
		client:    client,
		keyPrefix: "luchgpt:",
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *RedisLedger) dayKey(userID int64, day time.Time) string {
	return fmt.Sprintf("%susage:%d:%s", l.keyPrefix, userID, day.Format(DateLayout))
}

// sums every field of a hash server-side
// KEYS[1] = user-day hash
var totalScript = goredis.NewScript(`
local total = 0
local vals = redis.call('HVALS', KEYS[1])
for _, v in ipairs(vals) do
	total = total + tonumber(v)
end
return total
`)

// HINCRBY creates the field at 0 and increments in one step
func (l *RedisLedger) IncrementUsage(ctx context.Context, userID int64, day time.Time, modelKey string) (int64, error) {
	count, err := l.client.HIncrBy(ctx, l.dayKey(userID, day), modelKey, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}

	return count, nil
}

func (l *RedisLedger) GetUsage(ctx context.Context, userID int64, day time.Time, modelKey string) (int64, error) {
	count, err := l.client.HGet(ctx, l.dayKey(userID, day), modelKey).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get usage: %w", err)
	}

	return count, nil
}

func (l *RedisLedger) GetTotalUsageForDay(ctx context.Context, userID int64, day time.Time) (int64, error) {
	total, err := totalScript.Run(ctx, l.client, []string{l.dayKey(userID, day)}).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to get total usage: %w", err)
	}

	return total, nil
}

func (l *RedisLedger) UsageForDay(ctx context.Context, userID int64, day time.Time) (map[string]int64, error) {
	fields, err := l.client.HGetAll(ctx, l.dayKey(userID, day)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get usage: %w", err)
	}

	out := make(map[string]int64, len(fields))

	for modelKey, raw := range fields {
		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt usage counter %s: %w", modelKey, err)
		}

		out[modelKey] = count
	}

	return out, nil
}

func (l *RedisLedger) ResetUsage(ctx context.Context, userID int64, day time.Time) error {
	if err := l.client.Del(ctx, l.dayKey(userID, day)).Err(); err != nil {
		return fmt.Errorf("failed to reset usage: %w", err)
	}

	return nil
}
