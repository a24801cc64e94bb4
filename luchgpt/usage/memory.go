package usage

import (
	"context"
	"sync"
	"time"
)

type counterKey struct {
	userID   int64
	date     string
	modelKey string
}

// in-process Ledger guarded by a mutex
type MemoryLedger struct {
	mu       sync.Mutex
	counters map[counterKey]int64
}

var _ Ledger = (*MemoryLedger)(nil)

// creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{counters: make(map[counterKey]int64)}
}

func (l *MemoryLedger) IncrementUsage(_ context.Context, userID int64, day time.Time, modelKey string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := counterKey{userID, day.Format(DateLayout), modelKey}
	l.counters[key]++

	return l.counters[key], nil
}

func (l *MemoryLedger) GetUsage(_ context.Context, userID int64, day time.Time, modelKey string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.counters[counterKey{userID, day.Format(DateLayout), modelKey}], nil
}

func (l *MemoryLedger) GetTotalUsageForDay(_ context.Context, userID int64, day time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	date := day.Format(DateLayout)

	var total int64

	for key, count := range l.counters {
		if key.userID == userID && key.date == date {
			total += count
		}
	}

	return total, nil
}

func (l *MemoryLedger) UsageForDay(_ context.Context, userID int64, day time.Time) (map[string]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	date := day.Format(DateLayout)
	out := make(map[string]int64)

	for key, count := range l.counters {
		if key.userID == userID && key.date == date {
			out[key.modelKey] = count
		}
	}

	return out, nil
}

func (l *MemoryLedger) ResetUsage(_ context.Context, userID int64, day time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	date := day.Format(DateLayout)

	for key := range l.counters {
		if key.userID == userID && key.date == date {
			delete(l.counters, key)
		}
	}

	return nil
}
