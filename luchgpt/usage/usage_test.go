package usage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerFactory func(t *testing.T) (Ledger, func() int64)

func TestMemoryLedger(t *testing.T) {
	runLedgerContract(t, func(t *testing.T) (Ledger, func() int64) {
		var next int64

		return NewMemoryLedger(), func() int64 {
			next++
			return next
		}
	})
}

func runLedgerContract(t *testing.T, factory ledgerFactory) {
	day := time.Date(2025, 6, 14, 15, 4, 5, 0, time.UTC)

	t.Run("increment returns the new count", func(t *testing.T) {
		ledger, newUser := factory(t)
		ctx := context.Background()
		userID := newUser()

		for want := int64(1); want <= 3; want++ {
			got, err := ledger.IncrementUsage(ctx, userID, day, "fast")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		ledger, newUser := factory(t)
		ctx := context.Background()
		userID := newUser()

		const n = 50

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := ledger.IncrementUsage(ctx, userID, day, "smart")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		count, err := ledger.GetUsage(ctx, userID, day, "smart")
		require.NoError(t, err)
		assert.Equal(t, int64(n), count)
	})

	t.Run("reads never create counters", func(t *testing.T) {
		ledger, newUser := factory(t)
		ctx := context.Background()
		userID := newUser()

		count, err := ledger.GetUsage(ctx, userID, day, "vision")
		require.NoError(t, err)
		assert.Zero(t, count)

		breakdown, err := ledger.UsageForDay(ctx, userID, day)
		require.NoError(t, err)
		assert.Empty(t, breakdown)
	})

	t.Run("total sums models of one day only", func(t *testing.T) {
		ledger, newUser := factory(t)
		ctx := context.Background()
		userID := newUser()

		for i := 0; i < 2; i++ {
			_, err := ledger.IncrementUsage(ctx, userID, day, "fast")
			require.NoError(t, err)
		}
		_, err := ledger.IncrementUsage(ctx, userID, day, "smart")
		require.NoError(t, err)
		_, err = ledger.IncrementUsage(ctx, userID, day.AddDate(0, 0, 1), "fast")
		require.NoError(t, err)

		total, err := ledger.GetTotalUsageForDay(ctx, userID, day)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)

		breakdown, err := ledger.UsageForDay(ctx, userID, day)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"fast": 2, "smart": 1}, breakdown)
	})

	t.Run("reset clears one user-day", func(t *testing.T) {
		ledger, newUser := factory(t)
		ctx := context.Background()
		userID, other := newUser(), newUser()

		_, err := ledger.IncrementUsage(ctx, userID, day, "fast")
		require.NoError(t, err)
		_, err = ledger.IncrementUsage(ctx, other, day, "fast")
		require.NoError(t, err)

		require.NoError(t, ledger.ResetUsage(ctx, userID, day))

		total, err := ledger.GetTotalUsageForDay(ctx, userID, day)
		require.NoError(t, err)
		assert.Zero(t, total)

		kept, err := ledger.GetUsage(ctx, other, day, "fast")
		require.NoError(t, err)
		assert.Equal(t, int64(1), kept)

		again, err := ledger.IncrementUsage(ctx, userID, day, "fast")
		require.NoError(t, err)
		assert.Equal(t, int64(1), again)
	})
}
