package confirmations

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestMemoryRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) (Repository, *clock) {
		c := &clock{now: time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)}
		return NewMemoryRepository().WithClock(c.Now), c
	})
}

// distinct per call so runs against a shared database do not collide
func uniqueEmail(name string) string {
	return fmt.Sprintf("%s+%d@example.com", name, time.Now().UnixNano())
}

func runRepositoryContract(t *testing.T, factory func(t *testing.T) (Repository, *clock)) {
	t.Run("correct code confirms once", func(t *testing.T) {
		repo, _ := factory(t)
		ctx := context.Background()

		email := uniqueEmail("someone")

		code, err := repo.Create(ctx, "  "+email+" ")
		require.NoError(t, err)
		assert.Equal(t, email, code.Email)

		require.NoError(t, repo.Verify(ctx, email, code.Code))
		assert.ErrorIs(t, repo.Verify(ctx, email, code.Code), ErrNotFound)
	})

	t.Run("wrong guesses burn the code", func(t *testing.T) {
		repo, _ := factory(t)
		ctx := context.Background()

		email := uniqueEmail("b")

		code, err := repo.Create(ctx, email)
		require.NoError(t, err)

		wrong := "000000"
		if code.Code == wrong {
			wrong = "111111"
		}

		for i := 0; i < MaxAttempts; i++ {
			assert.ErrorIs(t, repo.Verify(ctx, email, wrong), ErrInvalidCode)
		}

		assert.ErrorIs(t, repo.Verify(ctx, email, code.Code), ErrTooManyAttempts)
	})

	t.Run("expired codes are refused and cleaned up", func(t *testing.T) {
		repo, c := factory(t)
		ctx := context.Background()
		email := uniqueEmail("c")

		code, err := repo.Create(ctx, email)
		require.NoError(t, err)

		c.now = c.now.Add(CodeTTL + time.Second)
		assert.ErrorIs(t, repo.Verify(ctx, email, code.Code), ErrCodeExpired)

		removed, err := repo.DeleteExpired(ctx, c.now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, removed, int64(1))

		assert.ErrorIs(t, repo.Verify(ctx, email, code.Code), ErrNotFound)
	})

	t.Run("newest code wins", func(t *testing.T) {
		repo, c := factory(t)
		ctx := context.Background()
		email := uniqueEmail("d")

		_, err := repo.Create(ctx, email)
		require.NoError(t, err)

		c.now = c.now.Add(time.Second)
		latest, err := repo.Create(ctx, email)
		require.NoError(t, err)

		require.NoError(t, repo.Verify(ctx, email, latest.Code))
	})

	t.Run("unknown email", func(t *testing.T) {
		repo, _ := factory(t)
		assert.ErrorIs(t, repo.Verify(context.Background(), "nobody@example.com", "123456"), ErrNotFound)
	})
}

func TestGenerateCode(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)

	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
	}
}

func TestCleanupServiceStopsOnCancel(t *testing.T) {
	repo := NewMemoryRepository()
	service := NewCleanupService(repo, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		service.Start(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup service did not stop")
	}
}
