// Package storagetest connects integration tests to a real Postgres.
package storagetest

import (
	"context"
	"os"
	"testing"

	"codeberg.org/luchgpt/server/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// opens DATABASE_URL with the schema applied, or skips the test
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := storage.NewPool(ctx, dsn, storage.DefaultPoolOptions())
	if err != nil {
		t.Fatalf("postgres not available: %v", err)
	}

	t.Cleanup(pool.Close)

	if err := storage.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	return pool
}

// inserts a bare user row and removes it (with everything it owns) after the test
func CreateUser(t *testing.T, pool *pgxpool.Pool) int64 {
	t.Helper()

	ctx := context.Background()

	var id int64
	if err := pool.QueryRow(ctx, `INSERT INTO users DEFAULT VALUES RETURNING id`).Scan(&id); err != nil {
		t.Fatalf("create user: %v", err)
	}

	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id) //nolint:errcheck // test cleanup
	})

	return id
}
