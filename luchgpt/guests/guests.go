package guests

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repository struct {
	db *pgxpool.Pool
}

// creates a Postgres-backed guest tracker
func NewRepository(db *pgxpool.Pool) Tracker {
	return &repository{db: db}
}

func scanSession(row pgx.Row) (*Session, error) {
	var session Session

	err := row.Scan(
		&session.ID,
		&session.Token,
		&session.Identity,
		&session.RequestCount,
		&session.CreatedAt,
		&session.LastRequestAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *repository) GetOrCreateGuestSession(ctx context.Context, identity string) (*Session, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	session, err := scanSession(r.db.QueryRow(ctx, queryGetOrCreate, token, identity))
	if err != nil {
		return nil, fmt.Errorf("failed to get guest session: %w", err)
	}

	return session, nil
}

func (r *repository) IncrementGuestRequest(ctx context.Context, token string) (int64, error) {
	var count int64

	if err := r.db.QueryRow(ctx, queryIncrementRequest, token).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment guest requests: %w", err)
	}

	return count, nil
}

func (r *repository) GetByToken(ctx context.Context, token string) (*Session, error) {
	return scanSession(r.db.QueryRow(ctx, queryGetByToken, token))
}

// generates a cryptographically secure random session token
func GenerateToken() (string, error) {
	bytes := make([]byte, 16)

	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}

	return hex.EncodeToString(bytes), nil
}
