package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codeberg.org/luchgpt/server/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repository struct {
	db *pgxpool.Pool
}

// creates a new user repository
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func scanUser(row pgx.Row) (*User, error) {
	var user User

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.EmailVerified,
		&user.PasswordHash,
		&user.Tier,
		&user.SubscriptionExpiresAt,
		&user.DefaultModelKey,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}

// finds a user by their ID
func (r *repository) FindByID(ctx context.Context, userID int64) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, queryFindByID, userID))
}

// finds a user by email
func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, queryFindByEmail, email))
}

// returns the user bound to an external account, creating both on first contact
func (r *repository) FindOrCreateByAccount(ctx context.Context, provider, providerID string) (*User, error) {
	return r.findOrCreate(ctx, provider, providerID, nil)
}

// like FindOrCreateByAccount but for providers that vouch for the email (OAuth)
func (r *repository) FindOrCreateVerified(ctx context.Context, provider, providerID, email string) (*User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, queryFindByAccount, provider, providerID))
	if err == nil || !errors.Is(err, ErrNotFound) {
		return user, err
	}

	// an existing email registration adopts the new account
	user, err = r.MarkEmailVerified(ctx, email)
	if err == nil {
		if err := r.LinkAccount(ctx, user.ID, provider, providerID); err != nil {
			return nil, err
		}

		return user, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	return r.findOrCreate(ctx, provider, providerID, &email)
}

// two concurrent first contacts race on the account's unique key; the loser retries the lookup
func (r *repository) findOrCreate(ctx context.Context, provider, providerID string, email *string) (*User, error) {
	for attempt := 0; attempt < 2; attempt++ {
		user, err := scanUser(r.db.QueryRow(ctx, queryFindByAccount, provider, providerID))
		if err == nil {
			return user, nil
		}

		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("failed to find account: %w", err)
		}

		user, created, err := r.createWithAccount(ctx, provider, providerID, email)
		if err != nil {
			return nil, err
		}

		if created {
			return user, nil
		}
	}

	return nil, fmt.Errorf("failed to resolve %s account %s", provider, providerID)
}

func (r *repository) createWithAccount(ctx context.Context, provider, providerID string, email *string) (*User, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("failed to rollback transaction", "error", err)
		}
	}()

	user, err := scanUser(tx.QueryRow(ctx, queryInsertUser, email, email != nil))
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert user: %w", err)
	}

	var ownerID int64

	err = tx.QueryRow(ctx, queryInsertAccount, user.ID, provider, providerID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		// someone else bound the account first
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to insert account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, true, nil
}

// stores a pending email registration; re-registering an unverified email replaces the password
func (r *repository) Register(ctx context.Context, email, passwordHash string) (*User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, queryRegister, email, passwordHash))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrEmailTaken
	}

	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	return user, nil
}

// marks the email as confirmed
func (r *repository) MarkEmailVerified(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, queryVerifyEmail, email))
}

// binds an external account to the user, moving it away from any previous owner
func (r *repository) LinkAccount(ctx context.Context, userID int64, provider, providerID string) error {
	if _, err := r.db.Exec(ctx, queryLinkAccount, userID, provider, providerID); err != nil {
		return fmt.Errorf("failed to link account: %w", err)
	}

	return nil
}

// counts the user's accounts for a provider
func (r *repository) CountAccounts(ctx context.Context, userID int64, provider string) (int, error) {
	var count int

	if err := r.db.QueryRow(ctx, queryCountAccounts, userID, provider).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return count, nil
}

// sets the subscription tier and expiry
func (r *repository) SetSubscription(ctx context.Context, userID int64, tier Tier, expiresAt *time.Time) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, querySetSubscription, userID, tier, expiresAt))
}
