package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"

	"points/internal/domain/point"
)

// AccountStore implements point.AccountStore for PostgreSQL
type AccountStore struct {
	db    *DB
	clock clock.Clock
}

// NewAccountStore creates a new PostgreSQL account store
func NewAccountStore(db *DB, clk clock.Clock) *AccountStore {
	if clk == nil {
		clk = clock.New()
	}
	return &AccountStore{db: db, clock: clk}
}

// Get retrieves an account by its ID. A missing row is a zero-balance account.
func (s *AccountStore) Get(ctx context.Context, id point.AccountID) (point.Account, error) {
	query := `
		SELECT id, balance, updated_at
		FROM point_accounts
		WHERE id = $1
	`

	acct := point.Account{ID: id}
	err := s.db.QueryRowContext(ctx, query, int64(id)).Scan(&acct.ID, &acct.Balance, &acct.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return point.Account{ID: id}, nil
	}
	if err != nil {
		return point.Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	return acct, nil
}

// Set upserts the balance. updated_at never moves backwards.
func (s *AccountStore) Set(ctx context.Context, id point.AccountID, balance int64) (point.Account, error) {
	query := `
		INSERT INTO point_accounts (id, balance, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET balance = EXCLUDED.balance,
		    updated_at = GREATEST(point_accounts.updated_at, EXCLUDED.updated_at)
		RETURNING id, balance, updated_at
	`

	var acct point.Account
	err := s.db.QueryRowContext(ctx, query, int64(id), balance, s.clock.Now().UTC()).
		Scan(&acct.ID, &acct.Balance, &acct.UpdatedAt)
	if err != nil {
		return point.Account{}, fmt.Errorf("failed to set account balance: %w", err)
	}
	return acct, nil
}

// Restore writes prev back verbatim. A new account's row is deleted.
func (s *AccountStore) Restore(ctx context.Context, prev point.Account) error {
	if prev.IsNew() {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM point_accounts WHERE id = $1`, int64(prev.ID)); err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		return nil
	}

	query := `
		UPDATE point_accounts
		SET balance = $2, updated_at = $3
		WHERE id = $1
	`
	if _, err := s.db.ExecContext(ctx, query, int64(prev.ID), prev.Balance, prev.UpdatedAt); err != nil {
		return fmt.Errorf("failed to restore account: %w", err)
	}
	return nil
}
