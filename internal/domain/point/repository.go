package point

import (
	"context"
	"time"
)

// AccountStore holds the current balance of every account.
// This interface is defined in the domain layer, but implemented in the infrastructure layer
type AccountStore interface {
	// Get returns the current snapshot. An unknown id yields a zero-balance
	// account and must not create an entry.
	Get(ctx context.Context, id AccountID) (Account, error)

	// Set overwrites the balance and refreshes UpdatedAt without validating it.
	// Only Service calls Set, and only while holding the account lock.
	Set(ctx context.Context, id AccountID, balance int64) (Account, error)

	// Restore puts back a snapshot previously returned by Get, UpdatedAt
	// included. Restoring a new account removes its entry.
	Restore(ctx context.Context, prev Account) error
}

// TransactionLog is the append-only history of committed mutations.
type TransactionLog interface {
	// Append stores a new record and assigns it the next log-wide id.
	Append(ctx context.Context, id AccountID, amount int64, typ TransactionType, ts time.Time) (TransactionRecord, error)

	// ListByAccount returns the account's records oldest first.
	ListByAccount(ctx context.Context, id AccountID) ([]TransactionRecord, error)
}
