package point

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Domain errors
var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrLockTimeout         = errors.New("timed out waiting for account lock")
	ErrInvalidAccountID    = errors.New("invalid account id")
	ErrStoreUnavailable    = errors.New("point store unavailable")
	ErrRestoreFailed       = errors.New("failed to restore account after history append error")
)

// AccountID identifies an account. It is supplied by callers and never generated here.
type AccountID int64

// TransactionType is the direction of a balance change.
type TransactionType string

const (
	TransactionCharge TransactionType = "CHARGE"
	TransactionUse    TransactionType = "USE"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionCharge || t == TransactionUse
}

// Account is a snapshot of an account's balance.
// UpdatedAt is zero for an account that has never been written.
type Account struct {
	ID        AccountID `json:"id"`
	Balance   int64     `json:"point"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsNew reports whether the account has never been persisted.
func (a Account) IsNew() bool {
	return a.UpdatedAt.IsZero()
}

// TransactionRecord is one immutable history entry.
type TransactionRecord struct {
	ID        int64           `json:"id"`
	AccountID AccountID       `json:"userId"`
	Amount    int64           `json:"amount"`
	Type      TransactionType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
}

// Apply returns the balance that results from applying r to balance.
func (r TransactionRecord) Apply(balance int64) (int64, error) {
	next, err := nextBalance(balance, r.Amount, r.Type)
	if err != nil {
		return 0, fmt.Errorf("record %d: %w", r.ID, err)
	}
	return next, nil
}

// nextBalance computes the post-mutation balance, refusing to go below zero.
func nextBalance(balance, amount int64, typ TransactionType) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	switch typ {
	case TransactionCharge:
		if balance > math.MaxInt64-amount {
			return 0, fmt.Errorf("%w: balance would overflow", ErrInvalidAmount)
		}
		return balance + amount, nil
	case TransactionUse:
		if balance < amount {
			return 0, ErrInsufficientBalance
		}
		return balance - amount, nil
	default:
		return 0, fmt.Errorf("unknown transaction type %q", typ)
	}
}

// Replay rebuilds a balance by applying records in order starting from zero.
func Replay(records []TransactionRecord) (int64, error) {
	var balance int64
	for _, r := range records {
		next, err := r.Apply(balance)
		if err != nil {
			return 0, err
		}
		balance = next
	}
	return balance, nil
}
