package breaker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"points/internal/domain/point"
)

type Settings struct {
	// ConsecutiveFailures trips the breaker. Defaults to 5.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// Guard fails reads fast with point.ErrStoreUnavailable while the backing
// store is down. Only Get and ListByAccount pass through the breaker: once
// a mutation has read its account it must be able to write and, on a failed
// append, restore the previous balance.
type Guard struct {
	cb *gobreaker.CircuitBreaker
}

func NewGuard(name string, s Settings) *Guard {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	return &Guard{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about store health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})}
}

func (g *Guard) State() gobreaker.State {
	return g.cb.State()
}

func (g *Guard) do(fn func() (any, error)) (any, error) {
	v, err := g.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", point.ErrStoreUnavailable, err)
	}
	return v, err
}

// AccountStore guards an inner point.AccountStore.
type AccountStore struct {
	inner point.AccountStore
	guard *Guard
}

func NewAccountStore(inner point.AccountStore, guard *Guard) *AccountStore {
	return &AccountStore{inner: inner, guard: guard}
}

func (s *AccountStore) Get(ctx context.Context, id point.AccountID) (point.Account, error) {
	v, err := s.guard.do(func() (any, error) {
		return s.inner.Get(ctx, id)
	})
	if err != nil {
		return point.Account{}, err
	}
	return v.(point.Account), nil
}

func (s *AccountStore) Set(ctx context.Context, id point.AccountID, balance int64) (point.Account, error) {
	return s.inner.Set(ctx, id, balance)
}

func (s *AccountStore) Restore(ctx context.Context, prev point.Account) error {
	return s.inner.Restore(ctx, prev)
}

// TransactionLog guards an inner point.TransactionLog.
type TransactionLog struct {
	inner point.TransactionLog
	guard *Guard
}

func NewTransactionLog(inner point.TransactionLog, guard *Guard) *TransactionLog {
	return &TransactionLog{inner: inner, guard: guard}
}

func (l *TransactionLog) Append(ctx context.Context, id point.AccountID, amount int64, typ point.TransactionType, ts time.Time) (point.TransactionRecord, error) {
	return l.inner.Append(ctx, id, amount, typ, ts)
}

func (l *TransactionLog) ListByAccount(ctx context.Context, id point.AccountID) ([]point.TransactionRecord, error) {
	v, err := l.guard.do(func() (any, error) {
		return l.inner.ListByAccount(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.([]point.TransactionRecord), nil
}
