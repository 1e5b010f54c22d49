package memory

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"

	"points/internal/domain/point"
)

// AccountStore keeps balances in a sync.Map of immutable snapshots, so readers
// never wait on writers.
type AccountStore struct {
	clock    clock.Clock
	accounts sync.Map // point.AccountID -> point.Account
}

func NewAccountStore(clk clock.Clock) *AccountStore {
	if clk == nil {
		clk = clock.New()
	}
	return &AccountStore{clock: clk}
}

func (s *AccountStore) Get(_ context.Context, id point.AccountID) (point.Account, error) {
	if v, ok := s.accounts.Load(id); ok {
		return v.(point.Account), nil
	}
	return point.Account{ID: id}, nil
}

// Set relies on the caller holding the account lock; it is not safe for two
// concurrent writers on the same id.
func (s *AccountStore) Set(_ context.Context, id point.AccountID, balance int64) (point.Account, error) {
	now := s.clock.Now()
	if v, ok := s.accounts.Load(id); ok {
		if prev := v.(point.Account).UpdatedAt; now.Before(prev) {
			now = prev
		}
	}

	acct := point.Account{ID: id, Balance: balance, UpdatedAt: now}
	s.accounts.Store(id, acct)
	return acct, nil
}

// Restore reinstates prev exactly, bypassing the UpdatedAt clamp in Set.
func (s *AccountStore) Restore(_ context.Context, prev point.Account) error {
	if prev.IsNew() {
		s.accounts.Delete(prev.ID)
		return nil
	}
	s.accounts.Store(prev.ID, prev)
	return nil
}

// size returns the number of materialized accounts.
func (s *AccountStore) size() int {
	n := 0
	s.accounts.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
