package point

import (
	"context"
	"fmt"
)

// AuditResult compares a stored balance with the balance replayed from history.
type AuditResult struct {
	Account  Account
	Records  int
	Replayed int64
	// ReplayErr is set when the history itself is invalid, e.g. a USE that
	// would have taken the running balance below zero.
	ReplayErr error
}

func (r AuditResult) Consistent() bool {
	return r.ReplayErr == nil && r.Replayed == r.Account.Balance
}

// Audit reads the snapshot and history of id under the account lock, so no
// mutation can land between the two reads, and replays the history.
func (s *Service) Audit(ctx context.Context, id AccountID) (AuditResult, error) {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return AuditResult{}, err
	}
	defer release()

	acct, err := s.store.Get(ctx, id)
	if err != nil {
		return AuditResult{}, fmt.Errorf("read account %d: %w", id, err)
	}
	records, err := s.history.ListByAccount(ctx, id)
	if err != nil {
		return AuditResult{}, fmt.Errorf("list history for account %d: %w", id, err)
	}

	replayed, replayErr := Replay(records)
	return AuditResult{
		Account:   acct,
		Records:   len(records),
		Replayed:  replayed,
		ReplayErr: replayErr,
	}, nil
}
