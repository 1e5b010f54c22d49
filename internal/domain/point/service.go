package point

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	pointTracer         = otel.Tracer("points/point")
	pointMeter          = otel.Meter("points/point")
	mutationTotal, _    = pointMeter.Int64Counter("points.mutation.total", metric.WithDescription("Balance mutations by operation and outcome"))
	mutationDuration, _ = pointMeter.Float64Histogram("points.mutation.duration", metric.WithDescription("Balance mutation duration in seconds"), metric.WithUnit("s"))
	lockWaitDuration, _ = pointMeter.Float64Histogram("points.lock.wait.duration", metric.WithDescription("Time spent waiting for an account lock in seconds"), metric.WithUnit("s"))
)

// Config tunes the Service.
type Config struct {
	// LockTimeout bounds the lock wait when the caller's context has no
	// deadline of its own. Zero means wait indefinitely.
	LockTimeout time.Duration

	// MaterializeOnRead makes Query persist a zero-balance entry for an
	// unknown account. No history record is written for it.
	MaterializeOnRead bool
}

// Service is the only component allowed to change balances or append history.
// Every mutation runs read-validate-write-log under the account's lock.
type Service struct {
	store   AccountStore
	history TransactionLog
	locks   *AccountLock
	cfg     Config
}

// NewService creates a new point service
func NewService(store AccountStore, history TransactionLog, cfg Config) *Service {
	return &Service{
		store:   store,
		history: history,
		locks:   NewAccountLock(),
		cfg:     cfg,
	}
}

// Charge increases the balance of id by amount.
func (s *Service) Charge(ctx context.Context, id AccountID, amount int64) (Account, error) {
	return s.mutate(ctx, id, amount, TransactionCharge)
}

// Use decreases the balance of id by amount. It fails with ErrInsufficientBalance
// and changes nothing if the balance would drop below zero.
func (s *Service) Use(ctx context.Context, id AccountID, amount int64) (Account, error) {
	return s.mutate(ctx, id, amount, TransactionUse)
}

// Query returns the current snapshot without taking the account lock.
func (s *Service) Query(ctx context.Context, id AccountID) (Account, error) {
	acct, err := s.store.Get(ctx, id)
	if err != nil {
		return Account{}, fmt.Errorf("read account %d: %w", id, err)
	}
	if !s.cfg.MaterializeOnRead || !acct.IsNew() {
		return acct, nil
	}
	return s.materialize(ctx, id)
}

// History returns the account's records oldest first.
func (s *Service) History(ctx context.Context, id AccountID) ([]TransactionRecord, error) {
	records, err := s.history.ListByAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list history for account %d: %w", id, err)
	}
	return records, nil
}

func (s *Service) mutate(ctx context.Context, id AccountID, amount int64, typ TransactionType) (Account, error) {
	op := strings.ToLower(string(typ))
	ctx, span := pointTracer.Start(ctx, "point."+op, trace.WithAttributes(
		attribute.Int64("point.account_id", int64(id)),
		attribute.Int64("point.amount", amount),
	))
	defer span.End()

	start := time.Now()
	acct, err := s.apply(ctx, id, amount, typ)

	outcome := outcomeOf(err)
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	)
	mutationTotal.Add(ctx, 1, attrs)
	mutationDuration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		span.RecordError(err)
		if outcome == "error" {
			span.SetStatus(codes.Error, err.Error())
		}
		return Account{}, err
	}
	span.SetAttributes(attribute.Int64("point.balance", acct.Balance))
	return acct, nil
}

func (s *Service) apply(ctx context.Context, id AccountID, amount int64, typ TransactionType) (Account, error) {
	if amount <= 0 {
		return Account{}, ErrInvalidAmount
	}

	release, err := s.acquire(ctx, id)
	if err != nil {
		return Account{}, err
	}
	defer release()

	// The critical section runs to completion once entered.
	ctx = context.WithoutCancel(ctx)

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Account{}, fmt.Errorf("read account %d: %w", id, err)
	}

	next, err := nextBalance(current.Balance, amount, typ)
	if err != nil {
		return Account{}, err
	}

	updated, err := s.store.Set(ctx, id, next)
	if err != nil {
		return Account{}, fmt.Errorf("write account %d: %w", id, err)
	}

	if _, err := s.history.Append(ctx, id, amount, typ, updated.UpdatedAt); err != nil {
		if rbErr := s.store.Restore(ctx, current); rbErr != nil {
			log.Printf("Error restoring account %d to balance %d after failed history append: %v", id, current.Balance, rbErr)
			return Account{}, fmt.Errorf("account %d: %w: %w (append: %v)", id, ErrRestoreFailed, rbErr, err)
		}
		return Account{}, fmt.Errorf("append history for account %d: %w", id, err)
	}

	return updated, nil
}

// materialize persists a zero-balance entry for an account that has never been written.
func (s *Service) materialize(ctx context.Context, id AccountID) (Account, error) {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return Account{}, err
	}
	defer release()

	ctx = context.WithoutCancel(ctx)

	acct, err := s.store.Get(ctx, id)
	if err != nil {
		return Account{}, fmt.Errorf("read account %d: %w", id, err)
	}
	if !acct.IsNew() {
		return acct, nil
	}
	acct, err = s.store.Set(ctx, id, 0)
	if err != nil {
		return Account{}, fmt.Errorf("materialize account %d: %w", id, err)
	}
	return acct, nil
}

func (s *Service) acquire(ctx context.Context, id AccountID) (func(), error) {
	if _, ok := ctx.Deadline(); !ok && s.cfg.LockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LockTimeout)
		defer cancel()
	}

	start := time.Now()
	release, err := s.locks.Acquire(ctx, id)
	lockWaitDuration.Record(ctx, time.Since(start).Seconds())
	return release, err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, ErrRestoreFailed):
		return "restore_failed"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
