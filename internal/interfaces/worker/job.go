package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"points/internal/domain/point"
)

// Job is a unit of work the pool can execute.
type Job interface {
	Execute(ctx context.Context) error
	AccountID() int64
	Description() string
}

// Mutator is the part of point.Service a MutationJob drives.
type Mutator interface {
	Charge(ctx context.Context, id point.AccountID, amount int64) (point.Account, error)
	Use(ctx context.Context, id point.AccountID, amount int64) (point.Account, error)
}

// MutationJob applies a single charge or use and reports the outcome to a
// Tally.
type MutationJob struct {
	points  Mutator
	account point.AccountID
	amount  int64
	typ     point.TransactionType
	tally   *Tally
}

func NewMutationJob(points Mutator, id point.AccountID, amount int64, typ point.TransactionType, tally *Tally) *MutationJob {
	return &MutationJob{points: points, account: id, amount: amount, typ: typ, tally: tally}
}

func (j *MutationJob) Execute(ctx context.Context) error {
	var err error
	switch j.typ {
	case point.TransactionCharge:
		_, err = j.points.Charge(ctx, j.account, j.amount)
	case point.TransactionUse:
		_, err = j.points.Use(ctx, j.account, j.amount)
	default:
		err = fmt.Errorf("unknown transaction type %q", j.typ)
	}

	if j.tally != nil {
		j.tally.record(j.account, j.signedAmount(), err)
	}
	// A rejected use is an expected business outcome, not a job failure.
	if errors.Is(err, point.ErrInsufficientBalance) {
		return nil
	}
	return err
}

func (j *MutationJob) signedAmount() int64 {
	if j.typ == point.TransactionUse {
		return -j.amount
	}
	return j.amount
}

func (j *MutationJob) AccountID() int64 {
	return int64(j.account)
}

func (j *MutationJob) Description() string {
	return fmt.Sprintf("%s %d", j.typ, j.amount)
}

// Tally accumulates per-account net deltas of successful mutations so a run
// can be checked against the stored balances afterwards.
type Tally struct {
	applied      sync.Map // point.AccountID -> *atomic.Int64
	succeeded    atomic.Int64
	insufficient atomic.Int64
	timedOut     atomic.Int64
	failed       atomic.Int64
}

func NewTally() *Tally {
	return &Tally{}
}

func (t *Tally) record(id point.AccountID, delta int64, err error) {
	switch {
	case err == nil:
		t.succeeded.Add(1)
		v, _ := t.applied.LoadOrStore(id, new(atomic.Int64))
		v.(*atomic.Int64).Add(delta)
	case errors.Is(err, point.ErrInsufficientBalance):
		t.insufficient.Add(1)
	case errors.Is(err, point.ErrLockTimeout):
		t.timedOut.Add(1)
	default:
		t.failed.Add(1)
	}
}

// Net returns the summed delta of successful mutations on id.
func (t *Tally) Net(id point.AccountID) int64 {
	v, ok := t.applied.Load(id)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

type TallySummary struct {
	Succeeded    int64
	Insufficient int64
	TimedOut     int64
	Failed       int64
}

func (t *Tally) Summary() TallySummary {
	return TallySummary{
		Succeeded:    t.succeeded.Load(),
		Insufficient: t.insufficient.Load(),
		TimedOut:     t.timedOut.Load(),
		Failed:       t.failed.Load(),
	}
}
