package point

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int // holders plus waiters
}

// AccountLock hands out one mutual-exclusion region per account id.
// Entries are created on first use and dropped once nobody holds or waits on them.
type AccountLock struct {
	mu      sync.Mutex
	entries map[AccountID]*lockEntry
}

// NewAccountLock creates an empty lock registry.
func NewAccountLock() *AccountLock {
	return &AccountLock{entries: make(map[AccountID]*lockEntry)}
}

// Acquire blocks until the lock for id is held or ctx is done.
// A context deadline is reported as ErrLockTimeout; the caller must invoke
// release exactly once after a successful Acquire.
func (l *AccountLock) Acquire(ctx context.Context, id AccountID) (release func(), err error) {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.unref(id, e)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("account %d: %w", id, ErrLockTimeout)
		}
		return nil, fmt.Errorf("account %d: acquire lock: %w", id, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			l.unref(id, e)
		})
	}, nil
}

func (l *AccountLock) unref(id AccountID, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 && l.entries[id] == e {
		delete(l.entries, id)
	}
}

// size returns the number of live lock entries.
func (l *AccountLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
