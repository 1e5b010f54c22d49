package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"points/internal/domain/point"
)

type accountHistory struct {
	mu      sync.RWMutex
	records []point.TransactionRecord
}

// TransactionLog is an append-only in-memory history. Record ids come from a
// single counter shared by all accounts.
type TransactionLog struct {
	nextID   atomic.Int64
	accounts sync.Map // point.AccountID -> *accountHistory
}

func NewTransactionLog() *TransactionLog {
	return &TransactionLog{}
}

func (l *TransactionLog) Append(_ context.Context, id point.AccountID, amount int64, typ point.TransactionType, ts time.Time) (point.TransactionRecord, error) {
	if !typ.Valid() {
		return point.TransactionRecord{}, fmt.Errorf("unknown transaction type %q", typ)
	}

	v, _ := l.accounts.LoadOrStore(id, &accountHistory{})
	h := v.(*accountHistory)

	h.mu.Lock()
	defer h.mu.Unlock()

	rec := point.TransactionRecord{
		ID:        l.nextID.Add(1),
		AccountID: id,
		Amount:    amount,
		Type:      typ,
		Timestamp: ts,
	}
	h.records = append(h.records, rec)
	return rec, nil
}

func (l *TransactionLog) ListByAccount(_ context.Context, id point.AccountID) ([]point.TransactionRecord, error) {
	v, ok := l.accounts.Load(id)
	if !ok {
		return []point.TransactionRecord{}, nil
	}
	h := v.(*accountHistory)

	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.records), nil
}
