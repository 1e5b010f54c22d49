package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"points/internal/domain/point"
)

func TestTransactionLog_AppendAndList(t *testing.T) {
	ctx := context.Background()
	l := NewTransactionLog()
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	r1, err := l.Append(ctx, 1, 500, point.TransactionCharge, ts)
	require.NoError(t, err)
	r2, err := l.Append(ctx, 2, 70, point.TransactionCharge, ts)
	require.NoError(t, err)
	r3, err := l.Append(ctx, 1, 300, point.TransactionUse, ts.Add(time.Second))
	require.NoError(t, err)

	assert.Less(t, r1.ID, r2.ID)
	assert.Less(t, r2.ID, r3.ID)

	records, err := l.ListByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []point.TransactionRecord{r1, r3}, records)
}

func TestTransactionLog_ListUnknownAccount(t *testing.T) {
	records, err := NewTransactionLog().ListByAccount(context.Background(), 42)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestTransactionLog_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	l := NewTransactionLog()
	_, err := l.Append(ctx, 1, 10, point.TransactionCharge, time.Now())
	require.NoError(t, err)

	records, err := l.ListByAccount(ctx, 1)
	require.NoError(t, err)
	records[0].Amount = 999

	again, err := l.ListByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), again[0].Amount)
}

func TestTransactionLog_RejectsUnknownType(t *testing.T) {
	_, err := NewTransactionLog().Append(context.Background(), 1, 10, point.TransactionType("REFUND"), time.Now())
	assert.Error(t, err)
}

func TestTransactionLog_ConcurrentAppendsHaveUniqueIDs(t *testing.T) {
	ctx := context.Background()
	l := NewTransactionLog()

	const perAccount = 100
	var wg sync.WaitGroup
	for acct := point.AccountID(1); acct <= 4; acct++ {
		for i := 0; i < perAccount; i++ {
			wg.Add(1)
			go func(id point.AccountID) {
				defer wg.Done()
				_, err := l.Append(ctx, id, 1, point.TransactionCharge, time.Now())
				assert.NoError(t, err)
			}(acct)
		}
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for acct := point.AccountID(1); acct <= 4; acct++ {
		records, err := l.ListByAccount(ctx, acct)
		require.NoError(t, err)
		require.Len(t, records, perAccount)
		for i, r := range records {
			assert.False(t, seen[r.ID], "duplicate record id %d", r.ID)
			seen[r.ID] = true
			if i > 0 {
				assert.Less(t, records[i-1].ID, r.ID, "records must be in append order")
			}
		}
	}
}
