package point

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextBalance(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		amount  int64
		typ     TransactionType
		want    int64
		wantErr error
	}{
		{name: "charge", balance: 1000, amount: 400, typ: TransactionCharge, want: 1400},
		{name: "use", balance: 1000, amount: 400, typ: TransactionUse, want: 600},
		{name: "use to zero", balance: 100, amount: 100, typ: TransactionUse, want: 0},
		{name: "use more than balance", balance: 1000, amount: 1500, typ: TransactionUse, wantErr: ErrInsufficientBalance},
		{name: "zero amount", balance: 10, amount: 0, typ: TransactionCharge, wantErr: ErrInvalidAmount},
		{name: "negative amount", balance: 10, amount: -5, typ: TransactionUse, wantErr: ErrInvalidAmount},
		{name: "overflow", balance: math.MaxInt64 - 1, amount: 2, typ: TransactionCharge, wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextBalance(tt.balance, tt.amount, tt.typ)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextBalance_UnknownType(t *testing.T) {
	_, err := nextBalance(10, 1, TransactionType("REFUND"))
	assert.Error(t, err)
}

func TestReplay(t *testing.T) {
	records := []TransactionRecord{
		{ID: 1, Amount: 500, Type: TransactionCharge},
		{ID: 2, Amount: 300, Type: TransactionUse},
		{ID: 3, Amount: 50, Type: TransactionCharge},
	}

	balance, err := Replay(records)
	require.NoError(t, err)
	assert.Equal(t, int64(250), balance)

	balance, err = Replay(nil)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestReplay_RejectsNegativeTrajectory(t *testing.T) {
	_, err := Replay([]TransactionRecord{
		{ID: 1, Amount: 100, Type: TransactionCharge},
		{ID: 2, Amount: 200, Type: TransactionUse},
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestTransactionTypeValid(t *testing.T) {
	assert.True(t, TransactionCharge.Valid())
	assert.True(t, TransactionUse.Valid())
	assert.False(t, TransactionType("").Valid())
	assert.False(t, TransactionType("charge").Valid())
}

func TestAccountIsNew(t *testing.T) {
	assert.True(t, Account{ID: 1}.IsNew())
}
