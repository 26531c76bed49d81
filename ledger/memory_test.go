package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedgerContract(t *testing.T) {
	runLedgerContract(t, func(t *testing.T) ledgerUnderTest {
		return NewMemory()
	})
}

func TestMemory_FailNext(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()
	require.NoError(t, l.Deposit(ctx, "alice", 500))

	l.FailNext(2, ErrUnavailable)

	req := TransferRequest{UserID: "alice", TableID: "t1", Amount: 200, Key: "buyin/alice/1", Kind: KindBuyIn}
	_, err := l.Transfer(ctx, req)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = l.Transfer(ctx, req)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = l.Transfer(ctx, req)
	assert.NoError(t, err)

	balance, _ := l.Balance(ctx, "alice")
	assert.Equal(t, int64(300), balance)
	assert.Len(t, l.Transfers(), 1)
}

func TestMemory_CancelledContextIsUnavailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().Transfer(ctx, TransferRequest{UserID: "a", TableID: "t", Amount: 1, Key: "k", Kind: KindPayout})
	assert.ErrorIs(t, err, ErrUnavailable)
}
