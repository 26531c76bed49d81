package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerUnderTest interface {
	Ledger
	Accounts
}

func newKey(prefix string) string {
	return prefix + "/" + uuid.New().String()
}

func runLedgerContract(t *testing.T, newLedger func(t *testing.T) ledgerUnderTest) {
	ctx := context.Background()

	t.Run("BuyInMovesWalletToEscrow", func(t *testing.T) {
		l := newLedger(t)
		user, table := uuid.New().String(), uuid.New().String()
		require.NoError(t, l.Deposit(ctx, user, 1000))

		id, err := l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 400, Key: newKey("buyin"), Kind: KindBuyIn})
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		balance, _ := l.Balance(ctx, user)
		escrow, _ := l.EscrowBalance(ctx, table)
		assert.Equal(t, int64(600), balance)
		assert.Equal(t, int64(400), escrow)
	})

	t.Run("InsufficientFundsLeavesBalances", func(t *testing.T) {
		l := newLedger(t)
		user, table := uuid.New().String(), uuid.New().String()
		require.NoError(t, l.Deposit(ctx, user, 100))

		_, err := l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 400, Key: newKey("buyin"), Kind: KindBuyIn})
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		balance, _ := l.Balance(ctx, user)
		escrow, _ := l.EscrowBalance(ctx, table)
		assert.Equal(t, int64(100), balance)
		assert.Equal(t, int64(0), escrow)
	})

	t.Run("DuplicateKeyHasOneEffect", func(t *testing.T) {
		l := newLedger(t)
		user, table := uuid.New().String(), uuid.New().String()
		require.NoError(t, l.Deposit(ctx, user, 1000))

		req := TransferRequest{UserID: user, TableID: table, Amount: 300, Key: newKey("buyin"), Kind: KindBuyIn}
		first, err := l.Transfer(ctx, req)
		require.NoError(t, err)

		second, err := l.Transfer(ctx, req)
		assert.ErrorIs(t, err, ErrDuplicateKey)
		assert.Equal(t, first, second)

		balance, _ := l.Balance(ctx, user)
		assert.Equal(t, int64(700), balance)
	})

	t.Run("CashOutReturnsEscrow", func(t *testing.T) {
		l := newLedger(t)
		user, table := uuid.New().String(), uuid.New().String()
		require.NoError(t, l.Deposit(ctx, user, 1000))

		_, err := l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 500, Key: newKey("buyin"), Kind: KindBuyIn})
		require.NoError(t, err)
		_, err = l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 700, Key: newKey("cashout"), Kind: KindCashOut})
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		_, err = l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 450, Key: newKey("cashout"), Kind: KindCashOut})
		require.NoError(t, err)

		balance, _ := l.Balance(ctx, user)
		escrow, _ := l.EscrowBalance(ctx, table)
		assert.Equal(t, int64(950), balance)
		assert.Equal(t, int64(50), escrow)
	})

	t.Run("PayoutIsJournalOnly", func(t *testing.T) {
		l := newLedger(t)
		user, table := uuid.New().String(), uuid.New().String()
		require.NoError(t, l.Deposit(ctx, user, 100))

		_, err := l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 80, Key: newKey("payout"), Kind: KindPayout})
		require.NoError(t, err)

		balance, _ := l.Balance(ctx, user)
		escrow, _ := l.EscrowBalance(ctx, table)
		assert.Equal(t, int64(100), balance)
		assert.Equal(t, int64(0), escrow)
	})

	t.Run("RollbackReversesAppliedBuyIn", func(t *testing.T) {
		l := newLedger(t)
		user, table := uuid.New().String(), uuid.New().String()
		require.NoError(t, l.Deposit(ctx, user, 1000))

		buyIn := newKey("buyin")
		_, err := l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 400, Key: buyIn, Kind: KindBuyIn})
		require.NoError(t, err)

		rollback, err := l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Key: newKey("rollback"), Kind: KindRollbackJoin, Supersedes: buyIn})
		require.NoError(t, err)

		again, err := l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Key: newKey("rollback"), Kind: KindRollbackJoin, Supersedes: buyIn})
		assert.ErrorIs(t, err, ErrDuplicateKey)
		assert.Equal(t, rollback, again)

		balance, _ := l.Balance(ctx, user)
		escrow, _ := l.EscrowBalance(ctx, table)
		assert.Equal(t, int64(1000), balance)
		assert.Equal(t, int64(0), escrow)
	})

	t.Run("RollbackBeforeBuyInRefusesLateBuyIn", func(t *testing.T) {
		l := newLedger(t)
		user, table := uuid.New().String(), uuid.New().String()
		require.NoError(t, l.Deposit(ctx, user, 1000))

		buyIn := newKey("buyin")
		_, err := l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Key: newKey("rollback"), Kind: KindRollbackJoin, Supersedes: buyIn})
		require.NoError(t, err)

		_, err = l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 400, Key: buyIn, Kind: KindBuyIn})
		assert.ErrorIs(t, err, ErrSuperseded)

		balance, _ := l.Balance(ctx, user)
		assert.Equal(t, int64(1000), balance)
	})

	t.Run("RefundStandsInForFailedCashOut", func(t *testing.T) {
		l := newLedger(t)
		user, table := uuid.New().String(), uuid.New().String()
		require.NoError(t, l.Deposit(ctx, user, 1000))
		_, err := l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 400, Key: newKey("buyin"), Kind: KindBuyIn})
		require.NoError(t, err)

		cashOut := newKey("cashout")
		_, err = l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 400, Key: newKey("refund"), Kind: KindRefund, Supersedes: cashOut})
		require.NoError(t, err)

		_, err = l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 400, Key: cashOut, Kind: KindCashOut})
		assert.ErrorIs(t, err, ErrSuperseded)

		balance, _ := l.Balance(ctx, user)
		escrow, _ := l.EscrowBalance(ctx, table)
		assert.Equal(t, int64(1000), balance)
		assert.Equal(t, int64(0), escrow)
	})

	t.Run("RefundAfterAppliedCashOutIsDuplicate", func(t *testing.T) {
		l := newLedger(t)
		user, table := uuid.New().String(), uuid.New().String()
		require.NoError(t, l.Deposit(ctx, user, 1000))
		_, err := l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 400, Key: newKey("buyin"), Kind: KindBuyIn})
		require.NoError(t, err)

		cashOut := newKey("cashout")
		original, err := l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 400, Key: cashOut, Kind: KindCashOut})
		require.NoError(t, err)

		id, err := l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 400, Key: newKey("refund"), Kind: KindRefund, Supersedes: cashOut})
		assert.ErrorIs(t, err, ErrDuplicateKey)
		assert.Equal(t, original, id)

		balance, _ := l.Balance(ctx, user)
		assert.Equal(t, int64(1000), balance)
	})

	t.Run("ConcurrentBuyInsNeverOverdraw", func(t *testing.T) {
		l := newLedger(t)
		user, table := uuid.New().String(), uuid.New().String()
		require.NoError(t, l.Deposit(ctx, user, 500))

		var wg sync.WaitGroup
		var succeeded int32
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := l.Transfer(ctx, TransferRequest{UserID: user, TableID: table, Amount: 100, Key: newKey("buyin"), Kind: KindBuyIn})
				if err == nil {
					atomic.AddInt32(&succeeded, 1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(5), succeeded)
		balance, _ := l.Balance(ctx, user)
		escrow, _ := l.EscrowBalance(ctx, table)
		assert.Equal(t, int64(0), balance)
		assert.Equal(t, int64(500), escrow)
	})

	t.Run("RejectsInvalidRequests", func(t *testing.T) {
		l := newLedger(t)
		_, err := l.Transfer(ctx, TransferRequest{UserID: "u", TableID: "t", Amount: 10, Kind: KindBuyIn})
		assert.ErrorIs(t, err, ErrInvalidTransfer)
		_, err = l.Transfer(ctx, TransferRequest{UserID: "u", TableID: "t", Key: "k", Kind: KindRollbackJoin})
		assert.ErrorIs(t, err, ErrInvalidTransfer)
		_, err = l.Transfer(ctx, TransferRequest{UserID: "u", TableID: "t", Key: "k", Amount: 10, Kind: Kind("gift")})
		assert.ErrorIs(t, err, ErrInvalidTransfer)
	})
}
