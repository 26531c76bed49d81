package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrDuplicateKey      = errors.New("ledger: duplicate key")
	ErrUnavailable       = errors.New("ledger: unavailable")
	ErrSuperseded        = errors.New("ledger: transfer superseded")
	ErrInvalidTransfer   = errors.New("ledger: invalid transfer")
)

type Kind string

const (
	KindBuyIn        Kind = "buy_in"        // wallet -> table escrow
	KindCashOut      Kind = "cash_out"      // table escrow -> wallet
	KindPayout       Kind = "payout"        // hand award, recorded against the escrow only
	KindRollbackJoin Kind = "rollback_join" // reverses a buy-in named by Supersedes
	KindRefund       Kind = "refund"        // escrow -> wallet in place of a failed cash-out
)

type TransferRequest struct {
	UserID     string `json:"user_id"`
	TableID    string `json:"table_id"`
	Amount     int64  `json:"amount"`
	Key        string `json:"key"`
	Kind       Kind   `json:"kind"`
	Supersedes string `json:"supersedes,omitempty"` // key of the transfer this one compensates
}

func (r TransferRequest) Validate() error {
	if r.Key == "" || r.UserID == "" || r.TableID == "" || r.Amount < 0 {
		return ErrInvalidTransfer
	}

	switch r.Kind {
	case KindBuyIn, KindCashOut, KindPayout:
		if r.Amount == 0 {
			return ErrInvalidTransfer
		}
	case KindRollbackJoin, KindRefund:
		if r.Supersedes == "" {
			return ErrInvalidTransfer
		}
	default:
		return ErrInvalidTransfer
	}

	return nil
}

type Transfer struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	Kind       Kind      `json:"kind"`
	UserID     string    `json:"user_id"`
	TableID    string    `json:"table_id"`
	Amount     int64     `json:"amount"`
	Supersedes string    `json:"supersedes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Ledger moves chips between wallets and table escrow. Every key takes effect at
// most once: a repeated key fails with ErrDuplicateKey and returns the ID recorded
// the first time.
type Ledger interface {
	Transfer(ctx context.Context, req TransferRequest) (string, error)
}

// Accounts exposes balances for seeding wallets and auditing escrow.
type Accounts interface {
	Deposit(ctx context.Context, userID string, amount int64) error
	Balance(ctx context.Context, userID string) (int64, error)
	EscrowBalance(ctx context.Context, tableID string) (int64, error)
}

// compensation decides what a transfer with Supersedes set does, given whether the
// original already took effect.
type compensation int

const (
	compensateApply     compensation = iota // original never applied: apply own effect
	compensateReverse                       // undo the applied original
	compensateDuplicate                     // the effect already exists
)

func planCompensation(kind Kind, originalApplied bool) compensation {
	if !originalApplied {
		return compensateApply
	}
	if kind == KindRollbackJoin {
		return compensateReverse
	}
	return compensateDuplicate
}
