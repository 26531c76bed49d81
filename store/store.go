package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrIntentNotFound = errors.New("store: intent not found")
)

type BuyInRecord struct {
	Key       string    `json:"key"`
	TableID   string    `json:"table_id"`
	SeatID    int       `json:"seat_id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// IntentRecord is the durable copy of a settlement intent and its latest outcome.
type IntentRecord struct {
	Key        string    `json:"key"`
	Kind       string    `json:"kind"`
	TableID    string    `json:"table_id"`
	SeatID     int       `json:"seat_id"`
	UserID     string    `json:"user_id"`
	Amount     int64     `json:"amount"`
	HandNo     uint64    `json:"hand_no"`
	Supersedes string    `json:"supersedes,omitempty"`
	Status     string    `json:"status"`
	Terminal   bool      `json:"terminal"` // no further ledger work will happen
	TransferID string    `json:"transfer_id,omitempty"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
	ValidUntil time.Time `json:"valid_until"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store persists what a table needs to survive a restart.
type Store interface {
	RecordBuyIn(ctx context.Context, record BuyInRecord) error
	ListBuyIns(ctx context.Context, tableID string) ([]BuyInRecord, error)

	SaveIntent(ctx context.Context, record IntentRecord) error
	GetIntent(ctx context.Context, key string) (IntentRecord, error)
	ListIntents(ctx context.Context, tableID string) ([]IntentRecord, error)
	ListUnsettledIntents(ctx context.Context, tableID string) ([]IntentRecord, error)

	SaveButton(ctx context.Context, tableID string, seatID int) error
	LoadButton(ctx context.Context, tableID string) (int, bool, error)
}
