package escrow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/weedbox/holdemtable/ledger"
	"github.com/weedbox/holdemtable/store"
)

type Status string

const (
	StatusPending           Status = "pending"
	StatusConfirmed         Status = "confirmed"
	StatusFailed            Status = "failed"
	StatusRollbackPending   Status = "rollback_pending"
	StatusRollbackConfirmed Status = "rollback_confirmed"
	StatusFatalStuck        Status = "fatal_stuck"
)

// Terminal reports whether no further ledger work will happen for the intent.
// FatalStuck is terminal for the adapter; an operator takes over from there.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusRollbackConfirmed, StatusFatalStuck:
		return true
	}
	return false
}

// Intent is one requested chip movement between a seat and its wallet.
type Intent struct {
	Key        string      `json:"key"`
	Kind       ledger.Kind `json:"kind"`
	TableID    string      `json:"table_id"`
	SeatID     int         `json:"seat_id"`
	UserID     string      `json:"user_id"`
	Amount     int64       `json:"amount"`
	HandNo     uint64      `json:"hand_no"`
	Supersedes string      `json:"supersedes,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	ValidUntil time.Time   `json:"valid_until"`
}

// NewKey builds an idempotency key: kind/subject/<unix nanos>/<uuid>.
func NewKey(kind ledger.Kind, subject string) string {
	return fmt.Sprintf("%s/%s/%d/%s", kind, subject, time.Now().UnixNano(), uuid.New().String())
}

// SeatSubject names the subject of a seat-scoped intent.
func SeatSubject(tableID string, seatID int, userID string) string {
	return fmt.Sprintf("%s:%d:%s", tableID, seatID, userID)
}

func NewIntent(kind ledger.Kind, tableID string, seatID int, userID string, amount int64) Intent {
	return Intent{
		Key:       NewKey(kind, SeatSubject(tableID, seatID, userID)),
		Kind:      kind,
		TableID:   tableID,
		SeatID:    seatID,
		UserID:    userID,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
}

// Compensation returns the intent that undoes or replaces a failed intent.
func (i Intent) Compensation() (Intent, bool) {
	if i.Supersedes != "" {
		return Intent{}, false
	}

	var kind ledger.Kind
	switch i.Kind {
	case ledger.KindBuyIn:
		kind = ledger.KindRollbackJoin
	case ledger.KindCashOut:
		kind = ledger.KindRefund
	case ledger.KindPayout:
		kind = ledger.KindPayout
	default:
		return Intent{}, false
	}

	c := NewIntent(kind, i.TableID, i.SeatID, i.UserID, i.Amount)
	c.HandNo = i.HandNo
	c.Supersedes = i.Key
	return c, true
}

func (i Intent) request() ledger.TransferRequest {
	return ledger.TransferRequest{
		UserID:     i.UserID,
		TableID:    i.TableID,
		Amount:     i.Amount,
		Key:        i.Key,
		Kind:       i.Kind,
		Supersedes: i.Supersedes,
	}
}

func (i Intent) record(status Status) store.IntentRecord {
	return store.IntentRecord{
		Key:        i.Key,
		Kind:       string(i.Kind),
		TableID:    i.TableID,
		SeatID:     i.SeatID,
		UserID:     i.UserID,
		Amount:     i.Amount,
		HandNo:     i.HandNo,
		Supersedes: i.Supersedes,
		Status:     string(status),
		Terminal:   status.Terminal(),
		ValidUntil: i.ValidUntil,
		CreatedAt:  i.CreatedAt,
	}
}

func intentFromRecord(r store.IntentRecord) Intent {
	return Intent{
		Key:        r.Key,
		Kind:       ledger.Kind(r.Kind),
		TableID:    r.TableID,
		SeatID:     r.SeatID,
		UserID:     r.UserID,
		Amount:     r.Amount,
		HandNo:     r.HandNo,
		Supersedes: r.Supersedes,
		CreatedAt:  r.CreatedAt,
		ValidUntil: r.ValidUntil,
	}
}

// Outcome is what the adapter reports back for one applied intent.
type Outcome struct {
	Intent       Intent  `json:"intent"`
	Status       Status  `json:"status"`
	TransferID   string  `json:"transfer_id,omitempty"`
	Attempts     int     `json:"attempts"`
	Compensation *Intent `json:"compensation,omitempty"`
	Err          error   `json:"-"`
}

// Confirmed reports whether the intent's own effect is in the ledger.
func (o Outcome) Confirmed() bool {
	return o.Status == StatusConfirmed
}

func (o Outcome) Fatal() bool {
	return o.Status == StatusFatalStuck
}
