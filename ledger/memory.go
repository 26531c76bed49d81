package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process ledger. A per-user mutex stands in for the wallet row lock.
type Memory struct {
	mu           sync.Mutex
	userLocks    sync.Map
	wallets      map[string]int64
	escrow       map[string]int64
	transfers    map[string]*Transfer // key: idempotency key
	supersededBy map[string]string    // key: superseded key, value: superseding key
	failures     []error
	now          func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		wallets:      make(map[string]int64),
		escrow:       make(map[string]int64),
		transfers:    make(map[string]*Transfer),
		supersededBy: make(map[string]string),
		now:          time.Now,
	}
}

// FailNext makes the next n transfers fail with err before touching any balance.
func (m *Memory) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.failures = append(m.failures, err)
	}
}

func (m *Memory) Deposit(_ context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidTransfer
	}
	unlock := m.lockUser(userID)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets[userID] += amount
	return nil
}

func (m *Memory) Balance(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wallets[userID], nil
}

func (m *Memory) EscrowBalance(_ context.Context, tableID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.escrow[tableID], nil
}

// Transfers returns every recorded transfer, unordered.
func (m *Memory) Transfers() []Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Transfer, 0, len(m.transfers))
	for _, t := range m.transfers {
		out = append(out, *t)
	}
	return out
}

func (m *Memory) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", ErrUnavailable
	}

	balance, unlock := m.lockAndReadBalance(req.UserID)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return "", err
	}

	if t, ok := m.transfers[req.Key]; ok {
		return t.ID, ErrDuplicateKey
	}

	if _, ok := m.supersededBy[req.Key]; ok {
		return "", ErrSuperseded
	}

	amount := req.Amount
	reverse := (*Transfer)(nil)
	apply := true

	if req.Supersedes != "" {
		if by, ok := m.supersededBy[req.Supersedes]; ok {
			return m.transfers[by].ID, ErrDuplicateKey
		}

		original, applied := m.transfers[req.Supersedes]
		switch planCompensation(req.Kind, applied) {
		case compensateDuplicate:
			return original.ID, ErrDuplicateKey
		case compensateReverse:
			reverse = original
			amount = original.Amount
		case compensateApply:
			if req.Kind == KindRollbackJoin {
				apply = false
				amount = 0
			}
		}
	}

	switch {
	case reverse != nil:
		if m.escrow[reverse.TableID] < reverse.Amount {
			return "", ErrInsufficientFunds
		}
		m.escrow[reverse.TableID] -= reverse.Amount
		m.wallets[reverse.UserID] += reverse.Amount
	case !apply:
	case req.Kind == KindBuyIn:
		if balance < amount {
			return "", ErrInsufficientFunds
		}
		m.wallets[req.UserID] -= amount
		m.escrow[req.TableID] += amount
	case req.Kind == KindCashOut || req.Kind == KindRefund:
		if m.escrow[req.TableID] < amount {
			return "", ErrInsufficientFunds
		}
		m.escrow[req.TableID] -= amount
		m.wallets[req.UserID] += amount
	}

	t := &Transfer{
		ID:         uuid.New().String(),
		Key:        req.Key,
		Kind:       req.Kind,
		UserID:     req.UserID,
		TableID:    req.TableID,
		Amount:     amount,
		Supersedes: req.Supersedes,
		CreatedAt:  m.now(),
	}
	m.transfers[req.Key] = t
	if req.Supersedes != "" {
		m.supersededBy[req.Supersedes] = req.Key
	}

	return t.ID, nil
}

// lockAndReadBalance holds the user's row lock until the returned func runs.
func (m *Memory) lockAndReadBalance(userID string) (int64, func()) {
	unlock := m.lockUser(userID)

	m.mu.Lock()
	balance := m.wallets[userID]
	m.mu.Unlock()

	return balance, unlock
}

func (m *Memory) lockUser(userID string) func() {
	l, _ := m.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := l.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
