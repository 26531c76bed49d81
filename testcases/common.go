package testcases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weedbox/holdemtable"
	"github.com/weedbox/holdemtable/escrow"
	"github.com/weedbox/holdemtable/ledger"
)

const (
	WalletFunds = int64(10000)
	waitTimeout = 3 * time.Second
)

func logJSON(t *testing.T, msg string, v *holdemtable.TableView) {
	encoded, err := v.GetJSON()
	if err != nil {
		t.Logf("\n===== [%s] =====\n%v\n", msg, err)
		return
	}
	t.Logf("\n===== [%s] =====\n%s\n", msg, encoded)
}

type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Scenario drives one table through a manager over an in-memory ledger.
// Hands only start when the test asks for them.
type Scenario struct {
	T       *testing.T
	Ledger  *ledger.Memory
	Manager holdemtable.Manager
	Engine  holdemtable.TableEngine
	TableID string
	Clock   *Clock
	Users   []string
}

func NewSetting(minPlayers int) holdemtable.TableSetting {
	setting := holdemtable.NewDefaultTableSetting()
	setting.TableID = "scenario"
	setting.MaxSeats = 6
	setting.MinPlayers = minPlayers
	setting.MinBuyIn = 100
	setting.MaxBuyIn = 5000
	setting.Interval = time.Hour
	return setting
}

func NewScenario(t *testing.T, setting holdemtable.TableSetting, users ...string) *Scenario {
	t.Helper()

	l := ledger.NewMemory()
	for _, u := range users {
		require.NoError(t, l.Deposit(context.Background(), u, WalletFunds))
	}

	escrowOptions := escrow.NewOptions()
	escrowOptions.Backoff = 0
	manager := holdemtable.NewManager(l, holdemtable.WithEscrowOptions(escrowOptions))
	t.Cleanup(manager.Reset)

	clock := &Clock{now: time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)}
	options := holdemtable.NewTableEngineOptions()
	options.DeckSeed = 2024
	options.Clock = clock.Now

	callbacks := holdemtable.NewTableEngineCallbacks()
	callbacks.OnTableErrorUpdated = func(v *holdemtable.TableView, err error) {
		t.Log("[Table] Error:", err)
	}
	callbacks.OnTableFatal = func(v *holdemtable.TableView, err error) {
		t.Error("[Table] Fatal:", err)
	}

	engine, err := manager.CreateTable(options, callbacks, setting)
	require.NoError(t, err, "create table failed")

	return &Scenario{
		T:       t,
		Ledger:  l,
		Manager: manager,
		Engine:  engine,
		TableID: setting.TableID,
		Clock:   clock,
		Users:   users,
	}
}

func (s *Scenario) View(viewer int) *holdemtable.TableView {
	s.T.Helper()
	v, err := s.Engine.Snapshot(viewer)
	require.NoError(s.T, err)
	return v
}

func (s *Scenario) WaitFor(cond func(v *holdemtable.TableView) bool) *holdemtable.TableView {
	s.T.Helper()

	var last *holdemtable.TableView
	require.Eventually(s.T, func() bool {
		v, err := s.Engine.Snapshot(holdemtable.UnsetValue)
		if err != nil {
			return false
		}
		last = v
		return cond(v)
	}, waitTimeout, 5*time.Millisecond)

	return last
}

// Join seats a user and waits for the buy-in to clear escrow.
func (s *Scenario) Join(seatID int, userID string, buyIn int64) {
	s.T.Helper()
	require.NoError(s.T, s.Engine.Submit(seatID, holdemtable.Join{UserID: userID, BuyIn: buyIn}), "%s join error", userID)
	s.WaitFor(func(v *holdemtable.TableView) bool {
		seat := v.Seat(seatID)
		return seat != nil && seat.UserID == userID && seat.Status != holdemtable.SeatStatus_PendingBuyIn
	})
}

func (s *Scenario) WaitHand(handNo uint64) *holdemtable.TableView {
	s.T.Helper()
	return s.WaitFor(func(v *holdemtable.TableView) bool {
		return v.HandNo == handNo && v.Status == holdemtable.TableStateStatus_BettingRound
	})
}

// NextHand moves the clock past the hand interval and lets the table deal.
func (s *Scenario) NextHand() *holdemtable.TableView {
	s.T.Helper()
	handNo := s.View(holdemtable.UnsetValue).HandNo + 1
	s.Clock.Advance(2 * time.Hour)
	require.NoError(s.T, s.Engine.Submit(holdemtable.UnsetValue, holdemtable.Tick{}))
	return s.WaitHand(handNo)
}

func (s *Scenario) Act(seatID int, action holdemtable.Action) *holdemtable.TableView {
	s.T.Helper()
	require.NoError(s.T, s.Engine.Submit(seatID, action), "seat %d %s", seatID, action.Kind)
	return s.View(holdemtable.UnsetValue)
}

// ActCurrent acts for whoever is on the clock and checks it was the expected seat.
func (s *Scenario) ActCurrent(expectedSeat int, action holdemtable.Action) *holdemtable.TableView {
	s.T.Helper()
	assert.Equal(s.T, expectedSeat, s.View(holdemtable.UnsetValue).CurrentSeat)
	return s.Act(expectedSeat, action)
}

func (s *Scenario) Balance(userID string) int64 {
	s.T.Helper()
	b, err := s.Ledger.Balance(context.Background(), userID)
	require.NoError(s.T, err)
	return b
}

// AssertTableConserved checks that the seats and pot hold exactly what escrow holds.
func (s *Scenario) AssertTableConserved(v *holdemtable.TableView) {
	s.T.Helper()

	var stacks int64
	for _, seat := range v.Seats {
		stacks += seat.Stack
	}
	assert.Equal(s.T, v.Escrowed-v.Returned, stacks+v.TotalPot, "table chips")

	s.Manager.Escrow().Wait()
	escrowed, err := s.Ledger.EscrowBalance(context.Background(), s.TableID)
	require.NoError(s.T, err)
	assert.Equal(s.T, v.Escrowed-v.Returned, escrowed, "ledger escrow")
}

// AssertAwards checks every pot was paid out in full.
func AssertAwards(t *testing.T, r *holdemtable.HandResult) {
	t.Helper()
	require.NotNil(t, r)

	paid := make(map[int]int64)
	for _, a := range r.Awards {
		paid[a.Pot] += a.Amount
	}
	for idx, p := range r.Pots {
		assert.Equal(t, p.Amount, paid[idx], "pot %d", idx)
	}
}

// Close closes the table and checks every wallet is whole again.
func (s *Scenario) Close() {
	s.T.Helper()

	require.NoError(s.T, s.Manager.CloseTable(s.TableID))
	select {
	case <-s.Engine.Done():
	case <-time.After(waitTimeout):
		s.T.Fatal("table did not close")
	}
	s.Manager.Escrow().Wait()

	var total int64
	for _, u := range s.Users {
		total += s.Balance(u)
	}
	assert.Equal(s.T, WalletFunds*int64(len(s.Users)), total, "wallets")

	escrowed, err := s.Ledger.EscrowBalance(context.Background(), s.TableID)
	require.NoError(s.T, err)
	assert.Equal(s.T, int64(0), escrowed, "escrow after close")
}
