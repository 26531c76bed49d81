package actor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weedbox/holdemtable"
	"github.com/weedbox/holdemtable/escrow"
	"github.com/weedbox/holdemtable/ledger"
)

func TestActor_Basic(t *testing.T) {
	players := []string{"P1", "P2", "P3", "P4", "P5"}
	funds := int64(10000)
	buyIn := int64(1000)

	l := ledger.NewMemory()
	for _, p := range players {
		require.NoError(t, l.Deposit(context.Background(), p, funds))
	}

	escrowOptions := escrow.NewOptions()
	escrowOptions.Backoff = 0
	manager := holdemtable.NewManager(l, holdemtable.WithEscrowOptions(escrowOptions))
	defer manager.Reset()

	// Initializing table
	broadcaster := NewBroadcaster()
	callbacks := holdemtable.NewTableEngineCallbacks()
	callbacks.OnTableUpdated = broadcaster.UpdateTableState
	callbacks.OnTableErrorUpdated = func(v *holdemtable.TableView, err error) {
		t.Log("[Table] Error:", err)
	}
	callbacks.OnTableFatal = func(v *holdemtable.TableView, err error) {
		t.Error("[Table] Fatal:", err)
	}

	options := holdemtable.NewTableEngineOptions()
	options.DeckSeed = 1

	setting := holdemtable.NewDefaultTableSetting()
	setting.TableID = uuid.New().String()
	setting.MaxSeats = 6

	tableEngine, err := manager.CreateTable(options, callbacks, setting)
	require.NoError(t, err, "create table failed")

	// Observer
	observer := NewObserverRunner()
	oa := NewActor()
	oa.SetAdapter(NewTableEngineAdapter(tableEngine, ""))
	oa.SetRunner(observer)
	broadcaster.Add(oa)

	// Preparing actors
	for _, p := range players {
		a := NewActor()
		a.SetAdapter(NewTableEngineAdapter(tableEngine, p))

		bot := NewBotRunner(p)
		bot.OnTableAutoRebuyRequested(func(tableID string, playerID string, seatID int) {
			_ = a.GetTable().Join(seatID, buyIn)
		})
		a.SetRunner(bot)

		broadcaster.Add(a)
	}

	// Add players to table
	for _, a := range players {
		go func(playerID string) {
			err := tableEngine.Submit(holdemtable.UnsetValue, holdemtable.Join{UserID: playerID, BuyIn: buyIn})
			assert.NoError(t, err, fmt.Sprintf("%s join error", playerID))
		}(a)
	}

	require.Eventually(t, func() bool {
		return len(observer.Results()) >= 20
	}, 20*time.Second, 10*time.Millisecond)

	require.NoError(t, manager.CloseTable(setting.TableID))
	select {
	case <-tableEngine.Done():
	case <-time.After(20 * time.Second):
		t.Fatal("table did not close")
	}
	manager.Escrow().Wait()

	for _, r := range observer.Results() {
		var pots, awards int64
		for _, p := range r.Pots {
			pots += p.Amount
		}
		for _, a := range r.Awards {
			awards += a.Amount
		}
		assert.Equal(t, pots, awards, "hand #%d", r.HandNo)
	}

	var total int64
	for _, p := range players {
		b, err := l.Balance(context.Background(), p)
		require.NoError(t, err)
		total += b
	}
	assert.Equal(t, funds*int64(len(players)), total)

	escrowed, err := l.EscrowBalance(context.Background(), setting.TableID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), escrowed)
}
