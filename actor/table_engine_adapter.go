package actor

import (
	"sync/atomic"

	"github.com/weedbox/holdemtable"
)

// Adapter binds one player to one table.
type Adapter interface {
	SetActor(a Actor)
	GetPlayerID() string
	GetSeatID() int
	UpdateTableState(v *holdemtable.TableView) error

	Join(seatID int, buyIn int64) error
	Leave() error
	Act(action holdemtable.Action) error
	Snapshot() (*holdemtable.TableView, error)
}

type tableEngineAdapter struct {
	actor    Actor
	engine   holdemtable.TableEngine
	playerID string
	seatID   atomic.Int64
}

func NewTableEngineAdapter(engine holdemtable.TableEngine, playerID string) Adapter {
	tea := &tableEngineAdapter{
		engine:   engine,
		playerID: playerID,
	}
	tea.seatID.Store(holdemtable.UnsetValue)
	return tea
}

func (tea *tableEngineAdapter) SetActor(a Actor) {
	tea.actor = a
}

func (tea *tableEngineAdapter) GetPlayerID() string {
	return tea.playerID
}

func (tea *tableEngineAdapter) GetSeatID() int {
	return int(tea.seatID.Load())
}

func (tea *tableEngineAdapter) UpdateTableState(v *holdemtable.TableView) error {
	tea.seatID.Store(int64(v.SeatOf(tea.playerID)))

	if tea.actor == nil || tea.actor.GetRunner() == nil {
		return nil
	}

	return tea.actor.GetRunner().UpdateTableState(v)
}

func (tea *tableEngineAdapter) Join(seatID int, buyIn int64) error {
	return tea.engine.Submit(seatID, holdemtable.Join{UserID: tea.playerID, BuyIn: buyIn})
}

func (tea *tableEngineAdapter) Leave() error {
	return tea.engine.Submit(tea.GetSeatID(), holdemtable.Leave{})
}

func (tea *tableEngineAdapter) Act(action holdemtable.Action) error {
	return tea.engine.Submit(tea.GetSeatID(), action)
}

func (tea *tableEngineAdapter) Snapshot() (*holdemtable.TableView, error) {
	return tea.engine.Snapshot(tea.GetSeatID())
}
