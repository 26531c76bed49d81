package seat_manager

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seatPlayers(t *testing.T, sm SeatManager, seats map[string]int) {
	t.Helper()
	for playerID, seatID := range seats {
		_, err := sm.AssignSeat(playerID, seatID)
		require.NoError(t, err)
		require.NoError(t, sm.SetPlayerActive(playerID, true))
	}
}

func TestInitSeatManager(t *testing.T) {
	sm := NewSeatManager(9)

	assert.Equal(t, 9, sm.MaxSeat())
	assert.Equal(t, UnsetSeatID, sm.CurrentDealerSeatID())
	assert.Equal(t, UnsetSeatID, sm.CurrentSBSeatID())
	assert.Equal(t, UnsetSeatID, sm.CurrentBBSeatID())
	assert.False(t, sm.IsInitPositions())
	assert.Len(t, sm.EmptySeatIDs(), 9)
	for _, seatPlayer := range sm.Seats() {
		assert.Nil(t, seatPlayer)
	}
}

func TestAssignSeat(t *testing.T) {
	sm := NewSeatManager(6)

	seatID, err := sm.AssignSeat("P1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, seatID)

	_, err = sm.AssignSeat("P2", 3)
	assert.ErrorIs(t, err, ErrSeatTaken)

	_, err = sm.AssignSeat("P1", 4)
	assert.ErrorIs(t, err, ErrPlayerSeated)

	_, err = sm.AssignSeat("P3", 6)
	assert.ErrorIs(t, err, ErrNoSuchSeat)

	seatID, err = sm.AssignSeat("P4", UnsetSeatID)
	require.NoError(t, err)
	assert.NotEqual(t, 3, seatID)

	got, err := sm.GetSeatID("P4")
	require.NoError(t, err)
	assert.Equal(t, seatID, got)

	require.NoError(t, sm.RemoveSeat("P1"))
	_, err = sm.GetSeatID("P1")
	assert.ErrorIs(t, err, ErrNotSeated)
	assert.ErrorIs(t, sm.RemoveSeat("P1"), ErrNotSeated)
}

func TestParallelRandomAssignSeats(t *testing.T) {
	playerIDs := []string{"P1", "P2", "P3", "P4", "P5"}
	sm := NewSeatManager(5)

	var wg sync.WaitGroup
	for _, playerID := range playerIDs {
		wg.Add(1)
		go func(playerID string) {
			defer wg.Done()
			_, err := sm.AssignSeat(playerID, UnsetSeatID)
			assert.NoError(t, err)
		}(playerID)
	}
	wg.Wait()

	assert.Empty(t, sm.EmptySeatIDs())
	_, err := sm.AssignSeat("P6", UnsetSeatID)
	assert.ErrorIs(t, err, ErrNoEmptySeat)
}

func TestInitPositionsNeedsTwoActivePlayers(t *testing.T) {
	sm := NewSeatManager(9)
	seatPlayers(t, sm, map[string]int{"P1": 2})

	assert.ErrorIs(t, sm.InitPositions(false), ErrTooFewActive)
	assert.ErrorIs(t, sm.RotatePositions(), ErrButtonNotPlaced)
}

func TestInitPositionsHeadsUp(t *testing.T) {
	sm := NewSeatManager(9)
	seatPlayers(t, sm, map[string]int{"P1": 2, "P2": 7})

	require.NoError(t, sm.InitPositions(false))

	assert.True(t, sm.IsHU())
	assert.Equal(t, 2, sm.CurrentDealerSeatID())
	assert.Equal(t, 2, sm.CurrentSBSeatID())
	assert.Equal(t, 7, sm.CurrentBBSeatID())
	assert.Equal(t, []string{Position_Dealer, Position_SB}, sm.Positions(2))

	require.NoError(t, sm.RotatePositions())
	assert.Equal(t, 7, sm.CurrentDealerSeatID())
	assert.Equal(t, 7, sm.CurrentSBSeatID())
	assert.Equal(t, 2, sm.CurrentBBSeatID())
}

func TestRotatePositionsSkipsInactiveSeats(t *testing.T) {
	sm := NewSeatManager(9)
	seatPlayers(t, sm, map[string]int{"P1": 0, "P2": 3, "P3": 5, "P4": 8})

	require.NoError(t, sm.InitPositions(false))
	assert.False(t, sm.IsHU())
	assert.Equal(t, 0, sm.CurrentDealerSeatID())
	assert.Equal(t, 3, sm.CurrentSBSeatID())
	assert.Equal(t, 5, sm.CurrentBBSeatID())
	assert.Equal(t, []int{3, 5, 8, 0}, sm.ActiveSeatIDsFromDealer())

	require.NoError(t, sm.SetPlayerActive("P2", false))
	require.NoError(t, sm.RotatePositions())
	assert.Equal(t, 5, sm.CurrentDealerSeatID())
	assert.Equal(t, 8, sm.CurrentSBSeatID())
	assert.Equal(t, 0, sm.CurrentBBSeatID())

	// wraps around the table
	require.NoError(t, sm.RotatePositions())
	assert.Equal(t, 8, sm.CurrentDealerSeatID())
	assert.Equal(t, 0, sm.CurrentSBSeatID())
	assert.Equal(t, 5, sm.CurrentBBSeatID())

	// down to two players switches to the heads-up layout
	require.NoError(t, sm.RemoveSeat("P4"))
	require.NoError(t, sm.RotatePositions())
	assert.True(t, sm.IsHU())
	assert.Equal(t, 0, sm.CurrentDealerSeatID())
	assert.Equal(t, 0, sm.CurrentSBSeatID())
	assert.Equal(t, 5, sm.CurrentBBSeatID())
}

func TestRestorePositions(t *testing.T) {
	sm := NewSeatManager(6)
	seatPlayers(t, sm, map[string]int{"P1": 1, "P2": 2, "P3": 4})

	assert.ErrorIs(t, sm.RestorePositions(6), ErrNoSuchSeat)
	require.NoError(t, sm.RestorePositions(3))
	assert.True(t, sm.IsInitPositions())
	assert.Equal(t, UnsetSeatID, sm.CurrentBBSeatID())

	require.NoError(t, sm.RotatePositions())
	assert.Equal(t, 4, sm.CurrentDealerSeatID())
	assert.Equal(t, 1, sm.CurrentSBSeatID())
	assert.Equal(t, 2, sm.CurrentBBSeatID())
}

func TestSeatsReturnsCopies(t *testing.T) {
	sm := NewSeatManager(3)
	seatPlayers(t, sm, map[string]int{"P1": 1})

	seats := sm.Seats()
	seats[1].Active = false

	assert.Equal(t, []int{1}, sm.ActiveSeatIDs())
	assert.Contains(t, DebugString(sm), "[1:P1 active=true]")
}
