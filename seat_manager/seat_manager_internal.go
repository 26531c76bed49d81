package seat_manager

import (
	"math/rand"
	"sort"
	"time"

	"github.com/thoas/go-funk"
)

func (sm *seatManager) randomSeatIDs(count int) ([]int, error) {
	emptySeatIDs := sm.getEmptySeatIDs()

	if len(emptySeatIDs) < count {
		return nil, ErrNoEmptySeat
	}

	r := sm.newRandom()
	r.Shuffle(len(emptySeatIDs), func(i, j int) {
		emptySeatIDs[i], emptySeatIDs[j] = emptySeatIDs[j], emptySeatIDs[i]
	})

	return emptySeatIDs[:count], nil
}

func (sm *seatManager) allSeatIDs() []int {
	seatIDs := make([]int, 0, len(sm.seats))
	for seatID := range sm.seats {
		seatIDs = append(seatIDs, seatID)
	}
	sort.Ints(seatIDs)
	return seatIDs
}

func (sm *seatManager) getEmptySeatIDs() []int {
	return funk.FilterInt(sm.allSeatIDs(), func(seatID int) bool {
		return sm.seats[seatID] == nil
	})
}

func (sm *seatManager) getActiveSeatIDs() []int {
	return funk.FilterInt(sm.allSeatIDs(), func(seatID int) bool {
		sp := sm.seats[seatID]
		return sp != nil && sp.Active
	})
}

func (sm *seatManager) getSeatPlayer(playerID string) (*SeatPlayer, int, error) {
	for seatID, seatPlayer := range sm.seats {
		if seatPlayer != nil && seatPlayer.ID == playerID {
			return seatPlayer, seatID, nil
		}
	}
	return nil, UnsetSeatID, ErrNotSeated
}

func (sm *seatManager) newRandom() *rand.Rand {
	seed := time.Now().UnixNano()
	source := rand.NewSource(seed)
	return rand.New(source)
}

func (sm *seatManager) nextActiveSeatID(startSeatID int) int {
	if startSeatID < 0 {
		startSeatID = sm.maxSeat - 1
	}
	for i := 1; i <= sm.maxSeat; i++ {
		seatID := (startSeatID + i) % sm.maxSeat
		if sp, exist := sm.seats[seatID]; exist && sp != nil && sp.Active {
			return seatID
		}
	}
	return UnsetSeatID
}

func (sm *seatManager) isHU() bool {
	return sm.dealerSeatID != UnsetSeatID && sm.dealerSeatID == sm.sbSeatID
}

/*
  - Random or first active seat becomes the dealer
  - Heads-up: the dealer posts SB, the other seat posts BB
  - Otherwise SB and BB are the next two active seats after the dealer
*/
func (sm *seatManager) initPositions(isRandom bool) error {
	activeSeatIDs := sm.getActiveSeatIDs()
	if len(activeSeatIDs) < 2 {
		return ErrTooFewActive
	}

	dealerSeatID := activeSeatIDs[0]
	if isRandom {
		dealerSeatID = activeSeatIDs[sm.newRandom().Intn(len(activeSeatIDs))]
	}

	sm.dealerSeatID = dealerSeatID
	sm.assignBlinds(len(activeSeatIDs))
	return nil
}

/*
  - The button moves to the next active seat clockwise, skipping empty and
    inactive seats (moving button)
  - Blinds follow the button, with the heads-up exception above
*/
func (sm *seatManager) rotatePositions() error {
	activeCount := len(sm.getActiveSeatIDs())
	if activeCount < 2 {
		return ErrTooFewActive
	}

	sm.dealerSeatID = sm.nextActiveSeatID(sm.dealerSeatID)
	sm.assignBlinds(activeCount)
	return nil
}

func (sm *seatManager) assignBlinds(activeCount int) {
	if activeCount == 2 {
		sm.sbSeatID = sm.dealerSeatID
		sm.bbSeatID = sm.nextActiveSeatID(sm.dealerSeatID)
		return
	}

	sm.sbSeatID = sm.nextActiveSeatID(sm.dealerSeatID)
	sm.bbSeatID = sm.nextActiveSeatID(sm.sbSeatID)
}
