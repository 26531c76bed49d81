package seat_manager

import (
	"sync"
)

type seatManager struct {
	maxSeat         int
	seats           map[int]*SeatPlayer // key: seat_id (from 0 to MaxSeat - 1), value: seat (nil by default)
	dealerSeatID    int                 // UnsetSeatID by default
	sbSeatID        int                 // UnsetSeatID by default
	bbSeatID        int                 // UnsetSeatID by default
	isInitPositions bool
	mu              sync.RWMutex
}

func (sm *seatManager) MaxSeat() int {
	return sm.maxSeat
}

func (sm *seatManager) GetSeatID(playerID string) (int, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	_, seatID, err := sm.getSeatPlayer(playerID)
	return seatID, err
}

// AssignSeat seats a player. UnsetSeatID picks a random empty seat.
func (sm *seatManager) AssignSeat(playerID string, seatID int) (int, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, _, err := sm.getSeatPlayer(playerID); err == nil {
		return UnsetSeatID, ErrPlayerSeated
	}

	if seatID == UnsetSeatID {
		seatIDs, err := sm.randomSeatIDs(1)
		if err != nil {
			return UnsetSeatID, err
		}
		seatID = seatIDs[0]
	}

	sp, exist := sm.seats[seatID]
	if !exist {
		return UnsetSeatID, ErrNoSuchSeat
	}
	if sp != nil {
		return UnsetSeatID, ErrSeatTaken
	}

	sm.seats[seatID] = &SeatPlayer{ID: playerID}
	return seatID, nil
}

func (sm *seatManager) RemoveSeat(playerID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	_, seatID, err := sm.getSeatPlayer(playerID)
	if err != nil {
		return err
	}

	sm.seats[seatID] = nil
	return nil
}

func (sm *seatManager) SetPlayerActive(playerID string, active bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sp, _, err := sm.getSeatPlayer(playerID)
	if err != nil {
		return err
	}

	sp.Active = active
	return nil
}

func (sm *seatManager) InitPositions(isRandom bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := sm.initPositions(isRandom); err != nil {
		return err
	}

	sm.isInitPositions = true
	return nil
}

// RestorePositions places the button where a previous run left it. The next
// RotatePositions moves it on from there.
func (sm *seatManager) RestorePositions(dealerSeatID int) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if dealerSeatID < 0 || dealerSeatID >= sm.maxSeat {
		return ErrNoSuchSeat
	}

	sm.dealerSeatID = dealerSeatID
	sm.sbSeatID = UnsetSeatID
	sm.bbSeatID = UnsetSeatID
	sm.isInitPositions = true
	return nil
}

func (sm *seatManager) RotatePositions() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.isInitPositions {
		return ErrButtonNotPlaced
	}

	return sm.rotatePositions()
}

func (sm *seatManager) Seats() map[int]*SeatPlayer {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	seats := make(map[int]*SeatPlayer, len(sm.seats))
	for seatID, sp := range sm.seats {
		if sp == nil {
			seats[seatID] = nil
			continue
		}
		copied := *sp
		seats[seatID] = &copied
	}
	return seats
}

func (sm *seatManager) EmptySeatIDs() []int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.getEmptySeatIDs()
}

func (sm *seatManager) ActiveSeatIDs() []int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.getActiveSeatIDs()
}

// ActiveSeatIDsFromDealer lists active seats clockwise, starting with the
// first seat after the dealer and ending with the dealer.
func (sm *seatManager) ActiveSeatIDsFromDealer() []int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	seatIDs := make([]int, 0)
	for i := 1; i <= sm.maxSeat; i++ {
		seatID := (sm.dealerSeatID + i) % sm.maxSeat
		if seatID < 0 {
			seatID += sm.maxSeat
		}
		if sp := sm.seats[seatID]; sp != nil && sp.Active {
			seatIDs = append(seatIDs, seatID)
		}
	}
	return seatIDs
}

func (sm *seatManager) NextActiveSeatID(seatID int) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.nextActiveSeatID(seatID)
}

func (sm *seatManager) CurrentDealerSeatID() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.dealerSeatID
}

func (sm *seatManager) CurrentSBSeatID() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sbSeatID
}

func (sm *seatManager) CurrentBBSeatID() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.bbSeatID
}

func (sm *seatManager) IsInitPositions() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.isInitPositions
}

// IsHU reports whether the current positions were computed heads-up.
func (sm *seatManager) IsHU() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.isHU()
}

func (sm *seatManager) Positions(seatID int) []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	positions := make([]string, 0)
	if seatID == UnsetSeatID {
		return positions
	}
	if seatID == sm.dealerSeatID {
		positions = append(positions, Position_Dealer)
	}
	if seatID == sm.sbSeatID {
		positions = append(positions, Position_SB)
	}
	if seatID == sm.bbSeatID {
		positions = append(positions, Position_BB)
	}
	return positions
}
