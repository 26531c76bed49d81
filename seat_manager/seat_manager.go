package seat_manager

import (
	"errors"
)

var (
	ErrNoEmptySeat     = errors.New("seat manager: no empty seat")
	ErrNotSeated       = errors.New("seat manager: player not seated")
	ErrPlayerSeated    = errors.New("seat manager: player already seated")
	ErrNoSuchSeat      = errors.New("seat manager: no such seat")
	ErrSeatTaken       = errors.New("seat manager: seat taken")
	ErrTooFewActive    = errors.New("seat manager: fewer than two active seats")
	ErrButtonNotPlaced = errors.New("seat manager: button not placed yet")
)

// SeatManager tracks seat occupancy and the dealer / blind positions of a
// moving-button table.
type SeatManager interface {
	MaxSeat() int
	GetSeatID(playerID string) (int, error)
	AssignSeat(playerID string, seatID int) (int, error)
	RemoveSeat(playerID string) error
	SetPlayerActive(playerID string, active bool) error

	InitPositions(isRandom bool) error
	RestorePositions(dealerSeatID int) error
	RotatePositions() error

	Seats() map[int]*SeatPlayer
	EmptySeatIDs() []int
	ActiveSeatIDs() []int
	ActiveSeatIDsFromDealer() []int
	NextActiveSeatID(seatID int) int
	CurrentDealerSeatID() int
	CurrentSBSeatID() int
	CurrentBBSeatID() int
	IsInitPositions() bool
	IsHU() bool
	Positions(seatID int) []string
}

type SeatPlayer struct {
	ID     string `json:"id"`
	Active bool   `json:"active"` // funded and dealt into the next hand
}

func NewSeatManager(maxSeats int) SeatManager {
	seats := make(map[int]*SeatPlayer)
	for i := 0; i < maxSeats; i++ {
		seats[i] = nil
	}

	return &seatManager{
		maxSeat:      maxSeats,
		seats:        seats,
		dealerSeatID: UnsetSeatID,
		sbSeatID:     UnsetSeatID,
		bbSeatID:     UnsetSeatID,
	}
}
