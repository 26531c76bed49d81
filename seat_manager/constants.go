package seat_manager

const (
	UnsetSeatID = -1

	// Positions
	Position_Dealer = "dealer"
	Position_SB     = "sb"
	Position_BB     = "bb"
)
