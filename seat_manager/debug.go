package seat_manager

import (
	"fmt"
	"strings"
)

// DebugString renders positions and occupancy on one line for debug logs.
func DebugString(sm SeatManager) string {
	var b strings.Builder
	fmt.Fprintf(&b, "dealer=%d sb=%d bb=%d", sm.CurrentDealerSeatID(), sm.CurrentSBSeatID(), sm.CurrentBBSeatID())

	seats := sm.Seats()
	for i := 0; i < len(seats); i++ {
		seatPlayer := seats[i]
		if seatPlayer == nil {
			continue
		}
		fmt.Fprintf(&b, " [%d:%s active=%t]", i, seatPlayer.ID, seatPlayer.Active)
	}
	return b.String()
}
