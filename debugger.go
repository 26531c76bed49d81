package holdemtable

import (
	"fmt"
	"strings"
	"time"
)

// DebugString renders a view as plain text for logs and the CLI.
func (v *TableView) DebugString() string {
	var b strings.Builder

	timeString := func(millis int64) string {
		if millis == 0 {
			return "X"
		}
		return time.UnixMilli(millis).Format("15:04:05.000")
	}

	fmt.Fprintf(&b, "---------- [Table %s] ----------\n", v.TableID)
	fmt.Fprintf(&b, "[Status] %s  [Hand] #%d  [Street] %s\n", v.Status, v.HandNo, v.Street)
	fmt.Fprintf(&b, "[Blinds] %d/%d  [Dealer] %d  [SB] %d  [BB] %d\n", v.SmallBlind, v.BigBlind, v.DealerSeat, v.SBSeat, v.BBSeat)
	fmt.Fprintf(&b, "[Board] %v  [Pot] %d  [Current Bet] %d\n", v.Board, v.TotalPot, v.CurrentBet)
	fmt.Fprintf(&b, "[Current Seat] %d  [Deadline] %s\n", v.CurrentSeat, timeString(v.ActionDeadline))

	for idx, p := range v.Pots {
		fmt.Fprintf(&b, "  pot %d: %d eligible %v\n", idx, p.Amount, p.Eligible)
	}

	for _, s := range v.Seats {
		if s.UserID == "" {
			continue
		}
		fmt.Fprintf(&b, "seat: %d [%v], player: %s, stack: %d, status: %s, bet: %d/%d",
			s.SeatID, s.Positions, s.UserID, s.Stack, s.Status, s.RoundBet, s.TotalBet)
		if len(s.HoleCards) > 0 {
			fmt.Fprintf(&b, ", cards: %v", s.HoleCards)
		}
		if s.PendingBuyIn > 0 {
			fmt.Fprintf(&b, ", pending buy-in: %d", s.PendingBuyIn)
		}
		b.WriteString("\n")
	}

	if r := v.LastResult; r != nil {
		fmt.Fprintf(&b, "[Last Hand] #%d board %v\n", r.HandNo, r.Board)
		for _, a := range r.Awards {
			fmt.Fprintf(&b, "  pot %d -> seat %d (%s) +%d %s\n", a.Pot, a.Seat, a.UserID, a.Amount, r.Hands[a.Seat])
		}
	}

	fmt.Fprintf(&b, "[Escrowed] %d  [Returned] %d\n", v.Escrowed, v.Returned)
	if v.Fatal != "" {
		fmt.Fprintf(&b, "[FATAL] %s\n", v.Fatal)
	}

	return b.String()
}
