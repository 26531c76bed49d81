package holdemtable

import (
	"encoding/json"

	"github.com/weedbox/holdemtable/betting"
	"github.com/weedbox/holdemtable/card"
	"github.com/weedbox/holdemtable/evaluator"
	"github.com/weedbox/holdemtable/pot"
)

// TableView is a read-only projection of a table as one seat is allowed to see it.
type TableView struct {
	TableID        string           `json:"table_id"`
	Status         TableStateStatus `json:"status"`
	Street         Street           `json:"street"`
	HandNo         uint64           `json:"hand_no"`
	DealerSeat     int              `json:"dealer_seat"`
	SBSeat         int              `json:"sb_seat"`
	BBSeat         int              `json:"bb_seat"`
	SmallBlind     int64            `json:"small_blind"`
	BigBlind       int64            `json:"big_blind"`
	Board          []string         `json:"board"`
	Pots           []PotView        `json:"pots"`
	TotalPot       int64            `json:"total_pot"`
	CurrentBet     int64            `json:"current_bet"`
	CurrentSeat    int              `json:"current_seat"`
	TurnSerial     uint64           `json:"turn_serial"`
	ActionDeadline int64            `json:"action_deadline"` // unix millis, 0 when nobody is on the clock
	Seats          []SeatView       `json:"seats"`
	Viewer         int              `json:"viewer"`
	Legal          *LegalView       `json:"legal,omitempty"`
	LastResult     *HandResult      `json:"last_result,omitempty"`
	Escrowed       int64            `json:"escrowed"`
	Returned       int64            `json:"returned"`
	Fatal          string           `json:"fatal,omitempty"`
	UpdateAt       int64            `json:"update_at"`
	UpdateSerial   int64            `json:"update_serial"`
}

type SeatView struct {
	SeatID       int        `json:"seat_id"`
	UserID       string     `json:"user_id"`
	Stack        int64      `json:"stack"`
	Status       SeatStatus `json:"status"`
	RoundBet     int64      `json:"round_bet"`
	TotalBet     int64      `json:"total_bet"`
	HoleCards    []string   `json:"hole_cards,omitempty"`
	SittingOut   bool       `json:"sitting_out"`
	Leaving      bool       `json:"leaving"`
	PendingBuyIn int64      `json:"pending_buy_in"`
	Positions    []string   `json:"positions,omitempty"`
}

type PotView struct {
	Amount   int64 `json:"amount"`
	Eligible []int `json:"eligible"`
}

type LegalView struct {
	Actions    []betting.ActionKind `json:"actions"`
	CallAmount int64                `json:"call_amount"`
	MinRaiseTo int64                `json:"min_raise_to"`
	MaxRaiseTo int64                `json:"max_raise_to"`
}

func (l *LegalView) Has(kind betting.ActionKind) bool {
	if l == nil {
		return false
	}
	for _, k := range l.Actions {
		if k == kind {
			return true
		}
	}
	return false
}

// HandResult is what a completed hand leaves behind.
type HandResult struct {
	HandNo      uint64           `json:"hand_no"`
	Board       []string         `json:"board"`
	Pots        []PotView        `json:"pots"`
	Awards      []AwardView      `json:"awards"`
	RevealOrder []int            `json:"reveal_order"`
	Revealed    map[int][]string `json:"revealed"`
	Hands       map[int]string   `json:"hands"` // seat -> hand description
}

type AwardView struct {
	Pot    int    `json:"pot"`
	Seat   int    `json:"seat"`
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
}

func (v *TableView) Seat(seatID int) *SeatView {
	for i := range v.Seats {
		if v.Seats[i].SeatID == seatID {
			return &v.Seats[i]
		}
	}
	return nil
}

// SeatOf returns the seat a user sits on, or UnsetValue.
func (v *TableView) SeatOf(userID string) int {
	if userID == "" {
		return UnsetValue
	}
	for _, s := range v.Seats {
		if s.UserID == userID {
			return s.SeatID
		}
	}
	return UnsetValue
}

func (v *TableView) HasPendingBuyIn() bool {
	for _, s := range v.Seats {
		if s.Status == SeatStatus_PendingBuyIn {
			return true
		}
	}
	return false
}

func (v *TableView) GetJSON() (string, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func (te *tableEngine) view(viewer int) *TableView {
	t := te.table
	v := &TableView{
		TableID:      t.ID,
		Status:       t.Status,
		DealerSeat:   UnsetValue,
		SBSeat:       UnsetValue,
		BBSeat:       UnsetValue,
		SmallBlind:   t.Setting.SmallBlind,
		BigBlind:     t.Setting.BigBlind,
		Board:        []string{},
		Pots:         []PotView{},
		CurrentSeat:  UnsetValue,
		Seats:        make([]SeatView, 0, len(t.Seats)),
		Viewer:       viewer,
		LastResult:   t.LastResult,
		Escrowed:     t.Escrowed,
		Returned:     t.Returned,
		UpdateAt:     t.UpdateAt,
		UpdateSerial: t.UpdateSerial,
	}
	if t.FatalErr != nil {
		v.Fatal = t.FatalErr.Error()
	}

	h := t.Hand
	if h != nil {
		v.Street = h.Street
		v.HandNo = h.No
		v.DealerSeat = h.DealerSeat
		v.SBSeat = h.SBSeat
		v.BBSeat = h.BBSeat
		v.Board = card.Strings(h.Board)
		v.TotalPot = h.PotAmount()
		v.CurrentBet = h.Tracker.CurrentBet()
		v.CurrentSeat = h.CurrentSeat()
		v.TurnSerial = h.TurnSerial
		if !h.ActionDeadline.IsZero() {
			v.ActionDeadline = h.ActionDeadline.UnixMilli()
		}

		pots := h.Pots
		if pots == nil {
			pots, _ = pot.Build(h.Contributions())
		}
		v.Pots = potViews(pots)
	} else {
		v.HandNo = t.HandCount
	}

	for _, s := range t.Seats {
		sv := SeatView{
			SeatID:     s.ID,
			UserID:     s.UserID,
			Stack:      s.Stack,
			Status:     s.Status,
			SittingOut: s.SittingOut,
			Leaving:    s.Leaving,
		}
		if s.Pending != nil {
			sv.PendingBuyIn = s.Pending.Intent.Amount
		}
		if !s.IsEmpty() {
			sv.Positions = te.sm.Positions(s.ID)
		}

		if h != nil {
			if idx := h.Index(s.ID); idx != UnsetValue {
				p := h.Tracker.Player(idx)
				sv.RoundBet = p.RoundBet
				sv.TotalBet = p.TotalBet
			}
			if s.ID == viewer || h.IsRevealed(s.ID) {
				sv.HoleCards = card.Strings(s.HoleCards)
			}
		}

		v.Seats = append(v.Seats, sv)
	}

	if h != nil && viewer != UnsetValue && viewer == v.CurrentSeat {
		legal := h.Tracker.Legal(h.Index(viewer))
		v.Legal = &LegalView{
			Actions:    legal.Actions,
			CallAmount: legal.CallAmount,
			MinRaiseTo: legal.MinRaiseTo,
			MaxRaiseTo: legal.MaxRaiseTo,
		}
	}

	return v
}

func potViews(pots []pot.Pot) []PotView {
	views := make([]PotView, 0, len(pots))
	for _, p := range pots {
		views = append(views, PotView{
			Amount:   p.Amount,
			Eligible: append([]int{}, p.Eligible...),
		})
	}
	return views
}

func (te *tableEngine) handResult(hands map[int]evaluator.HandValue) *HandResult {
	h := te.table.Hand
	result := &HandResult{
		HandNo:      h.No,
		Board:       card.Strings(h.Board),
		Pots:        potViews(h.Pots),
		Awards:      make([]AwardView, 0, len(h.Awards)),
		RevealOrder: append([]int{}, h.RevealOrder...),
		Revealed:    make(map[int][]string),
		Hands:       make(map[int]string),
	}

	for _, a := range h.Awards {
		result.Awards = append(result.Awards, AwardView{
			Pot:    a.Pot,
			Seat:   a.Seat,
			UserID: te.seat(a.Seat).UserID,
			Amount: a.Amount,
		})
	}

	for _, seatID := range h.RevealOrder {
		result.Revealed[seatID] = card.Strings(te.seat(seatID).HoleCards)
		if value, ok := hands[seatID]; ok {
			result.Hands[seatID] = value.String()
		}
	}

	return result
}
