package holdemtable

import (
	"time"

	"github.com/weedbox/holdemtable/betting"
	"github.com/weedbox/holdemtable/card"
	"github.com/weedbox/holdemtable/deck"
	"github.com/weedbox/holdemtable/escrow"
	"github.com/weedbox/holdemtable/pot"
)

type TableStateStatus string

const (
	TableStateStatus_WaitingForPlayers TableStateStatus = "waiting_for_players" // 等待玩家
	TableStateStatus_PostingBlinds     TableStateStatus = "posting_blinds"      // 收取盲注
	TableStateStatus_Dealing           TableStateStatus = "dealing"             // 發手牌
	TableStateStatus_BettingRound      TableStateStatus = "betting_round"       // 下注圈進行中
	TableStateStatus_Showdown          TableStateStatus = "showdown"            // 攤牌比牌
	TableStateStatus_Payout            TableStateStatus = "payout"              // 派彩
	TableStateStatus_HandComplete      TableStateStatus = "hand_complete"       // 本手結束
	TableStateStatus_TableFrozen       TableStateStatus = "table_frozen"        // 帳務異常，桌次凍結
	TableStateStatus_TableClosed       TableStateStatus = "table_closed"        // 桌次已結束
)

// InHand reports whether a hand is between blinds and payout.
func (s TableStateStatus) InHand() bool {
	switch s {
	case TableStateStatus_PostingBlinds,
		TableStateStatus_Dealing,
		TableStateStatus_BettingRound,
		TableStateStatus_Showdown,
		TableStateStatus_Payout,
		TableStateStatus_HandComplete:
		return true
	}
	return false
}

type SeatStatus string

const (
	SeatStatus_Empty        SeatStatus = "empty"          // 空位
	SeatStatus_PendingBuyIn SeatStatus = "pending_buy_in" // 買入確認中
	SeatStatus_Active       SeatStatus = "active"         // 可參與
	SeatStatus_Folded       SeatStatus = "folded"         // 已棄牌
	SeatStatus_AllIn        SeatStatus = "all_in"         // 已全下
	SeatStatus_SittingOut   SeatStatus = "sitting_out"    // 暫離
)

type table struct {
	ID           string
	Setting      TableSetting
	Status       TableStateStatus
	Seats        []*seat     // index: seat id
	HandCount    uint64      // 已開局數
	Hand         *hand       // 進行中的一手牌, nil between hands
	LastResult   *HandResult // 上一手結果
	Escrowed     int64       // confirmed buy-ins
	Returned     int64       // cash-outs issued
	NextHandAt   time.Time
	Closing      bool // close once the running hand completes
	FatalErr     error
	UpdateAt     int64 // 更新時間 (Seconds)
	UpdateSerial int64 // 更新序列號 (數字越大越晚發生)
}

type seat struct {
	ID         int
	UserID     string
	Stack      int64
	Status     SeatStatus
	HoleCards  []card.Card
	SittingOut bool // 下一手起暫離
	Leaving    bool // 本手結束後離桌
	Pending    *pendingBuyIn
	BustedAt   time.Time // 輸光的時間, 買入期限內可補碼
}

type pendingBuyIn struct {
	Intent         escrow.Intent
	LeaveOnConfirm bool
}

func (s *seat) IsEmpty() bool {
	return s.UserID == ""
}

// Funded reports whether the seat holds confirmed chips or is waiting on a rebuy.
func (s *seat) Funded() bool {
	return !s.IsEmpty() && s.Pending == nil
}

func (s *seat) reset() {
	*s = seat{
		ID:     s.ID,
		Status: SeatStatus_Empty,
	}
}

type hand struct {
	No             uint64
	DealerSeat     int
	SBSeat         int
	BBSeat         int
	Deck           *deck.Deck
	Board          []card.Card
	Order          []int // seat ids in tracker order, first seat after the dealer first
	Tracker        *betting.Tracker
	Street         Street
	TurnSerial     uint64
	ActionDeadline time.Time
	Pots           []pot.Pot
	Awards         []pot.Award
	RevealOrder    []int
	Settled        bool // awards credited to stacks
}

// Index returns the tracker index of a seat, or UnsetValue when the seat was not dealt in.
func (h *hand) Index(seatID int) int {
	for idx, s := range h.Order {
		if s == seatID {
			return idx
		}
	}
	return UnsetValue
}

// CurrentSeat returns the seat to act, or UnsetValue.
func (h *hand) CurrentSeat() int {
	if h.Tracker == nil || h.Settled {
		return UnsetValue
	}
	idx := h.Tracker.ToAct()
	if idx < 0 || idx >= len(h.Order) {
		return UnsetValue
	}
	return h.Order[idx]
}

// PotAmount is what the hand holds that is not yet back in stacks.
func (h *hand) PotAmount() int64 {
	if h.Tracker == nil || h.Settled {
		return 0
	}
	return h.Tracker.Pot()
}

func (h *hand) Contributions() []pot.Contribution {
	contribs := make([]pot.Contribution, 0, len(h.Order))
	for idx, p := range h.Tracker.Players() {
		contribs = append(contribs, pot.Contribution{
			Seat:   h.Order[idx],
			Amount: p.TotalBet,
			Folded: p.Folded,
		})
	}
	return contribs
}

func (h *hand) IsRevealed(seatID int) bool {
	for _, s := range h.RevealOrder {
		if s == seatID {
			return true
		}
	}
	return false
}
