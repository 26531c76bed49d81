package holdemtable

import (
	"context"
	"fmt"
	"time"

	"github.com/thoas/go-funk"
	"github.com/weedbox/holdemtable/betting"
	"github.com/weedbox/holdemtable/card"
	"github.com/weedbox/holdemtable/deck"
	"github.com/weedbox/holdemtable/escrow"
	"github.com/weedbox/holdemtable/evaluator"
	"github.com/weedbox/holdemtable/ledger"
	"github.com/weedbox/holdemtable/pot"
	"github.com/weedbox/holdemtable/seat_manager"
	"go.uber.org/zap"
)

func (te *tableEngine) setStatus(status TableStateStatus) {
	if te.table.Status == status {
		return
	}
	te.table.Status = status
	te.emitTableStateEvent(string(status))
}

// playableSeats returns the seats that are dealt into the next hand.
func (te *tableEngine) playableSeats() []int {
	seatIDs := make([]int, 0)
	for _, s := range te.table.Seats {
		if s.Funded() && s.Stack > 0 && !s.SittingOut && !s.Leaving {
			seatIDs = append(seatIDs, s.ID)
		}
	}
	return seatIDs
}

func (te *tableEngine) tryStartHand() {
	if te.table.Status != TableStateStatus_WaitingForPlayers || te.table.Closing || te.table.Hand != nil {
		return
	}

	if te.now().Before(te.table.NextHandAt) {
		return
	}

	if len(te.playableSeats()) < te.table.Setting.MinPlayers {
		return
	}

	if err := te.startHand(); err != nil {
		te.emitErrorEvent("StartHand", UnsetValue, err)
	}
}

// sweepBusted frees the seats that stayed broke for a whole buy-in window.
// A seat waiting on a rebuy is not funded and stays.
func (te *tableEngine) sweepBusted(now time.Time) {
	for _, s := range te.table.Seats {
		if !s.Funded() || s.Stack > 0 {
			continue
		}
		if s.BustedAt.IsZero() {
			s.BustedAt = now
		}
		if now.Before(s.BustedAt.Add(te.table.Setting.BuyInWindow)) {
			continue
		}
		te.logger.Info("busted seat removed", zap.Int("seat", s.ID), zap.String("user_id", s.UserID))
		te.emptySeat(s)
	}
}

func (te *tableEngine) startHand() error {
	te.sweepBusted(te.now())

	playable := te.playableSeats()
	for _, s := range te.table.Seats {
		if s.IsEmpty() {
			continue
		}
		if err := te.sm.SetPlayerActive(s.UserID, funk.ContainsInt(playable, s.ID)); err != nil {
			return err
		}
		if s.Funded() {
			if s.SittingOut {
				s.Status = SeatStatus_SittingOut
			} else {
				s.Status = SeatStatus_Active
			}
		}
	}

	var err error
	if te.sm.IsInitPositions() {
		err = te.sm.RotatePositions()
	} else {
		err = te.sm.InitPositions(te.options.RandomButton)
	}
	if err != nil {
		return err
	}
	te.logger.Debug("positions", zap.String("table_id", te.table.ID), zap.String("seats", seat_manager.DebugString(te.sm)))

	te.table.HandCount++
	setting := te.table.Setting

	h := &hand{
		No:         te.table.HandCount,
		DealerSeat: te.sm.CurrentDealerSeatID(),
		SBSeat:     te.sm.CurrentSBSeatID(),
		BBSeat:     te.sm.CurrentBBSeatID(),
		Order:      te.sm.ActiveSeatIDsFromDealer(),
		Street:     Street_PreFlop,
	}

	if te.options.DeckSeed != 0 {
		h.Deck = deck.NewSeeded(te.options.DeckSeed + int64(h.No))
	} else {
		h.Deck = deck.New()
	}

	players := make([]*betting.Player, 0, len(h.Order))
	for _, seatID := range h.Order {
		players = append(players, &betting.Player{
			Seat:  seatID,
			Stack: te.seat(seatID).Stack,
		})
	}

	tracker, err := betting.NewTracker(players, setting.BigBlind)
	if err != nil {
		return err
	}
	h.Tracker = tracker
	te.table.Hand = h

	dealer := h.DealerSeat
	te.persist("save button", func(ctx context.Context) error {
		return te.store.SaveButton(ctx, te.table.ID, dealer)
	})

	te.logger.Info("hand started",
		zap.Uint64("hand", h.No),
		zap.Int("dealer", h.DealerSeat),
		zap.Int("sb", h.SBSeat),
		zap.Int("bb", h.BBSeat),
		zap.Ints("seats", h.Order),
	)

	// blinds
	te.setStatus(TableStateStatus_PostingBlinds)
	tracker.Post(h.Index(h.SBSeat), setting.SmallBlind)
	bbIdx := h.Index(h.BBSeat)
	tracker.Post(bbIdx, setting.BigBlind)
	tracker.OpenBet(setting.BigBlind)
	te.syncStacks()

	// hole cards
	te.setStatus(TableStateStatus_Dealing)
	for round := 0; round < HoleCardCount; round++ {
		for _, seatID := range h.Order {
			c, err := h.Deck.Draw()
			if err != nil {
				te.freeze(fmt.Errorf("%w: %v", ErrTableInvariantViolated, err))
				return nil
			}
			s := te.seat(seatID)
			s.HoleCards = append(s.HoleCards, c)
		}
	}

	te.setStatus(TableStateStatus_BettingRound)
	tracker.StartRound(bbIdx + 1)
	te.emitEvent("HandStarted", UnsetValue)

	te.advance()
	return nil
}

// syncStacks copies the tracker's chip state back onto the seats.
func (te *tableEngine) syncStacks() {
	h := te.table.Hand
	for idx, p := range h.Tracker.Players() {
		s := te.seat(h.Order[idx])
		s.Stack = p.Stack
		switch {
		case p.Folded:
			s.Status = SeatStatus_Folded
		case p.AllIn:
			s.Status = SeatStatus_AllIn
		default:
			s.Status = SeatStatus_Active
		}
	}
}

func (te *tableEngine) afterAction(seatID int, action betting.Action) {
	te.cancelActionTimer()
	te.syncStacks()

	te.logger.Debug("action",
		zap.Uint64("hand", te.table.Hand.No),
		zap.Int("seat", seatID),
		zap.String("action", action.String()),
	)
	te.emitEvent(action.Kind.String(), seatID)

	te.advance()
}

// autoAct checks or folds for the seat to act.
func (te *tableEngine) autoAct() {
	h := te.table.Hand
	idx := h.Tracker.ToAct()
	if idx < 0 {
		return
	}

	action := h.Tracker.AutoAction(idx)
	if err := h.Tracker.Apply(idx, action); err != nil {
		te.freeze(fmt.Errorf("%w: auto action: %v", ErrTableInvariantViolated, err))
		return
	}

	te.afterAction(h.Order[idx], action)
}

// advance moves the hand forward until a seat has to act or the hand is over.
func (te *tableEngine) advance() {
	for {
		h := te.table.Hand
		if h == nil || te.table.Status != TableStateStatus_BettingRound {
			return
		}

		if h.Tracker.State() == betting.Complete {
			if !te.finishRound() {
				return
			}
			continue
		}

		seatID := h.CurrentSeat()
		if seatID == UnsetValue {
			return
		}

		if te.seat(seatID).Leaving {
			idx := h.Tracker.ToAct()
			action := h.Tracker.AutoAction(idx)
			if err := h.Tracker.Apply(idx, action); err != nil {
				te.freeze(fmt.Errorf("%w: auto action: %v", ErrTableInvariantViolated, err))
				return
			}
			te.syncStacks()
			te.emitEvent(action.Kind.String(), seatID)
			continue
		}

		te.armActionTimer()
		te.emitEvent("TurnStarted", seatID)
		return
	}
}

// finishRound closes a completed betting round. It returns true when a new round opened.
func (te *tableEngine) finishRound() bool {
	h := te.table.Hand
	tracker := h.Tracker

	if tracker.InHandCount() <= 1 {
		te.showdown()
		return false
	}

	if h.Street == Street_River {
		te.showdown()
		return false
	}

	if tracker.CanActCount() <= 1 {
		// nobody left to bet against: run out the board
		for h.Street != Street_River {
			h.Street = h.Street.Next()
			if err := te.dealBoard(h.Street.BoardCardCount()); err != nil {
				te.freeze(fmt.Errorf("%w: %v", ErrTableInvariantViolated, err))
				return false
			}
		}
		te.emitEvent("RunOut", UnsetValue)
		te.showdown()
		return false
	}

	h.Street = h.Street.Next()
	if err := te.dealBoard(h.Street.BoardCardCount()); err != nil {
		te.freeze(fmt.Errorf("%w: %v", ErrTableInvariantViolated, err))
		return false
	}

	tracker.ResetRound()
	tracker.StartRound(0)
	te.syncStacks()

	te.logger.Debug("street",
		zap.Uint64("hand", h.No),
		zap.String("street", string(h.Street)),
		zap.Strings("board", card.Strings(h.Board)),
	)
	te.emitEvent("Street", UnsetValue)
	return true
}

func (te *tableEngine) dealBoard(count int) error {
	h := te.table.Hand
	if err := h.Deck.Burn(); err != nil {
		return err
	}
	cards, err := h.Deck.DrawN(count)
	if err != nil {
		return err
	}
	h.Board = append(h.Board, cards...)
	return nil
}

func (te *tableEngine) showdown() {
	h := te.table.Hand
	te.cancelActionTimer()
	te.setStatus(TableStateStatus_Showdown)

	pots, err := pot.Build(h.Contributions())
	if err != nil {
		te.freeze(fmt.Errorf("%w: %v", ErrTableInvariantViolated, err))
		return
	}
	h.Pots = pots

	inHand := make([]int, 0, len(h.Order))
	for idx, p := range h.Tracker.Players() {
		if !p.Folded {
			inHand = append(inHand, h.Order[idx])
		}
	}

	hands := make(map[int]evaluator.HandValue)
	if len(inHand) > 1 {
		for _, seatID := range inHand {
			s := te.seat(seatID)
			cards := append(append([]card.Card{}, s.HoleCards...), h.Board...)
			value, err := evaluator.Evaluate(cards)
			if err != nil {
				te.freeze(fmt.Errorf("%w: seat %d: %v", ErrTableInvariantViolated, seatID, err))
				return
			}
			hands[seatID] = value
		}
		h.RevealOrder = te.revealOrder(inHand)
	}

	order := pot.OrderFrom(h.DealerSeat, h.Order)
	awards, err := pot.Settle(pots, hands, order)
	if err != nil {
		te.freeze(fmt.Errorf("%w: %v", ErrTableInvariantViolated, err))
		return
	}
	h.Awards = awards

	te.emitEvent("Showdown", UnsetValue)
	te.payout(hands)
}

// revealOrder starts with the last aggressor of the final round, otherwise the
// first seat after the dealer, and follows seating order.
func (te *tableEngine) revealOrder(inHand []int) []int {
	h := te.table.Hand

	start := 0
	if idx := h.Tracker.LastAggressor(); idx >= 0 && !h.Tracker.Player(idx).Folded {
		start = idx
	}

	order := make([]int, 0, len(inHand))
	n := len(h.Order)
	for i := 0; i < n; i++ {
		seatID := h.Order[(start+i)%n]
		if funk.ContainsInt(inHand, seatID) {
			order = append(order, seatID)
		}
	}
	return order
}

// payout credits the awards to the stacks and journals them in the ledger.
func (te *tableEngine) payout(hands map[int]evaluator.HandValue) {
	h := te.table.Hand
	te.setStatus(TableStateStatus_Payout)

	totals := pot.Totals(h.Awards)
	for _, seatID := range h.Order {
		amount := totals[seatID]
		if amount <= 0 {
			continue
		}

		s := te.seat(seatID)
		s.Stack += amount

		intent := escrow.NewIntent(ledger.KindPayout, te.table.ID, seatID, s.UserID, amount)
		intent.HandNo = h.No
		te.dispatch(intent)
	}
	h.Settled = true

	te.table.LastResult = te.handResult(hands)
	te.emitEvent("Payout", UnsetValue)

	te.completeHand()
}

func (te *tableEngine) completeHand() {
	h := te.table.Hand
	te.setStatus(TableStateStatus_HandComplete)

	te.logger.Info("hand complete",
		zap.Uint64("hand", h.No),
		zap.Int64("pot", pot.Total(h.Pots)),
		zap.Strings("board", card.Strings(h.Board)),
	)

	for _, seatID := range h.Order {
		s := te.seat(seatID)
		s.HoleCards = nil
		if s.Leaving {
			te.cashOutAndEmpty(s)
			continue
		}
		if s.Stack == 0 {
			s.BustedAt = te.now()
		}
		if s.SittingOut {
			s.Status = SeatStatus_SittingOut
		} else {
			s.Status = SeatStatus_Active
		}
	}

	te.table.Hand = nil
	te.emitEvent("HandComplete", UnsetValue)

	if te.table.Closing {
		te.closeTable()
		return
	}

	te.setStatus(TableStateStatus_WaitingForPlayers)
	te.scheduleNextHand()
}
