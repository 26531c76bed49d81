package holdemtable

import (
	"errors"
	"fmt"

	"github.com/weedbox/holdemtable/betting"
	"github.com/weedbox/holdemtable/escrow"
	"github.com/weedbox/holdemtable/ledger"
	"github.com/weedbox/holdemtable/seat_manager"
	"go.uber.org/zap"
)

func (te *tableEngine) handleSubmit(seatID int, intent Intent) error {
	switch te.table.Status {
	case TableStateStatus_TableFrozen:
		return ErrTableFrozen
	case TableStateStatus_TableClosed:
		return ErrTableClosed
	}

	var err error
	switch in := intent.(type) {
	case Join:
		err = te.join(seatID, in)
	case *Join:
		err = te.join(seatID, *in)
	case Leave, *Leave:
		err = te.leave(seatID)
	case Action:
		err = te.act(seatID, in)
	case *Action:
		err = te.act(seatID, *in)
	case Tick, *Tick:
		te.tick()
	case SitOut, *SitOut:
		err = te.sitOut(seatID)
	case SitIn, *SitIn:
		err = te.sitIn(seatID)
	default:
		err = ErrTableInvalidAction
	}

	if err != nil {
		te.logger.Debug("intent rejected",
			zap.Int("seat", seatID),
			zap.String("intent", intent.IntentName()),
			zap.Error(err),
		)
	}

	return err
}

func (te *tableEngine) join(seatID int, in Join) error {
	if te.table.Closing {
		return ErrTableClosed
	}

	if in.UserID == "" {
		return ErrTableInvalidAction
	}

	setting := te.table.Setting
	if in.BuyIn < setting.MinBuyIn {
		return ErrTableInsufficientBuyIn
	}
	if in.BuyIn > setting.MaxBuyIn {
		return ErrTableBuyInTooLarge
	}

	if seatID != UnsetValue && te.seat(seatID) == nil {
		return ErrTableInvalidSeat
	}

	var s *seat
	if existing := te.seatOfUser(in.UserID); existing != nil {
		// rebuy of a busted seat that is not in the running hand
		if !te.canRebuy(existing) || (seatID != UnsetValue && seatID != existing.ID) {
			return ErrTablePlayerAlreadySeated
		}
		s = existing
	} else {
		assigned, err := te.sm.AssignSeat(in.UserID, seatID)
		if err != nil {
			return te.seatError(err)
		}
		s = te.seat(assigned)
		s.UserID = in.UserID
	}

	intent := escrow.NewIntent(ledger.KindBuyIn, te.table.ID, s.ID, in.UserID, in.BuyIn)
	intent.ValidUntil = te.now().Add(setting.BuyInWindow)

	s.Pending = &pendingBuyIn{Intent: intent}
	s.Status = SeatStatus_PendingBuyIn

	if err := te.windows.Open(intent.Key, setting.BuyInWindow); err != nil {
		te.logger.Warn("unable to open buy-in window", zap.String("key", intent.Key), zap.Error(err))
	}
	te.dispatch(intent)

	te.emitEvent("Join", s.ID)
	return nil
}

func (te *tableEngine) canRebuy(s *seat) bool {
	if s.Pending != nil || s.Stack > 0 {
		return false
	}
	if h := te.table.Hand; h != nil && !h.Settled && h.Index(s.ID) != UnsetValue {
		return false
	}
	return true
}

func (te *tableEngine) seatError(err error) error {
	switch {
	case errors.Is(err, seat_manager.ErrNoEmptySeat):
		return ErrTableFull
	case errors.Is(err, seat_manager.ErrSeatTaken):
		return ErrTableSeatTaken
	case errors.Is(err, seat_manager.ErrPlayerSeated):
		return ErrTablePlayerAlreadySeated
	case errors.Is(err, seat_manager.ErrNoSuchSeat):
		return ErrTableInvalidSeat
	}
	return err
}

func (te *tableEngine) leave(seatID int) error {
	s := te.seat(seatID)
	if s == nil || s.IsEmpty() {
		return ErrTableSeatEmpty
	}

	if s.Pending != nil {
		s.Pending.LeaveOnConfirm = true
		te.emitEvent("Leave", seatID)
		return nil
	}

	if te.inRunningHand(seatID) {
		s.Leaving = true
		te.emitEvent("Leave", seatID)

		if te.table.Hand.CurrentSeat() == seatID {
			te.autoAct()
		}
		return nil
	}

	te.cashOutAndEmpty(s)
	te.emitEvent("Leave", seatID)
	return nil
}

func (te *tableEngine) inRunningHand(seatID int) bool {
	h := te.table.Hand
	return h != nil && !h.Settled && h.Index(seatID) != UnsetValue
}

func (te *tableEngine) act(seatID int, in Action) error {
	s := te.seat(seatID)
	if s == nil || s.IsEmpty() {
		return ErrTableSeatEmpty
	}

	h := te.table.Hand
	if h == nil || te.table.Status != TableStateStatus_BettingRound {
		return ErrTableInvalidAction
	}

	idx := h.Index(seatID)
	if idx == UnsetValue {
		return ErrTableNotYourTurn
	}

	if err := h.Tracker.Apply(idx, betting.Action{Kind: in.Kind, Amount: in.Amount}); err != nil {
		switch {
		case errors.Is(err, betting.ErrNotYourTurn):
			return ErrTableNotYourTurn
		case errors.Is(err, betting.ErrInvalidAction):
			return fmt.Errorf("%w: %s", ErrTableInvalidAction, betting.Action{Kind: in.Kind, Amount: in.Amount})
		}
		return err
	}

	te.afterAction(seatID, betting.Action{Kind: in.Kind, Amount: in.Amount})
	return nil
}

func (te *tableEngine) sitOut(seatID int) error {
	s := te.seat(seatID)
	if s == nil || s.IsEmpty() {
		return ErrTableSeatEmpty
	}

	s.SittingOut = true
	if !te.inRunningHand(seatID) && s.Pending == nil {
		s.Status = SeatStatus_SittingOut
	}

	te.emitEvent("SitOut", seatID)
	return nil
}

func (te *tableEngine) sitIn(seatID int) error {
	s := te.seat(seatID)
	if s == nil || s.IsEmpty() {
		return ErrTableSeatEmpty
	}

	s.SittingOut = false
	if s.Status == SeatStatus_SittingOut {
		s.Status = SeatStatus_Active
	}

	te.emitEvent("SitIn", seatID)
	te.tryStartHand()
	return nil
}

// tick expires overdue buy-ins, acts for an overdue seat and starts a due hand.
func (te *tableEngine) tick() {
	now := te.now()

	te.expireBuyIns(now)
	if te.table.Hand == nil {
		te.sweepBusted(now)
	}

	if h := te.table.Hand; h != nil && te.table.Status == TableStateStatus_BettingRound {
		if !h.ActionDeadline.IsZero() && !now.Before(h.ActionDeadline) {
			te.autoAct()
		}
	}

	te.tryStartHand()
}

func (te *tableEngine) handleActionTimeout(turn uint64) {
	h := te.table.Hand
	if h == nil || te.table.Status != TableStateStatus_BettingRound || h.TurnSerial != turn {
		return
	}

	te.logger.Info("action timeout", zap.Int("seat", h.CurrentSeat()), zap.Uint64("hand", h.No))
	te.autoAct()
}

func (te *tableEngine) handleClose() error {
	switch te.table.Status {
	case TableStateStatus_TableClosed:
		return ErrTableClosed
	case TableStateStatus_TableFrozen:
		te.table.Closing = true
		return nil
	}

	te.table.Closing = true

	if te.table.Hand != nil {
		// closes when the hand completes
		return nil
	}

	te.closeTable()
	return nil
}

// closeTable cashes out every seat and stops all timers.
func (te *tableEngine) closeTable() {
	te.actionTB.Cancel()
	te.handTB.Cancel()

	for _, s := range te.table.Seats {
		switch {
		case s.IsEmpty():
		case s.Pending != nil:
			te.expireBuyIn(s.Pending.Intent.Key)
		default:
			te.cashOutAndEmpty(s)
		}
	}

	te.windows.Close()
	te.setStatus(TableStateStatus_TableClosed)
}
