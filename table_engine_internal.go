package holdemtable

import (
	"context"
	"fmt"
	"time"

	"github.com/weedbox/holdemtable/audit"
	"github.com/weedbox/holdemtable/escrow"
	"github.com/weedbox/holdemtable/ledger"
	"github.com/weedbox/holdemtable/store"
	"go.uber.org/zap"
)

const (
	cmdSubmit        = "submit"
	cmdSnapshot      = "snapshot"
	cmdClose         = "close"
	cmdOutcome       = "outcome"
	cmdBuyInExpired  = "buy_in_expired"
	cmdActionTimeout = "action_timeout"
	cmdNextHand      = "next_hand"
	cmdExec          = "exec"
)

type loopCommand struct {
	kind    string
	seatID  int
	intent  Intent
	outcome escrow.Outcome
	key     string
	turn    uint64
	viewCh  chan *TableView
	exec    func()
	resp    chan error
}

type persistJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (te *tableEngine) run() {
	defer close(te.done)

	te.emitEvent(TableStateEvent_Created, UnsetValue)

	for cmd := range te.cmdCh {
		err := te.handle(cmd)
		if cmd.resp != nil {
			cmd.resp <- err
		}

		te.audit()

		if te.stopped() {
			te.logger.Info("table loop stopped")
			return
		}
	}
}

// stopped reports whether the loop may exit: the table is closed, or frozen and
// asked to close, and no settlement outcome is outstanding.
func (te *tableEngine) stopped() bool {
	if len(te.inflight) > 0 {
		return false
	}
	switch te.table.Status {
	case TableStateStatus_TableClosed:
		return true
	case TableStateStatus_TableFrozen:
		return te.table.Closing
	}
	return false
}

func (te *tableEngine) handle(cmd loopCommand) error {
	switch cmd.kind {
	case cmdSnapshot:
		cmd.viewCh <- te.view(cmd.seatID)
		return nil
	case cmdSubmit:
		return te.handleSubmit(cmd.seatID, cmd.intent)
	case cmdClose:
		return te.handleClose()
	case cmdOutcome:
		te.handleOutcome(cmd.outcome)
	case cmdBuyInExpired:
		te.expireBuyIn(cmd.key)
	case cmdActionTimeout:
		te.handleActionTimeout(cmd.turn)
	case cmdNextHand:
		te.tryStartHand()
	case cmdExec:
		cmd.exec()
	}
	return nil
}

// post enqueues a message unless the loop has stopped.
func (te *tableEngine) post(cmd loopCommand) bool {
	select {
	case <-te.done:
		return false
	default:
	}

	select {
	case te.cmdCh <- cmd:
		return true
	case <-te.done:
		return false
	}
}

// postTimer drops the message when the inbox is full. The next tick catches up.
func (te *tableEngine) postTimer(cmd loopCommand) {
	select {
	case te.cmdCh <- cmd:
	case <-te.done:
	default:
		te.logger.Warn("inbox full, timer message dropped", zap.String("kind", cmd.kind))
	}
}

// inLoop runs fn on the table loop like any other message, audit included.
func (te *tableEngine) inLoop(fn func()) error {
	return te.request(loopCommand{kind: cmdExec, exec: fn})
}

func (te *tableEngine) postOutcome(out escrow.Outcome) {
	te.post(loopCommand{kind: cmdOutcome, outcome: out})
}

func (te *tableEngine) now() time.Time {
	return te.options.Clock()
}

func (te *tableEngine) seat(seatID int) *seat {
	if seatID < 0 || seatID >= len(te.table.Seats) {
		return nil
	}
	return te.table.Seats[seatID]
}

func (te *tableEngine) seatOfUser(userID string) *seat {
	for _, s := range te.table.Seats {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}

// dispatch hands an intent to the escrow adapter; the outcome comes back as a message.
func (te *tableEngine) dispatch(intent escrow.Intent) {
	te.inflight[intent.Key] = intent
	te.logger.Info("settlement intent dispatched",
		zap.String("key", intent.Key),
		zap.String("kind", string(intent.Kind)),
		zap.Int("seat", intent.SeatID),
		zap.Int64("amount", intent.Amount),
		zap.Uint64("hand", intent.HandNo),
	)
	te.escrow.Dispatch(intent, te.postOutcome)
}

func (te *tableEngine) handleOutcome(out escrow.Outcome) {
	key := out.Intent.Key
	intent, known := te.inflight[key]
	delete(te.inflight, key)
	resumed := te.resumed[key]
	delete(te.resumed, key)

	logger := te.logger.With(
		zap.String("key", key),
		zap.String("kind", string(out.Intent.Kind)),
		zap.Int("seat", out.Intent.SeatID),
		zap.String("status", string(out.Status)),
	)

	if out.Fatal() {
		te.freeze(fmt.Errorf("%w: %s: %v", ErrTableSettlementStuck, key, out.Err))
		return
	}

	if !known {
		logger.Warn("outcome for an intent this table no longer tracks")
		return
	}

	if te.table.Status == TableStateStatus_TableFrozen {
		logger.Warn("outcome received while frozen")
		return
	}

	logger.Info("settlement outcome", zap.Int("attempts", out.Attempts))

	if resumed {
		te.onResumedOutcome(intent, out)
		return
	}

	switch intent.Kind {
	case ledger.KindBuyIn:
		te.onBuyInOutcome(intent, out)
	case ledger.KindCashOut:
		if out.Status == escrow.StatusRollbackConfirmed {
			logger.Warn("cash-out refunded after failure")
		}
	}
}

func (te *tableEngine) onBuyInOutcome(intent escrow.Intent, out escrow.Outcome) {
	s := te.seat(intent.SeatID)
	if s == nil || s.Pending == nil || s.Pending.Intent.Key != intent.Key {
		// expired already; the rollback_join dispatched at expiry undoes it
		return
	}

	pending := s.Pending
	s.Pending = nil

	if !out.Confirmed() {
		te.windows.Cancel(intent.Key)
		te.emptySeat(s)
		te.emitErrorEvent("BuyIn", intent.SeatID, fmt.Errorf("%w: %v", ErrTableBuyInRefused, out.Err))
		return
	}

	if err := te.windows.Confirm(intent.Key); err != nil {
		te.logger.Debug("buy-in window already closed", zap.String("key", intent.Key))
	}

	s.Stack += intent.Amount
	s.BustedAt = time.Time{}
	s.Status = SeatStatus_Active
	if s.SittingOut {
		s.Status = SeatStatus_SittingOut
	}
	te.table.Escrowed += intent.Amount

	record := store.BuyInRecord{
		Key:       intent.Key,
		TableID:   intent.TableID,
		SeatID:    intent.SeatID,
		UserID:    intent.UserID,
		Amount:    intent.Amount,
		CreatedAt: intent.CreatedAt,
	}
	te.persist("record buy-in", func(ctx context.Context) error {
		return te.store.RecordBuyIn(ctx, record)
	})

	if pending.LeaveOnConfirm || te.table.Closing {
		te.cashOutAndEmpty(s)
		te.emitEvent("BuyInConfirmed", s.ID)
		return
	}

	te.emitEvent("BuyInConfirmed", s.ID)
	te.tryStartHand()
}

// onResumedOutcome settles an intent left over from an earlier run of the
// table. The seat it was made for no longer exists, so a buy-in that went
// through is rolled back to the wallet.
func (te *tableEngine) onResumedOutcome(intent escrow.Intent, out escrow.Outcome) {
	if intent.Kind != ledger.KindBuyIn || !out.Confirmed() {
		return
	}

	comp, ok := intent.Compensation()
	if !ok {
		return
	}
	te.logger.Warn("rolling back buy-in of a seat lost in restart",
		zap.String("key", intent.Key),
		zap.String("user_id", intent.UserID),
		zap.Int64("amount", intent.Amount),
	)
	te.dispatch(comp)
}

// expireBuyIn reverts a seat whose buy-in was not confirmed inside its window.
func (te *tableEngine) expireBuyIn(key string) {
	for _, s := range te.table.Seats {
		if s.Pending == nil || s.Pending.Intent.Key != key {
			continue
		}

		te.windows.Cancel(key)
		intent := s.Pending.Intent
		s.Pending = nil
		te.emptySeat(s)

		if comp, ok := intent.Compensation(); ok {
			te.dispatch(comp)
		}

		te.emitErrorEvent("BuyInExpired", s.ID, ErrTableBuyInExpired)
		return
	}
}

func (te *tableEngine) expireBuyIns(now time.Time) {
	for _, s := range te.table.Seats {
		if s.Pending == nil || s.Pending.Intent.ValidUntil.IsZero() {
			continue
		}
		if !now.Before(s.Pending.Intent.ValidUntil) {
			te.expireBuyIn(s.Pending.Intent.Key)
		}
	}
}

// cashOutAndEmpty returns the seat's stack to its wallet and frees the seat.
func (te *tableEngine) cashOutAndEmpty(s *seat) {
	if s.Stack > 0 {
		intent := escrow.NewIntent(ledger.KindCashOut, te.table.ID, s.ID, s.UserID, s.Stack)
		intent.HandNo = te.table.HandCount
		te.table.Returned += s.Stack
		s.Stack = 0
		te.dispatch(intent)
	}
	te.emptySeat(s)
}

func (te *tableEngine) emptySeat(s *seat) {
	if s.UserID != "" {
		if err := te.sm.RemoveSeat(s.UserID); err != nil {
			te.logger.Debug("seat manager remove", zap.Int("seat", s.ID), zap.Error(err))
		}
	}
	s.reset()
}

func (te *tableEngine) armActionTimer() {
	h := te.table.Hand
	h.TurnSerial++
	h.ActionDeadline = te.now().Add(te.table.Setting.ActionTimeout)

	turn := h.TurnSerial
	te.actionTB.Cancel()
	if err := te.actionTB.NewTask(te.table.Setting.ActionTimeout, func(isCancelled bool) {
		if isCancelled {
			return
		}
		te.postTimer(loopCommand{kind: cmdActionTimeout, turn: turn})
	}); err != nil {
		te.logger.Error("unable to arm action timer", zap.Error(err))
	}
}

func (te *tableEngine) cancelActionTimer() {
	te.actionTB.Cancel()
	if te.table.Hand != nil {
		te.table.Hand.ActionDeadline = time.Time{}
	}
}

func (te *tableEngine) scheduleNextHand() {
	interval := te.table.Setting.Interval
	te.table.NextHandAt = te.now().Add(interval)

	if interval <= 0 {
		go te.post(loopCommand{kind: cmdNextHand})
		return
	}

	te.handTB.Cancel()
	if err := te.handTB.NewTask(interval, func(isCancelled bool) {
		if isCancelled {
			return
		}
		te.postTimer(loopCommand{kind: cmdNextHand})
	}); err != nil {
		te.logger.Error("unable to schedule next hand", zap.Error(err))
	}
}

func (te *tableEngine) persist(name string, fn func(ctx context.Context) error) {
	job := persistJob{name: name, fn: fn}
	select {
	case te.persistCh <- job:
	default:
		go te.runPersist(job)
	}
}

func (te *tableEngine) persistLoop() {
	for {
		select {
		case job := <-te.persistCh:
			te.runPersist(job)
		case <-te.done:
			for {
				select {
				case job := <-te.persistCh:
					te.runPersist(job)
				default:
					return
				}
			}
		}
	}
}

func (te *tableEngine) runPersist(job persistJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := job.fn(ctx); err != nil {
		te.logger.Error("persist failed", zap.String("op", job.name), zap.Error(err))
	}
}

func (te *tableEngine) auditSnapshot() audit.Snapshot {
	snap := audit.Snapshot{
		Stacks:   make(map[int]int64),
		Escrowed: te.table.Escrowed,
		Returned: te.table.Returned,
	}
	for _, s := range te.table.Seats {
		if !s.IsEmpty() {
			snap.Stacks[s.ID] = s.Stack
		}
	}
	if te.table.Hand != nil {
		snap.Pot = te.table.Hand.PotAmount()
	}
	return snap
}

// audit checks chip conservation after every processed message.
func (te *tableEngine) audit() {
	if te.table.Status == TableStateStatus_TableFrozen {
		return
	}

	if err := audit.Check(te.auditSnapshot()); err != nil {
		te.freeze(fmt.Errorf("%w: %v", ErrTableInvariantViolated, err))
	}
}

// freeze halts the table. Player intents are refused from here on; outcomes are
// still logged so the operator can reconcile.
func (te *tableEngine) freeze(err error) {
	if te.table.Status == TableStateStatus_TableFrozen {
		te.logger.Error("additional fatal condition", zap.Bool("fatal", true), zap.Error(err))
		return
	}

	te.table.FatalErr = err
	te.actionTB.Cancel()
	te.handTB.Cancel()
	te.windows.Close()

	fields := []zap.Field{zap.Bool("fatal", true), zap.Error(err)}
	if te.table.Hand != nil {
		fields = append(fields, zap.Uint64("hand", te.table.Hand.No))
	}
	te.logger.Error("table frozen", fields...)

	te.setStatus(TableStateStatus_TableFrozen)
	te.onTableFatal(te.view(UnsetValue), err)
}
