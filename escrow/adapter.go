package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/weedbox/holdemtable/ledger"
	"github.com/weedbox/holdemtable/store"
	"go.uber.org/zap"
)

var (
	ErrRetriesExhausted = errors.New("escrow: retries exhausted")
	ErrInvalidIntent    = errors.New("escrow: invalid intent")
)

type Options struct {
	MaxAttempts    int
	Backoff        time.Duration
	AttemptTimeout time.Duration
}

func NewOptions() *Options {
	return &Options{
		MaxAttempts:    5,
		Backoff:        200 * time.Millisecond,
		AttemptTimeout: 5 * time.Second,
	}
}

type AdapterOpt func(*Adapter)

func WithLogger(logger *zap.Logger) AdapterOpt {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithOptions(opts *Options) AdapterOpt {
	return func(a *Adapter) {
		if opts != nil {
			a.opts = *opts
		}
	}
}

func WithStore(s store.Store) AdapterOpt {
	return func(a *Adapter) {
		if s != nil {
			a.store = s
		}
	}
}

// WithAlertHandler registers the operator alert fired when an intent ends FatalStuck.
func WithAlertHandler(fn func(Outcome)) AdapterOpt {
	return func(a *Adapter) {
		if fn != nil {
			a.onAlert = fn
		}
	}
}

// Adapter applies settlement intents to the ledger, one compensating state
// machine per intent:
//
//	Pending -> Confirmed
//	Pending -> Failed -> RollbackPending -> RollbackConfirmed | FatalStuck
type Adapter struct {
	ledger  ledger.Ledger
	store   store.Store
	opts    Options
	logger  *zap.Logger
	onAlert func(Outcome)
	sleep   func(ctx context.Context, d time.Duration) error
	wg      sync.WaitGroup
}

func NewAdapter(l ledger.Ledger, opts ...AdapterOpt) *Adapter {
	a := &Adapter{
		ledger:  l,
		store:   store.NewMemory(),
		opts:    *NewOptions(),
		logger:  zap.NewNop(),
		onAlert: func(Outcome) {},
		sleep:   sleepContext,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.opts.MaxAttempts < 1 {
		a.opts.MaxAttempts = 1
	}

	return a
}

func (a *Adapter) Store() store.Store {
	return a.store
}

// Apply runs the intent to a terminal status. A key that already reached a
// terminal status returns the recorded outcome without touching the ledger.
func (a *Adapter) Apply(ctx context.Context, intent Intent) Outcome {
	if intent.Key == "" || intent.TableID == "" || intent.UserID == "" {
		return Outcome{Intent: intent, Status: StatusFailed, Err: ErrInvalidIntent}
	}
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now()
	}

	logger := a.logger.With(
		zap.String("table_id", intent.TableID),
		zap.Int("seat", intent.SeatID),
		zap.String("kind", string(intent.Kind)),
		zap.String("key", intent.Key),
	)

	if prev, err := a.store.GetIntent(ctx, intent.Key); err == nil && Status(prev.Status).Terminal() {
		logger.Debug("intent already settled", zap.String("status", prev.Status))
		return Outcome{
			Intent:     intent,
			Status:     Status(prev.Status),
			TransferID: prev.TransferID,
			Attempts:   prev.Attempts,
		}
	}

	if intent.Supersedes != "" {
		out := a.applyCompensation(ctx, logger, intent)
		if out.Fatal() {
			a.alert(logger, out)
		}
		return out
	}

	a.save(ctx, logger, intent, StatusPending, "", 0, nil)

	id, attempts, err := a.transfer(ctx, logger, intent)
	if err == nil {
		a.save(ctx, logger, intent, StatusConfirmed, id, attempts, nil)
		return Outcome{Intent: intent, Status: StatusConfirmed, TransferID: id, Attempts: attempts}
	}

	logger.Warn("intent failed", zap.Int("attempts", attempts), zap.Error(err))
	a.save(ctx, logger, intent, StatusFailed, "", attempts, err)

	out := Outcome{Intent: intent, Status: StatusFailed, Attempts: attempts, Err: err}

	comp, ok := intent.Compensation()
	if !ok {
		out.Status = StatusFatalStuck
		a.save(ctx, logger, intent, StatusFatalStuck, "", attempts, err)
		a.alert(logger, out)
		return out
	}

	out.Compensation = &comp
	a.save(ctx, logger, comp, StatusPending, "", 0, nil)
	a.save(ctx, logger, intent, StatusRollbackPending, "", attempts, err)

	compOut := a.applyCompensation(ctx, logger, comp)
	if compOut.Fatal() {
		out.Status = StatusFatalStuck
		out.Err = errors.Join(err, compOut.Err)
		a.alert(logger, out)
		return out
	}

	out.Status = StatusRollbackConfirmed
	out.TransferID = compOut.TransferID
	return out
}

// applyCompensation applies an intent that supersedes another one and moves
// the superseded record to its final status.
func (a *Adapter) applyCompensation(ctx context.Context, logger *zap.Logger, comp Intent) Outcome {
	logger = logger.With(zap.String("supersedes", comp.Supersedes))

	a.save(ctx, logger, comp, StatusPending, "", 0, nil)

	id, attempts, err := a.transfer(ctx, logger, comp)

	status := StatusConfirmed
	originalStatus := StatusRollbackConfirmed
	if err != nil {
		status = StatusFatalStuck
		originalStatus = StatusFatalStuck
	}
	a.save(ctx, logger, comp, status, id, attempts, err)

	if original, gerr := a.store.GetIntent(ctx, comp.Supersedes); gerr == nil {
		original.Status = string(originalStatus)
		original.Terminal = true
		if err != nil {
			original.LastError = err.Error()
		}
		if serr := a.store.SaveIntent(ctx, original); serr != nil {
			logger.Error("persist superseded intent", zap.Error(serr))
		}
	}

	if err != nil {
		logger.Error("compensation failed", zap.Bool("fatal", true), zap.Error(err))
	}
	return Outcome{Intent: comp, Status: status, TransferID: id, Attempts: attempts, Err: err}
}

// transfer calls the ledger with the intent's key, retrying unavailability.
// A duplicate key counts as success and yields the recorded transfer ID.
func (a *Adapter) transfer(ctx context.Context, logger *zap.Logger, intent Intent) (string, int, error) {
	req := intent.request()

	var lastErr error
	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		attemptCtx, cancel := a.attemptContext(ctx)
		id, err := a.ledger.Transfer(attemptCtx, req)
		cancel()

		switch {
		case err == nil:
			return id, attempt, nil
		case errors.Is(err, ledger.ErrDuplicateKey):
			logger.Info("duplicate key, effect already recorded", zap.String("transfer_id", id))
			return id, attempt, nil
		case !errors.Is(err, ledger.ErrUnavailable):
			return "", attempt, err
		}

		lastErr = err
		logger.Warn("ledger unavailable", zap.Int("attempt", attempt), zap.Error(err))

		if attempt == a.opts.MaxAttempts {
			break
		}
		if serr := a.sleep(ctx, a.opts.Backoff*time.Duration(attempt)); serr != nil {
			return "", attempt, fmt.Errorf("%w: %w", lastErr, serr)
		}
	}

	return "", a.opts.MaxAttempts, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, a.opts.MaxAttempts, lastErr)
}

func (a *Adapter) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.opts.AttemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.opts.AttemptTimeout)
}

func (a *Adapter) save(ctx context.Context, logger *zap.Logger, intent Intent, status Status, transferID string, attempts int, cause error) {
	r := intent.record(status)
	r.TransferID = transferID
	r.Attempts = attempts
	if cause != nil {
		r.LastError = cause.Error()
	}

	if err := a.store.SaveIntent(ctx, r); err != nil {
		logger.Error("persist intent", zap.String("status", string(status)), zap.Error(err))
	}
}

func (a *Adapter) alert(logger *zap.Logger, out Outcome) {
	logger.Error("chips stuck in escrow",
		zap.Bool("fatal", true),
		zap.String("user_id", out.Intent.UserID),
		zap.Int64("amount", out.Intent.Amount),
		zap.Error(out.Err),
	)
	a.onAlert(out)
}

// Dispatch applies the intent on its own goroutine and hands the outcome to fn.
func (a *Adapter) Dispatch(intent Intent, fn func(Outcome)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		out := a.Apply(context.Background(), intent)
		if fn != nil {
			fn(out)
		}
	}()
}

// Unsettled lists the intents of a table that still need ledger work, with
// their original keys. Intents waiting on a compensation are left out; the
// compensation is listed instead and settles them.
func (a *Adapter) Unsettled(ctx context.Context, tableID string) ([]Intent, error) {
	records, err := a.store.ListUnsettledIntents(ctx, tableID)
	if err != nil {
		return nil, err
	}

	intents := make([]Intent, 0, len(records))
	for _, r := range records {
		if Status(r.Status) == StatusRollbackPending {
			continue
		}
		intents = append(intents, intentFromRecord(r))
	}
	return intents, nil
}

// Resume re-dispatches every unsettled intent of a table.
func (a *Adapter) Resume(ctx context.Context, tableID string, fn func(Outcome)) (int, error) {
	intents, err := a.Unsettled(ctx, tableID)
	if err != nil {
		return 0, err
	}

	for _, intent := range intents {
		a.logger.Info("resuming intent",
			zap.String("table_id", tableID),
			zap.String("key", intent.Key),
			zap.String("kind", string(intent.Kind)),
		)
		a.Dispatch(intent, fn)
	}

	return len(intents), nil
}

// Wait blocks until every dispatched intent has reported its outcome.
func (a *Adapter) Wait() {
	a.wg.Wait()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
