package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/weedbox/holdemtable"
	"github.com/weedbox/holdemtable/actor"
	"github.com/weedbox/holdemtable/audit"
	"github.com/weedbox/holdemtable/escrow"
	"go.uber.org/zap"
)

var ErrSimulationIncomplete = errors.New("simulate: tables did not finish")

type simulateOptions struct {
	tables  int
	seats   int
	hands   int
	buyIn   int64
	funds   int64
	think   time.Duration
	timeout time.Duration
	verbose bool
}

func newSimulateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Seat bots at tables and play hands against the configured ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := simulateOptions{
				tables:  a.v.GetInt("simulate.tables"),
				seats:   a.v.GetInt("simulate.seats"),
				hands:   a.v.GetInt("simulate.hands"),
				buyIn:   a.v.GetInt64("simulate.buy_in"),
				funds:   a.v.GetInt64("simulate.funds"),
				think:   a.v.GetDuration("simulate.think"),
				timeout: a.v.GetDuration("simulate.timeout"),
				verbose: a.v.GetBool("simulate.verbose"),
			}
			return runSimulation(cmd.Context(), a, opts)
		},
	}

	flags := cmd.Flags()
	flags.Int("tables", 1, "number of tables")
	flags.Int("seats", 6, "bots per table")
	flags.Int("hands", 50, "hands to play at each table")
	flags.Int64("buy-in", 1000, "chips each bot brings to the table")
	flags.Int64("funds", 10000, "wallet each bot starts with")
	flags.Duration("think", 0, "upper bound of a bot's thinking time")
	flags.Duration("timeout", 2*time.Minute, "give up after this long")
	flags.Bool("verbose", false, "print every hand")

	bind(a.v, cmd, map[string]string{
		"simulate.tables":  "tables",
		"simulate.seats":   "seats",
		"simulate.hands":   "hands",
		"simulate.buy_in":  "buy-in",
		"simulate.funds":   "funds",
		"simulate.think":   "think",
		"simulate.timeout": "timeout",
		"simulate.verbose": "verbose",
	})

	return cmd
}

// simulatedTable is one table with its bots and what was observed there.
type simulatedTable struct {
	id      string
	engine  holdemtable.TableEngine
	players []string
	before  map[string]int64
	after   map[string]int64
	results func() []*holdemtable.HandResult
	last    atomic.Pointer[holdemtable.TableView]

	mu    sync.Mutex
	fatal error
}

func (st *simulatedTable) setFatal(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.fatal == nil {
		st.fatal = err
	}
}

func (st *simulatedTable) fatalErr() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.fatal
}

func runSimulation(ctx context.Context, a *app, opts simulateOptions) error {
	if opts.tables < 1 || opts.seats < 2 || opts.hands < 1 {
		return fmt.Errorf("simulate: need at least 1 table, 2 seats and 1 hand")
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	b, err := openBackend(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	manager := holdemtable.NewManager(b.ledger,
		holdemtable.WithManagerLogger(a.logger),
		holdemtable.WithManagerStore(b.store),
		holdemtable.WithEscrowOptions(a.cfg.EscrowOptions()),
		holdemtable.WithAlertHandler(func(out escrow.Outcome) {
			pterm.Warning.Printfln("settlement %s for %s at %s is %s", out.Intent.Kind, out.Intent.UserID, out.Intent.TableID, out.Status)
		}),
	)
	defer manager.Reset()

	tables := make([]*simulatedTable, 0, opts.tables)
	for i := 0; i < opts.tables; i++ {
		st, err := openTable(ctx, a, manager, b, opts)
		if err != nil {
			return err
		}
		tables = append(tables, st)
	}

	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("playing %d hands at %d tables", opts.hands, opts.tables))
	waitErr := waitHands(ctx, tables, opts.hands)
	if waitErr != nil {
		spinner.Fail(waitErr.Error())
	} else {
		spinner.Success("all tables finished")
	}

	for _, st := range tables {
		if err := closeTable(manager, st); err != nil {
			a.logger.Error("close table", zap.String("table_id", st.id), zap.Error(err))
		}
	}
	manager.Escrow().Wait()

	// ctx may have run out by now
	accounting := context.Background()

	var auditErr error
	for _, st := range tables {
		st.after = balances(accounting, b, st.players)
		escrowed, err := b.ledger.EscrowBalance(accounting, st.id)
		if err != nil {
			return err
		}
		if err := renderTable(st, escrowed); err != nil {
			auditErr = errors.Join(auditErr, err)
		}
	}

	return errors.Join(waitErr, auditErr)
}

func openTable(ctx context.Context, a *app, manager holdemtable.Manager, b *backend, opts simulateOptions) (*simulatedTable, error) {
	setting := a.cfg.TableSetting()
	if setting.MaxSeats < opts.seats {
		setting.MaxSeats = opts.seats
	}

	st := &simulatedTable{}
	broadcaster := actor.NewBroadcaster()

	callbacks := holdemtable.NewTableEngineCallbacks()
	callbacks.OnTableUpdated = func(v *holdemtable.TableView) {
		st.last.Store(v)
		broadcaster.UpdateTableState(v)
	}
	callbacks.OnTableErrorUpdated = func(v *holdemtable.TableView, err error) {
		a.logger.Debug("table error", zap.String("table_id", v.TableID), zap.Error(err), zap.String("table", v.DebugString()))
	}
	callbacks.OnTableFatal = func(v *holdemtable.TableView, err error) {
		a.logger.Error("table frozen", zap.Bool("fatal", true), zap.Error(err), zap.String("table", v.DebugString()))
		st.setFatal(err)
	}

	engine, err := manager.CreateTable(nil, callbacks, setting)
	if err != nil {
		return nil, err
	}
	st.id = engine.GetTableID()
	st.engine = engine

	observer := actor.NewObserverRunner()
	if opts.verbose {
		observer.OnHandCompleted(func(r *holdemtable.HandResult) {
			renderHand(st.id, r)
		})
	}
	oa := actor.NewActor()
	oa.SetAdapter(actor.NewTableEngineAdapter(engine, ""))
	oa.SetRunner(observer)
	broadcaster.Add(oa)
	st.results = observer.Results

	for i := 0; i < opts.seats; i++ {
		playerID := fmt.Sprintf("%s-bot%d", shortID(st.id), i+1)
		if err := b.ledger.Deposit(ctx, playerID, opts.funds); err != nil {
			return nil, err
		}
		st.players = append(st.players, playerID)

		ba := actor.NewActor()
		ba.SetAdapter(actor.NewTableEngineAdapter(engine, playerID))

		bot := actor.NewBotRunner(playerID)
		bot.Humanized(opts.think)
		bot.OnTableAutoRebuyRequested(func(tableID string, playerID string, seatID int) {
			if err := ba.GetTable().Join(seatID, opts.buyIn); err != nil {
				a.logger.Debug("rebuy", zap.String("table_id", tableID), zap.String("player", playerID), zap.Error(err))
			}
		})
		ba.SetRunner(bot)
		broadcaster.Add(ba)
	}
	st.before = balances(ctx, b, st.players)

	for _, playerID := range st.players {
		if err := engine.Submit(holdemtable.UnsetValue, holdemtable.Join{UserID: playerID, BuyIn: opts.buyIn}); err != nil {
			return nil, fmt.Errorf("%s join: %w", playerID, err)
		}
	}

	return st, nil
}

// starved reports whether the table is idle with fewer than two stacks and no
// buy-in on its way.
func (st *simulatedTable) starved() bool {
	v := st.last.Load()
	if v == nil || v.Status != holdemtable.TableStateStatus_WaitingForPlayers || v.HasPendingBuyIn() {
		return false
	}

	funded := 0
	for _, s := range v.Seats {
		if s.UserID != "" && s.Stack > 0 {
			funded++
		}
	}
	return funded < 2
}

func waitHands(ctx context.Context, tables []*simulatedTable, hands int) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	starvedSince := make(map[string]time.Time)

	for {
		done := true
		for _, st := range tables {
			if err := st.fatalErr(); err != nil {
				return fmt.Errorf("table %s: %w", st.id, err)
			}
			if len(st.results()) >= hands {
				continue
			}

			// a bust leaves the table short until a rebuy lands
			if !st.starved() {
				delete(starvedSince, st.id)
				done = false
				continue
			}
			since, ok := starvedSince[st.id]
			if !ok {
				starvedSince[st.id] = time.Now()
				done = false
				continue
			}
			if time.Since(since) < time.Second {
				done = false
			}
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrSimulationIncomplete, ctx.Err())
		case <-ticker.C:
		}
	}
}

func closeTable(manager holdemtable.Manager, st *simulatedTable) error {
	if err := manager.CloseTable(st.id); err != nil {
		return err
	}

	// the hand in progress still has to be played out by the bots
	select {
	case <-st.engine.Done():
		return nil
	case <-time.After(time.Minute):
		return fmt.Errorf("table %s did not close", st.id)
	}
}

func balances(ctx context.Context, b *backend, players []string) map[string]int64 {
	out := make(map[string]int64, len(players))
	for _, p := range players {
		balance, err := b.ledger.Balance(ctx, p)
		if err != nil {
			balance = -1
		}
		out[p] = balance
	}
	return out
}

// tableAudit checks the last table state and the wallets once the table is closed.
func tableAudit(st *simulatedTable, escrowed int64) error {
	if v := st.last.Load(); v != nil {
		stacks := make(map[int]int64, len(v.Seats))
		for _, s := range v.Seats {
			stacks[s.SeatID] = s.Stack
		}
		err := audit.Check(audit.Snapshot{
			Stacks:   stacks,
			Pot:      v.TotalPot,
			Escrowed: v.Escrowed,
			Returned: v.Returned,
		})
		if err != nil {
			return fmt.Errorf("table %s: %w", st.id, err)
		}
	}

	var before, after int64
	for _, p := range st.players {
		before += st.before[p]
		after += st.after[p]
	}
	if before != after || escrowed != 0 {
		return fmt.Errorf("table %s: %w: wallets %d -> %d, escrow left %d", st.id, audit.ErrConservation, before, after, escrowed)
	}

	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
