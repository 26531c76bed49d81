package features

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cucumber/godog"
	"github.com/weedbox/holdemtable"
	"github.com/weedbox/holdemtable/betting"
	"github.com/weedbox/holdemtable/card"
	"github.com/weedbox/holdemtable/escrow"
	"github.com/weedbox/holdemtable/evaluator"
	"github.com/weedbox/holdemtable/ledger"
	"github.com/weedbox/holdemtable/pot"
	"github.com/weedbox/holdemtable/store"
)

const (
	walletFunds = int64(5000)
	waitTimeout = 5 * time.Second
	tableID     = "feature-table"
)

type scenarioKey struct{}

// scenarioContext holds the state of one scenario.
type scenarioContext struct {
	ledger  *ledger.Memory
	adapter *escrow.Adapter
	manager holdemtable.Manager
	engine  holdemtable.TableEngine
	setting holdemtable.TableSetting
	funded  map[string]int64

	mu      sync.Mutex
	results map[uint64]*holdemtable.HandResult

	contribs []pot.Contribution
	pots     []pot.Pot
	outcomes []escrow.Outcome
}

func newScenarioContext() *scenarioContext {
	l := ledger.NewMemory()

	options := escrow.NewOptions()
	options.Backoff = 0

	setting := holdemtable.NewDefaultTableSetting()
	setting.TableID = tableID
	setting.MaxSeats = 6

	return &scenarioContext{
		ledger:  l,
		adapter: escrow.NewAdapter(l, escrow.WithStore(store.NewMemory()), escrow.WithOptions(options)),
		manager: holdemtable.NewManager(l, holdemtable.WithEscrowOptions(options)),
		setting: setting,
		funded:  make(map[string]int64),
		results: make(map[uint64]*holdemtable.HandResult),
	}
}

func current(ctx context.Context) *scenarioContext {
	return ctx.Value(scenarioKey{}).(*scenarioContext)
}

func (sc *scenarioContext) close() {
	sc.manager.Reset()
	sc.adapter.Wait()
}

// table creates the table on first use so Given steps can shape the setting.
func (sc *scenarioContext) table() (holdemtable.TableEngine, error) {
	if sc.engine != nil {
		return sc.engine, nil
	}

	callbacks := holdemtable.NewTableEngineCallbacks()
	callbacks.OnTableUpdated = func(v *holdemtable.TableView) {
		if v.LastResult == nil {
			return
		}
		sc.mu.Lock()
		sc.results[v.LastResult.HandNo] = v.LastResult
		sc.mu.Unlock()
	}

	options := holdemtable.NewTableEngineOptions()
	options.DeckSeed = 99

	engine, err := sc.manager.CreateTable(options, callbacks, sc.setting)
	if err != nil {
		return nil, err
	}
	sc.engine = engine
	return engine, nil
}

func (sc *scenarioContext) view() (*holdemtable.TableView, error) {
	engine, err := sc.table()
	if err != nil {
		return nil, err
	}
	return engine.Snapshot(holdemtable.UnsetValue)
}

func (sc *scenarioContext) waitFor(what string, cond func(v *holdemtable.TableView) bool) (*holdemtable.TableView, error) {
	deadline := time.Now().Add(waitTimeout)
	var last *holdemtable.TableView
	for time.Now().Before(deadline) {
		v, err := sc.view()
		if err != nil {
			return nil, err
		}
		last = v
		if cond(v) {
			return v, nil
		}
		time.Sleep(5 * time.Millisecond)
	}

	encoded, _ := last.GetJSON()
	return nil, fmt.Errorf("timed out waiting for %s: %s", what, encoded)
}

func (sc *scenarioContext) fund(userID string, amount int64) error {
	if err := sc.ledger.Deposit(context.Background(), userID, amount); err != nil {
		return err
	}
	sc.funded[userID] += amount
	return nil
}

func (sc *scenarioContext) seatOf(userID string) (int, error) {
	v, err := sc.view()
	if err != nil {
		return 0, err
	}
	seatID := v.SeatOf(userID)
	if seatID == holdemtable.UnsetValue {
		return 0, fmt.Errorf("%s is not seated", userID)
	}
	return seatID, nil
}

func parseAction(name string) (holdemtable.Action, error) {
	kind, err := betting.ParseActionKind(name)
	if err != nil {
		return holdemtable.Action{}, err
	}
	return holdemtable.Action{Kind: kind}, nil
}

// Given

func aTableWithBlinds(ctx context.Context, sb, bb int64) error {
	sc := current(ctx)
	sc.setting.SmallBlind = sb
	sc.setting.BigBlind = bb
	return nil
}

func buyInsFromChipsAreAllowed(ctx context.Context, min int64) error {
	current(ctx).setting.MinBuyIn = min
	return nil
}

func actionsTimeOutAfter(ctx context.Context, ms int) error {
	current(ctx).setting.ActionTimeout = time.Duration(ms) * time.Millisecond
	return nil
}

func hasInTheWallet(ctx context.Context, userID string, amount int64) error {
	return current(ctx).fund(userID, amount)
}

func sitsAtSeatWithChips(ctx context.Context, userID string, seatID int, buyIn int64) error {
	sc := current(ctx)
	if sc.funded[userID] == 0 {
		if err := sc.fund(userID, walletFunds); err != nil {
			return err
		}
	}

	engine, err := sc.table()
	if err != nil {
		return err
	}
	if err := engine.Submit(seatID, holdemtable.Join{UserID: userID, BuyIn: buyIn}); err != nil {
		return err
	}

	_, err = sc.waitFor(userID+" to be seated", func(v *holdemtable.TableView) bool {
		seat := v.Seat(seatID)
		return seat != nil && seat.UserID == userID && seat.Status != holdemtable.SeatStatus_PendingBuyIn
	})
	return err
}

func theseContributions(ctx context.Context, table *godog.Table) error {
	sc := current(ctx)
	for _, row := range table.Rows[1:] {
		seatID, err := strconv.Atoi(row.Cells[0].Value)
		if err != nil {
			return err
		}
		amount, err := strconv.ParseInt(row.Cells[1].Value, 10, 64)
		if err != nil {
			return err
		}
		sc.contribs = append(sc.contribs, pot.Contribution{
			Seat:   seatID,
			Amount: amount,
			Folded: row.Cells[2].Value == "yes",
		})
	}
	return nil
}

// When

func handIsDealt(ctx context.Context, handNo int) error {
	_, err := current(ctx).waitFor(fmt.Sprintf("hand %d", handNo), func(v *holdemtable.TableView) bool {
		return v.HandNo == uint64(handNo) && v.Status == holdemtable.TableStateStatus_BettingRound
	})
	return err
}

func plays(ctx context.Context, userID string, name string) error {
	sc := current(ctx)
	action, err := parseAction(name)
	if err != nil {
		return err
	}
	seatID, err := sc.seatOf(userID)
	if err != nil {
		return err
	}
	return sc.engine.Submit(seatID, action)
}

func asksForSeatWithChips(ctx context.Context, userID string, seatID int, buyIn int64) error {
	engine, err := current(ctx).table()
	if err != nil {
		return err
	}
	return engine.Submit(seatID, holdemtable.Join{UserID: userID, BuyIn: buyIn})
}

func everyoneChecksOrCallsThroughHands(ctx context.Context, hands int) error {
	sc := current(ctx)
	deadline := time.Now().Add(4 * waitTimeout)
	for time.Now().Before(deadline) {
		v, err := sc.view()
		if err != nil {
			return err
		}
		if v.HandNo > uint64(hands) {
			return nil
		}
		if v.Status != holdemtable.TableStateStatus_BettingRound || v.CurrentSeat == holdemtable.UnsetValue {
			time.Sleep(time.Millisecond)
			continue
		}

		seatView, err := sc.engine.Snapshot(v.CurrentSeat)
		if err != nil || seatView.Legal == nil {
			continue
		}
		action := holdemtable.Call()
		if seatView.Legal.Has(betting.Check) {
			action = holdemtable.Check()
		}
		if err := sc.engine.Submit(v.CurrentSeat, action); err != nil && !errors.Is(err, holdemtable.ErrTableNotYourTurn) {
			return err
		}
	}
	return fmt.Errorf("%d hands were not played in time", hands)
}

func theTableCloses(ctx context.Context) error {
	sc := current(ctx)
	if err := sc.manager.CloseTable(tableID); err != nil {
		return err
	}

	// a hand still running is checked down so the close can complete
	deadline := time.After(4 * waitTimeout)
	for {
		select {
		case <-sc.engine.Done():
			sc.manager.Escrow().Wait()
			return nil
		case <-deadline:
			return errors.New("table did not close")
		default:
		}

		v, err := sc.engine.Snapshot(holdemtable.UnsetValue)
		if err != nil || v.Status != holdemtable.TableStateStatus_BettingRound || v.CurrentSeat == holdemtable.UnsetValue {
			time.Sleep(time.Millisecond)
			continue
		}
		seatView, err := sc.engine.Snapshot(v.CurrentSeat)
		if err != nil || seatView.Legal == nil {
			continue
		}
		action := holdemtable.Call()
		if seatView.Legal.Has(betting.Check) {
			action = holdemtable.Check()
		}
		_ = sc.engine.Submit(v.CurrentSeat, action)
	}
}

func thePotsAreBuilt(ctx context.Context) error {
	sc := current(ctx)
	pots, err := pot.Build(sc.contribs)
	if err != nil {
		return err
	}
	sc.pots = pots
	return nil
}

func buysInForAtTableWithKey(ctx context.Context, userID string, amount int64, table, key string) error {
	sc := current(ctx)
	intent := escrow.NewIntent(ledger.KindBuyIn, table, 0, userID, amount)
	intent.Key = key

	out := sc.adapter.Apply(ctx, intent)
	if !out.Confirmed() {
		return fmt.Errorf("buy-in %s ended %s: %v", key, out.Status, out.Err)
	}
	sc.outcomes = append(sc.outcomes, out)
	return nil
}

// Then

func theStreetIs(ctx context.Context, street string) error {
	v, err := current(ctx).view()
	if err != nil {
		return err
	}
	if v.Street != holdemtable.Street(street) {
		return fmt.Errorf("expected street %s, got %s", street, v.Street)
	}
	return nil
}

func thePotIs(ctx context.Context, amount int64) error {
	v, err := current(ctx).view()
	if err != nil {
		return err
	}
	if v.TotalPot != amount {
		return fmt.Errorf("expected pot %d, got %d", amount, v.TotalPot)
	}
	return nil
}

func theBoardShowsCards(ctx context.Context, n int) error {
	v, err := current(ctx).view()
	if err != nil {
		return err
	}
	if len(v.Board) != n {
		return fmt.Errorf("expected %d board cards, got %v", n, v.Board)
	}
	return nil
}

func playingIsRejectedAsNotYourTurn(ctx context.Context, userID string, name string) error {
	err := plays(ctx, userID, name)
	if !errors.Is(err, holdemtable.ErrTableNotYourTurn) {
		return fmt.Errorf("expected %v, got %v", holdemtable.ErrTableNotYourTurn, err)
	}
	return nil
}

func seatIsAllInHavingPutIn(ctx context.Context, seatID int, amount int64) error {
	v, err := current(ctx).view()
	if err != nil {
		return err
	}
	seat := v.Seat(seatID)
	if seat.Status != holdemtable.SeatStatus_AllIn {
		return fmt.Errorf("seat %d is %s", seatID, seat.Status)
	}
	if seat.TotalBet != amount {
		return fmt.Errorf("seat %d put in %d, expected %d", seatID, seat.TotalBet, amount)
	}
	return nil
}

func seatHasChipsBehind(ctx context.Context, seatID int, amount int64) error {
	v, err := current(ctx).view()
	if err != nil {
		return err
	}
	if stack := v.Seat(seatID).Stack; stack != amount {
		return fmt.Errorf("seat %d has %d behind, expected %d", seatID, stack, amount)
	}
	return nil
}

func handIsWonByWith(ctx context.Context, handNo int, userID string, amount int64) error {
	sc := current(ctx)
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		sc.mu.Lock()
		r := sc.results[uint64(handNo)]
		sc.mu.Unlock()

		if r != nil {
			var won int64
			for _, a := range r.Awards {
				if a.UserID == userID {
					won += a.Amount
				}
			}
			if won != amount {
				return fmt.Errorf("%s won %d in hand %d, expected %d", userID, won, handNo, amount)
			}
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	return fmt.Errorf("hand %d did not finish", handNo)
}

func seatBecomesEmpty(ctx context.Context, seatID int) error {
	_, err := current(ctx).waitFor(fmt.Sprintf("seat %d to empty", seatID), func(v *holdemtable.TableView) bool {
		seat := v.Seat(seatID)
		return seat != nil && seat.Status == holdemtable.SeatStatus_Empty && seat.UserID == ""
	})
	if err != nil {
		return err
	}
	current(ctx).manager.Escrow().Wait()
	return nil
}

func theTableHoldsExactlyWhatEscrowHolds(ctx context.Context) error {
	sc := current(ctx)
	v, err := sc.view()
	if err != nil {
		return err
	}

	var stacks int64
	for _, s := range v.Seats {
		stacks += s.Stack
	}
	if stacks+v.TotalPot != v.Escrowed-v.Returned {
		return fmt.Errorf("table holds %d, escrowed %d returned %d", stacks+v.TotalPot, v.Escrowed, v.Returned)
	}

	sc.manager.Escrow().Wait()
	escrowed, err := sc.ledger.EscrowBalance(ctx, tableID)
	if err != nil {
		return err
	}
	if escrowed != v.Escrowed-v.Returned {
		return fmt.Errorf("ledger escrow %d, table accounts for %d", escrowed, v.Escrowed-v.Returned)
	}
	return nil
}

func everyWalletIsWholeAgain(ctx context.Context) error {
	sc := current(ctx)
	var funded, held int64
	for userID, amount := range sc.funded {
		balance, err := sc.ledger.Balance(ctx, userID)
		if err != nil {
			return err
		}
		funded += amount
		held += balance
	}
	if funded != held {
		return fmt.Errorf("wallets hold %d, %d was deposited", held, funded)
	}
	return nil
}

func theTableHoldsNothingInEscrow(ctx context.Context) error {
	return tableHoldsInEscrow(ctx, tableID, 0)
}

func thePotsHoldInTotal(ctx context.Context, amount int64) error {
	if total := pot.Total(current(ctx).pots); total != amount {
		return fmt.Errorf("pots hold %d, expected %d", total, amount)
	}
	return nil
}

func noPotListsSeatAsEligible(ctx context.Context, seatID int) error {
	for i, p := range current(ctx).pots {
		for _, s := range p.Eligible {
			if s == seatID {
				return fmt.Errorf("pot %d lists seat %d", i, seatID)
			}
		}
	}
	return nil
}

func thePotsAre(ctx context.Context, table *godog.Table) error {
	pots := current(ctx).pots
	rows := table.Rows[1:]
	if len(pots) != len(rows) {
		return fmt.Errorf("expected %d pots, got %+v", len(rows), pots)
	}

	for i, row := range rows {
		amount, err := strconv.ParseInt(row.Cells[0].Value, 10, 64)
		if err != nil {
			return err
		}
		eligible := fmt.Sprint(pots[i].Eligible)
		expected := "[" + strings.ReplaceAll(row.Cells[1].Value, ",", " ") + "]"
		if pots[i].Amount != amount || eligible != expected {
			return fmt.Errorf("pot %d is %d %s, expected %d %s", i, pots[i].Amount, eligible, amount, expected)
		}
	}
	return nil
}

func compareHands(a, b string) (int, error) {
	ca, err := card.ParseList(a)
	if err != nil {
		return 0, err
	}
	cb, err := card.ParseList(b)
	if err != nil {
		return 0, err
	}
	va, err := evaluator.Evaluate(ca)
	if err != nil {
		return 0, err
	}
	vb, err := evaluator.Evaluate(cb)
	if err != nil {
		return 0, err
	}
	return evaluator.Compare(va, vb), nil
}

func beats(ctx context.Context, stronger, weaker string) error {
	c, err := compareHands(stronger, weaker)
	if err != nil {
		return err
	}
	if c <= 0 {
		return fmt.Errorf("%q does not beat %q", stronger, weaker)
	}
	if back, _ := compareHands(weaker, stronger); back >= 0 {
		return fmt.Errorf("comparison of %q and %q is not antisymmetric", stronger, weaker)
	}
	return nil
}

func ties(ctx context.Context, a, b string) error {
	c, err := compareHands(a, b)
	if err != nil {
		return err
	}
	if c != 0 {
		return fmt.Errorf("%q and %q do not tie", a, b)
	}
	return nil
}

func isLeftWithInTheWallet(ctx context.Context, userID string, amount int64) error {
	balance, err := current(ctx).ledger.Balance(ctx, userID)
	if err != nil {
		return err
	}
	if balance != amount {
		return fmt.Errorf("%s has %d, expected %d", userID, balance, amount)
	}
	return nil
}

func tableHoldsInEscrow(ctx context.Context, table string, amount int64) error {
	escrowed, err := current(ctx).ledger.EscrowBalance(ctx, table)
	if err != nil {
		return err
	}
	if escrowed != amount {
		return fmt.Errorf("table %s holds %d, expected %d", table, escrowed, amount)
	}
	return nil
}

func theLedgerRecordedTransfers(ctx context.Context, n int) error {
	if got := len(current(ctx).ledger.Transfers()); got != n {
		return fmt.Errorf("ledger recorded %d transfers, expected %d", got, n)
	}
	return nil
}

func bothSettlementsReportTheSameTransfer(ctx context.Context) error {
	outcomes := current(ctx).outcomes
	if len(outcomes) != 2 {
		return fmt.Errorf("expected 2 settlements, got %d", len(outcomes))
	}
	if outcomes[0].TransferID == "" || outcomes[0].TransferID != outcomes[1].TransferID {
		return fmt.Errorf("transfers differ: %q and %q", outcomes[0].TransferID, outcomes[1].TransferID)
	}
	return nil
}
