package actor

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/weedbox/holdemtable"
	"github.com/weedbox/holdemtable/betting"
	"github.com/weedbox/timebank"
)

type TableAutoRebuyRequestFunc func(tableID string, playerID string, seatID int)
type TableWagerActionUpdatedFunc func(tableID string, handNo uint64, street holdemtable.Street, playerID string, action betting.ActionKind, chips int64)

type ActionProbability struct {
	Action betting.ActionKind
	Weight float64
}

var (
	actionProbabilities = []ActionProbability{
		{Action: betting.Check, Weight: 0.1},
		{Action: betting.Call, Weight: 0.3},
		{Action: betting.Fold, Weight: 0.15},
		{Action: betting.AllIn, Weight: 0.05},
		{Action: betting.Raise, Weight: 0.3},
		{Action: betting.Bet, Weight: 0.1},
	}
)

type turnKey struct {
	handNo uint64
	turn   uint64
}

type botRunner struct {
	actor          Actor
	actions        Actions
	playerID       string
	maxThinkTime   time.Duration
	timebank       *timebank.TimeBank
	rng            *rand.Rand
	mu             sync.Mutex
	lastTurn       turnKey
	rebuyRequested uint64

	onTableWagerActionUpdated TableWagerActionUpdatedFunc
	onTableAutoRebuyRequested TableAutoRebuyRequestFunc
}

func NewBotRunner(playerID string) *botRunner {
	return &botRunner{
		playerID:                  playerID,
		timebank:                  timebank.NewTimeBank(),
		rng:                       rand.New(rand.NewSource(time.Now().UnixNano())),
		onTableWagerActionUpdated: func(string, uint64, holdemtable.Street, string, betting.ActionKind, int64) {},
		onTableAutoRebuyRequested: func(string, string, int) {},
	}
}

func (br *botRunner) SetActor(a Actor) {
	br.actor = a
	br.actions = NewActions(a)
}

// Humanized delays each action by a random thinking time up to max.
func (br *botRunner) Humanized(max time.Duration) {
	br.maxThinkTime = max
}

// Seed makes the bot's choices repeatable.
func (br *botRunner) Seed(seed int64) {
	br.mu.Lock()
	defer br.mu.Unlock()
	br.rng = rand.New(rand.NewSource(seed))
}

func (br *botRunner) OnTableWagerActionUpdated(fn TableWagerActionUpdatedFunc) {
	br.onTableWagerActionUpdated = fn
}

func (br *botRunner) OnTableAutoRebuyRequested(fn TableAutoRebuyRequestFunc) {
	br.onTableAutoRebuyRequested = fn
}

func (br *botRunner) UpdateTableState(v *holdemtable.TableView) error {

	seatID := v.SeatOf(br.playerID)

	// Eliminated or not seated yet
	if seatID == holdemtable.UnsetValue {
		return nil
	}

	seat := v.Seat(seatID)

	// Busted between hands: ask for a rebuy once per hand
	if seat.Stack == 0 && seat.PendingBuyIn == 0 && v.Status == holdemtable.TableStateStatus_WaitingForPlayers {
		br.mu.Lock()
		shouldRebuy := br.rebuyRequested != v.HandNo
		br.rebuyRequested = v.HandNo
		br.mu.Unlock()

		if shouldRebuy {
			go br.onTableAutoRebuyRequested(v.TableID, br.playerID, seatID)
		}
		return nil
	}

	if v.Status != holdemtable.TableStateStatus_BettingRound || v.CurrentSeat != seatID {
		return nil
	}

	// The same turn is announced by several events
	key := turnKey{handNo: v.HandNo, turn: v.TurnSerial}
	br.mu.Lock()
	if br.lastTurn == key {
		br.mu.Unlock()
		return nil
	}
	br.lastTurn = key
	br.mu.Unlock()

	thinkingTime := br.thinkingTime()
	if thinkingTime == 0 {
		go br.requestMove(key)
		return nil
	}

	return br.timebank.NewTask(thinkingTime, func(isCancelled bool) {
		if isCancelled {
			return
		}
		br.requestMove(key)
	})
}

func (br *botRunner) thinkingTime() time.Duration {
	if br.maxThinkTime <= 0 {
		return 0
	}
	br.mu.Lock()
	defer br.mu.Unlock()
	return time.Duration(br.rng.Int63n(int64(br.maxThinkTime)))
}

// requestMove runs off the table goroutine, so it may query the table.
func (br *botRunner) requestMove(key turnKey) {
	v, err := br.actor.GetTable().Snapshot()
	if err != nil || v.Legal == nil {
		return
	}

	// the turn moved on while thinking
	if v.HandNo != key.handNo || v.TurnSerial != key.turn {
		return
	}

	if err := br.requestAI(v); err != nil && !errors.Is(err, holdemtable.ErrTableNotYourTurn) {
		// an illegal amount still leaves fold available
		_ = br.actions.Fold()
	}
}

func (br *botRunner) calcActionProbabilities(actions []betting.ActionKind) map[betting.ActionKind]float64 {

	probabilities := make(map[betting.ActionKind]float64)
	totalWeight := 0.0
	for _, action := range actions {
		for _, p := range actionProbabilities {
			if action == p.Action {
				probabilities[action] = p.Weight
				totalWeight += p.Weight
				break
			}
		}
	}

	if totalWeight == 0 {
		return probabilities
	}

	scaleRatio := 1.0 / totalWeight
	for action, weight := range probabilities {
		probabilities[action] = weight * scaleRatio
	}

	return probabilities
}

func (br *botRunner) calcAction(actions []betting.ActionKind) betting.ActionKind {

	probabilities := br.calcActionProbabilities(actions)

	br.mu.Lock()
	randomNum := br.rng.Float64()
	br.mu.Unlock()

	// walk in the legal order so the choice is repeatable for a seed
	level := 0.0
	for _, action := range actions {
		level += probabilities[action]
		if randomNum < level {
			return action
		}
	}

	return actions[len(actions)-1]
}

func (br *botRunner) randomAmount(min, max int64) int64 {
	if max <= min {
		return max
	}
	br.mu.Lock()
	defer br.mu.Unlock()
	return br.rng.Int63n(max-min+1) + min
}

func (br *botRunner) requestAI(v *holdemtable.TableView) error {

	legal := v.Legal
	if len(legal.Actions) == 0 {
		return nil
	}

	action := legal.Actions[0]
	if len(legal.Actions) > 1 {
		action = br.calcAction(legal.Actions)
	}

	chips := int64(0)
	var err error
	switch action {
	case betting.Bet:
		chips = br.randomAmount(legal.MinRaiseTo, legal.MaxRaiseTo)
		err = br.actions.Bet(chips)
	case betting.Raise:
		chips = br.randomAmount(legal.MinRaiseTo, legal.MaxRaiseTo)
		err = br.actions.Raise(chips)
	case betting.Call:
		chips = legal.CallAmount
		err = br.actions.Call()
	case betting.Check:
		err = br.actions.Check()
	case betting.AllIn:
		chips = legal.MaxRaiseTo
		err = br.actions.Allin()
	default:
		action = betting.Fold
		err = br.actions.Fold()
	}
	if err != nil {
		return err
	}

	br.onTableWagerActionUpdated(v.TableID, v.HandNo, v.Street, br.playerID, action, chips)
	return nil
}
