package betting

import (
	"errors"
)

var (
	ErrInvalidAction   = errors.New("betting: invalid action")
	ErrNotYourTurn     = errors.New("betting: not your turn")
	ErrInvalidBigBlind = errors.New("betting: big blind must be positive")
)

type RoundState int

const (
	NotStarted RoundState = iota
	InProgress
	Complete
)

func (s RoundState) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Complete:
		return "complete"
	}
	return "not_started"
}

// Player is one seat's chips for the current hand.
type Player struct {
	Seat     int   `json:"seat"`
	Stack    int64 `json:"stack"`     // chips behind
	RoundBet int64 `json:"round_bet"` // committed this round
	TotalBet int64 `json:"total_bet"` // committed this hand
	Folded   bool  `json:"folded"`
	AllIn    bool  `json:"allin"`

	acted    bool
	actedSeq int
}

func (p *Player) CanAct() bool {
	return !p.Folded && !p.AllIn && p.Stack > 0
}

func (p *Player) Acted() bool {
	return p.acted
}

// Tracker runs the betting rounds of one hand. Players are kept in seating order
// and addressed by their index in that order.
type Tracker struct {
	players       []*Player
	bigBlind      int64
	state         RoundState
	currentBet    int64
	minRaise      int64
	raiseSeq      int
	toAct         int
	lastAggressor int
}

func NewTracker(players []*Player, bigBlind int64) (*Tracker, error) {
	if bigBlind <= 0 {
		return nil, ErrInvalidBigBlind
	}

	t := &Tracker{
		players:  players,
		bigBlind: bigBlind,
	}
	t.ResetRound()

	return t, nil
}

func (t *Tracker) Players() []*Player {
	return t.players
}

func (t *Tracker) Player(idx int) *Player {
	if idx < 0 || idx >= len(t.players) {
		return nil
	}
	return t.players[idx]
}

func (t *Tracker) State() RoundState {
	return t.state
}

func (t *Tracker) CurrentBet() int64 {
	return t.currentBet
}

func (t *Tracker) MinRaise() int64 {
	return t.minRaise
}

// ToAct returns the index of the player to act, or -1 when nobody is.
func (t *Tracker) ToAct() int {
	return t.toAct
}

// LastAggressor returns the index of the last player that raised the bet this round, or -1.
func (t *Tracker) LastAggressor() int {
	return t.lastAggressor
}

// Pot is the sum of every contribution made this hand.
func (t *Tracker) Pot() int64 {
	total := int64(0)
	for _, p := range t.players {
		total += p.TotalBet
	}
	return total
}

func (t *Tracker) InHandCount() int {
	count := 0
	for _, p := range t.players {
		if !p.Folded {
			count++
		}
	}
	return count
}

func (t *Tracker) CanActCount() int {
	count := 0
	for _, p := range t.players {
		if p.CanAct() {
			count++
		}
	}
	return count
}

// ResetRound clears the per-round commitments before a new street.
func (t *Tracker) ResetRound() {
	for _, p := range t.players {
		p.RoundBet = 0
		p.acted = false
		p.actedSeq = 0
	}
	t.state = NotStarted
	t.currentBet = 0
	t.minRaise = t.bigBlind
	t.raiseSeq = 0
	t.toAct = -1
	t.lastAggressor = -1
}

// Post commits a forced contribution. A stack shorter than amount goes all-in for less.
func (t *Tracker) Post(idx int, amount int64) int64 {
	p := t.Player(idx)
	if p == nil || amount <= 0 || !p.CanAct() {
		return 0
	}

	posted := amount
	if posted > p.Stack {
		posted = p.Stack
	}

	t.commit(p, posted)
	if p.RoundBet > t.currentBet {
		t.currentBet = p.RoundBet
	}

	return posted
}

// OpenBet raises the amount to call without anyone acting, as when a big blind is posted short.
func (t *Tracker) OpenBet(level int64) {
	if level > t.currentBet {
		t.currentBet = level
	}
}

// StartRound opens action at index first, or the next player after it able to act.
func (t *Tracker) StartRound(first int) {
	t.state = InProgress
	t.toAct = -1

	if t.isComplete() {
		t.state = Complete
		return
	}

	t.toAct = t.nextToAct(first)
	if t.toAct == -1 {
		t.state = Complete
	}
}

func (t *Tracker) Legal(idx int) Legal {
	legal := Legal{}

	p := t.Player(idx)
	if p == nil || t.state != InProgress || !p.CanAct() {
		return legal
	}

	toCall := t.currentBet - p.RoundBet
	if toCall < 0 {
		toCall = 0
	}
	maxTo := p.RoundBet + p.Stack
	canRaise := t.canRaise(idx)

	legal.MaxRaiseTo = maxTo
	legal.CallAmount = toCall
	if toCall > p.Stack {
		legal.CallAmount = p.Stack
	}

	if t.currentBet == 0 {
		legal.MinRaiseTo = t.bigBlind
	} else {
		legal.MinRaiseTo = t.currentBet + t.minRaise
	}
	if legal.MinRaiseTo > maxTo {
		legal.MinRaiseTo = maxTo
	}

	legal.Actions = append(legal.Actions, Fold)

	if toCall == 0 {
		legal.Actions = append(legal.Actions, Check)
	} else {
		legal.Actions = append(legal.Actions, Call)
	}

	if canRaise {
		if t.currentBet == 0 && maxTo >= t.bigBlind {
			legal.Actions = append(legal.Actions, Bet)
		}
		if t.currentBet > 0 && maxTo >= t.currentBet+t.minRaise {
			legal.Actions = append(legal.Actions, Raise)
		}
	}

	// with betting closed an all-in only commits what calling takes
	if canRaise || toCall > 0 {
		legal.Actions = append(legal.Actions, AllIn)
	}

	return legal
}

// AutoAction is the action taken for a seat that timed out or left.
func (t *Tracker) AutoAction(idx int) Action {
	if t.Legal(idx).Has(Check) {
		return Action{Kind: Check}
	}
	return Action{Kind: Fold}
}

// Apply validates and performs an action. On error nothing changes.
func (t *Tracker) Apply(idx int, action Action) error {
	if t.state != InProgress {
		return ErrInvalidAction
	}

	if idx != t.toAct {
		return ErrNotYourTurn
	}

	p := t.players[idx]
	legal := t.Legal(idx)
	if !legal.Has(action.Kind) {
		return ErrInvalidAction
	}

	amount := int64(0)
	switch action.Kind {
	case Fold:
		p.Folded = true
	case Check:
	case Call:
		amount = legal.CallAmount
	case Bet, Raise:
		target := action.Amount
		if target > legal.MaxRaiseTo {
			return ErrInvalidAction
		}
		if target < legal.MinRaiseTo {
			return ErrInvalidAction
		}
		amount = target - p.RoundBet
	case AllIn:
		amount = p.Stack
		if !t.canRaise(idx) {
			amount = legal.CallAmount
		}
	default:
		return ErrInvalidAction
	}

	previousBet := t.currentBet
	t.commit(p, amount)

	if p.RoundBet > previousBet {
		raiseSize := p.RoundBet - previousBet
		if raiseSize >= t.minRaise {
			t.minRaise = raiseSize
			t.raiseSeq++
		}
		t.currentBet = p.RoundBet
		t.lastAggressor = idx
	}

	p.acted = true
	p.actedSeq = t.raiseSeq

	if t.isComplete() {
		t.state = Complete
		t.toAct = -1
		return nil
	}

	t.toAct = t.nextToAct(idx + 1)
	if t.toAct == -1 {
		t.state = Complete
	}

	return nil
}

func (t *Tracker) commit(p *Player, amount int64) {
	if amount <= 0 {
		return
	}
	p.Stack -= amount
	p.RoundBet += amount
	p.TotalBet += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
}

// canRaise reports whether betting is open for idx: it has not acted yet, or a full
// raise happened since it did, and someone else is left to respond.
func (t *Tracker) canRaise(idx int) bool {
	p := t.players[idx]
	if p.acted && p.actedSeq >= t.raiseSeq {
		return false
	}

	for i, other := range t.players {
		if i != idx && other.CanAct() {
			return true
		}
	}
	return false
}

func (t *Tracker) needsAction(p *Player) bool {
	return p.CanAct() && (!p.acted || p.RoundBet < t.currentBet)
}

func (t *Tracker) nextToAct(from int) int {
	n := len(t.players)
	if n == 0 {
		return -1
	}
	from = ((from % n) + n) % n
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		if t.needsAction(t.players[idx]) {
			return idx
		}
	}
	return -1
}

func (t *Tracker) isComplete() bool {
	if t.InHandCount() <= 1 {
		return true
	}

	var last *Player
	canAct := 0
	for _, p := range t.players {
		if p.CanAct() {
			canAct++
			last = p
		}
	}

	if canAct == 0 {
		return true
	}

	// a lone player with chips facing nothing has nobody left to bet against
	if canAct == 1 && last.RoundBet >= t.currentBet {
		return true
	}

	for _, p := range t.players {
		if t.needsAction(p) {
			return false
		}
	}
	return true
}
