package betting

import (
	"fmt"
	"strings"
)

type ActionKind int

const (
	Fold ActionKind = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

var actionNames = map[ActionKind]string{
	Fold:  "fold",
	Check: "check",
	Call:  "call",
	Bet:   "bet",
	Raise: "raise",
	AllIn: "allin",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(k))
}

func ParseActionKind(s string) (ActionKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range actionNames {
		if name == s {
			return k, nil
		}
	}
	return Fold, fmt.Errorf("%w: unknown action %q", ErrInvalidAction, s)
}

// Action is a seat's decision. Amount is only read for Bet and Raise and is the
// total round commitment the seat wants to reach ("raise to").
type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount int64      `json:"amount,omitempty"`
}

func (a Action) String() string {
	if a.Kind == Bet || a.Kind == Raise {
		return fmt.Sprintf("%s %d", a.Kind, a.Amount)
	}
	return a.Kind.String()
}

// Legal describes what a seat may do right now.
type Legal struct {
	Actions    []ActionKind `json:"actions"`
	CallAmount int64        `json:"call_amount"`  // chips needed to call
	MinRaiseTo int64        `json:"min_raise_to"` // smallest legal Bet/Raise target
	MaxRaiseTo int64        `json:"max_raise_to"` // all-in target
}

func (l Legal) Has(kind ActionKind) bool {
	for _, k := range l.Actions {
		if k == kind {
			return true
		}
	}
	return false
}
