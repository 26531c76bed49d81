package holdemtable

import (
	"github.com/weedbox/holdemtable/betting"
)

// Intent is a player's request to a table.
type Intent interface {
	IntentName() string
}

type Join struct {
	UserID string `json:"user_id"`
	BuyIn  int64  `json:"buy_in"`
}

type Leave struct{}

type Action struct {
	Kind   betting.ActionKind `json:"kind"`
	Amount int64              `json:"amount,omitempty"` // raise-to for Bet and Raise
}

type Tick struct{}

// SitOut marks a disconnected seat. It keeps its place in the running hand.
type SitOut struct{}

type SitIn struct{}

func (Join) IntentName() string { return "join" }
func (Leave) IntentName() string { return "leave" }
func (Action) IntentName() string { return "action" }
func (Tick) IntentName() string { return "tick" }
func (SitOut) IntentName() string { return "sit_out" }
func (SitIn) IntentName() string { return "sit_in" }

func Fold() Action { return Action{Kind: betting.Fold} }
func Check() Action { return Action{Kind: betting.Check} }
func Call() Action { return Action{Kind: betting.Call} }
func AllIn() Action { return Action{Kind: betting.AllIn} }
func Bet(to int64) Action { return Action{Kind: betting.Bet, Amount: to} }
func Raise(to int64) Action { return Action{Kind: betting.Raise, Amount: to} }
