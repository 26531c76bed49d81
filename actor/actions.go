package actor

import (
	"github.com/weedbox/holdemtable"
)

type Actions interface {
	Fold() error
	Check() error
	Call() error
	Bet(to int64) error
	Raise(to int64) error
	Allin() error
}

type actions struct {
	actor Actor
}

func NewActions(a Actor) Actions {
	return &actions{actor: a}
}

func (a *actions) act(action holdemtable.Action) error {
	return a.actor.GetTable().Act(action)
}

func (a *actions) Fold() error {
	return a.act(holdemtable.Fold())
}

func (a *actions) Check() error {
	return a.act(holdemtable.Check())
}

func (a *actions) Call() error {
	return a.act(holdemtable.Call())
}

func (a *actions) Bet(to int64) error {
	return a.act(holdemtable.Bet(to))
}

func (a *actions) Raise(to int64) error {
	return a.act(holdemtable.Raise(to))
}

func (a *actions) Allin() error {
	return a.act(holdemtable.AllIn())
}
