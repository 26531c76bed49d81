package actor

import (
	"sync"

	"github.com/weedbox/holdemtable"
)

type Actor interface {
	SetAdapter(ta Adapter)
	SetRunner(r Runner)
	GetTable() Adapter
	GetRunner() Runner
}

// Runner decides what an actor does when its table changes. UpdateTableState
// is called on the table goroutine and must not block on the table.
type Runner interface {
	SetActor(a Actor)
	UpdateTableState(v *holdemtable.TableView) error
}

type actor struct {
	adapter Adapter
	runner  Runner
}

func NewActor() Actor {
	return &actor{}
}

func (a *actor) SetAdapter(ta Adapter) {
	a.adapter = ta
	ta.SetActor(a)
}

func (a *actor) SetRunner(r Runner) {
	a.runner = r
	r.SetActor(a)
}

func (a *actor) GetTable() Adapter {
	return a.adapter
}

func (a *actor) GetRunner() Runner {
	return a.runner
}

// Broadcaster forwards table updates to every actor added to it. Its
// UpdateTableState can be registered as a table callback before the actors exist.
type Broadcaster struct {
	mu     sync.RWMutex
	actors []Actor
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

func (b *Broadcaster) Add(a Actor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actors = append(b.actors, a)
}

func (b *Broadcaster) UpdateTableState(v *holdemtable.TableView) {
	b.mu.RLock()
	actors := b.actors
	b.mu.RUnlock()

	for _, a := range actors {
		if a.GetTable() == nil {
			continue
		}
		_ = a.GetTable().UpdateTableState(v)
	}
}
