package actor

import (
	"sync"

	"github.com/weedbox/holdemtable"
)

// observerRunner watches a table without acting and keeps the hand results.
type observerRunner struct {
	actor      Actor
	mu         sync.Mutex
	results    []*holdemtable.HandResult
	lastSerial int64

	onHandCompleted func(*holdemtable.HandResult)
}

func NewObserverRunner() *observerRunner {
	return &observerRunner{
		onHandCompleted: func(*holdemtable.HandResult) {},
	}
}

func (obr *observerRunner) SetActor(a Actor) {
	obr.actor = a
}

func (obr *observerRunner) OnHandCompleted(fn func(*holdemtable.HandResult)) {
	obr.onHandCompleted = fn
}

func (obr *observerRunner) UpdateTableState(v *holdemtable.TableView) error {
	obr.mu.Lock()

	// out of order or repeated
	if v.UpdateSerial <= obr.lastSerial {
		obr.mu.Unlock()
		return nil
	}
	obr.lastSerial = v.UpdateSerial

	r := v.LastResult
	if r == nil || (len(obr.results) > 0 && obr.results[len(obr.results)-1].HandNo >= r.HandNo) {
		obr.mu.Unlock()
		return nil
	}
	obr.results = append(obr.results, r)
	obr.mu.Unlock()

	obr.onHandCompleted(r)
	return nil
}

func (obr *observerRunner) Results() []*holdemtable.HandResult {
	obr.mu.Lock()
	defer obr.mu.Unlock()
	return append([]*holdemtable.HandResult(nil), obr.results...)
}
