package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weedbox/holdemtable"
)

func TestActor_ObserverRunner_RecordsEachHandOnce(t *testing.T) {
	observer := NewObserverRunner()
	completed := make([]uint64, 0)
	observer.OnHandCompleted(func(r *holdemtable.HandResult) {
		completed = append(completed, r.HandNo)
	})

	first := &holdemtable.HandResult{HandNo: 1}
	second := &holdemtable.HandResult{HandNo: 2}

	views := []*holdemtable.TableView{
		{UpdateSerial: 1},
		{UpdateSerial: 2, LastResult: first},
		{UpdateSerial: 3, LastResult: first},
		{UpdateSerial: 2, LastResult: second}, // stale serial
		{UpdateSerial: 4, LastResult: second},
	}
	for _, v := range views {
		require.NoError(t, observer.UpdateTableState(v))
	}

	assert.Equal(t, []uint64{1, 2}, completed)
	require.Len(t, observer.Results(), 2)
	assert.Equal(t, uint64(2), observer.Results()[1].HandNo)
}
