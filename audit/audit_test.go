package audit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckBalanced(t *testing.T) {
	err := Check(Snapshot{
		Stacks:   map[int]int64{0: 980, 1: 960},
		Pot:      60,
		Escrowed: 2500,
		Returned: 500,
	})
	assert.NoError(t, err)
}

func TestCheckEmptyTable(t *testing.T) {
	assert.NoError(t, Check(Snapshot{}))
}

func TestCheckDetectsCreatedChips(t *testing.T) {
	err := Check(Snapshot{
		Stacks:   map[int]int64{0: 1001, 1: 1000},
		Escrowed: 2000,
	})
	assert.ErrorIs(t, err, ErrConservation)
}

func TestCheckNegativeValues(t *testing.T) {
	err := Check(Snapshot{Stacks: map[int]int64{3: -1}, Escrowed: -1})
	assert.ErrorIs(t, err, ErrNegativeStack)

	err = Check(Snapshot{Pot: -5})
	assert.ErrorIs(t, err, ErrNegativePot)
}

func TestSumDoesNotOverflow(t *testing.T) {
	totals, err := Sum(Snapshot{
		Stacks: map[int]int64{0: math.MaxInt64, 1: math.MaxInt64},
		Pot:    math.MaxInt64,
	})
	require.NoError(t, err)
	assert.True(t, totals.OnTable.GT(totals.Net))
	assert.False(t, totals.OnTable.IsInt64())

	assert.ErrorIs(t, Check(Snapshot{
		Stacks:   map[int]int64{0: math.MaxInt64, 1: math.MaxInt64},
		Escrowed: math.MaxInt64,
	}), ErrConservation)
}
