package testcases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weedbox/holdemtable"
)

func TestTableGame_Preflop_Walk(t *testing.T) {
	s := NewScenario(t, NewSetting(3), "Jeffrey", "Chuck", "Fred")
	s.Join(0, "Jeffrey", 1000)
	s.Join(1, "Chuck", 1000)
	s.Join(2, "Fred", 1000)

	v := s.WaitHand(1)
	assert.Equal(t, int64(30), v.TotalPot)
	assert.Equal(t, int64(10), v.Seat(1).RoundBet)
	assert.Equal(t, int64(20), v.Seat(2).RoundBet)

	s.ActCurrent(0, holdemtable.Fold())
	v = s.ActCurrent(1, holdemtable.Fold())

	// the big blind takes the blinds without acting
	require.Equal(t, holdemtable.TableStateStatus_WaitingForPlayers, v.Status)
	assert.Equal(t, int64(1000), v.Seat(0).Stack)
	assert.Equal(t, int64(990), v.Seat(1).Stack)
	assert.Equal(t, int64(1010), v.Seat(2).Stack)

	r := v.LastResult
	AssertAwards(t, r)
	assert.Empty(t, r.Board)
	assert.Empty(t, r.RevealOrder)
	for _, a := range r.Awards {
		assert.Equal(t, 2, a.Seat)
		assert.Equal(t, "Fred", a.UserID)
	}

	s.AssertTableConserved(v)
	s.Close()
}
