package testcases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weedbox/holdemtable"
)

func TestTableGame_Flop_Settlement(t *testing.T) {
	s := NewScenario(t, NewSetting(3), "Jeffrey", "Chuck", "Fred")
	s.Join(0, "Jeffrey", 1000)
	s.Join(1, "Chuck", 1000)
	s.Join(2, "Fred", 1000)
	s.WaitHand(1)

	// dealer, small blind, big blind
	s.ActCurrent(0, holdemtable.Call())
	s.ActCurrent(1, holdemtable.Call())
	v := s.ActCurrent(2, holdemtable.Check())
	assert.Equal(t, holdemtable.Street_Flop, v.Street)
	assert.Equal(t, int64(60), v.TotalPot)

	// first seat after the dealer opens every later street
	s.ActCurrent(1, holdemtable.Check())
	s.ActCurrent(2, holdemtable.Bet(60))
	s.ActCurrent(0, holdemtable.Fold())
	v = s.ActCurrent(1, holdemtable.Fold())

	require.Equal(t, holdemtable.TableStateStatus_WaitingForPlayers, v.Status)
	assert.Equal(t, int64(980), v.Seat(0).Stack)
	assert.Equal(t, int64(980), v.Seat(1).Stack)
	assert.Equal(t, int64(1040), v.Seat(2).Stack)
	assert.Len(t, v.LastResult.Board, 3)
	AssertAwards(t, v.LastResult)
	s.AssertTableConserved(v)

	s.Close()
}
