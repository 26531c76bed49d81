package holdemtable

const (
	// General
	UnsetValue = -1

	// Board cards dealt on each street
	FlopCardCount  = 3
	TurnCardCount  = 1
	RiverCardCount = 1
	HoleCardCount  = 2
)

type Street string

const (
	Street_None    Street = ""
	Street_PreFlop Street = "preflop"
	Street_Flop    Street = "flop"
	Street_Turn    Street = "turn"
	Street_River   Street = "river"
)

func (s Street) Next() Street {
	switch s {
	case Street_PreFlop:
		return Street_Flop
	case Street_Flop:
		return Street_Turn
	case Street_Turn:
		return Street_River
	}
	return Street_None
}

func (s Street) BoardCardCount() int {
	switch s {
	case Street_Flop:
		return FlopCardCount
	case Street_Turn:
		return TurnCardCount
	case Street_River:
		return RiverCardCount
	}
	return 0
}
