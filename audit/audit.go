package audit

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrNegativeStack = errors.New("audit: negative stack")
	ErrNegativePot   = errors.New("audit: negative pot")
	ErrConservation  = errors.New("audit: chips not conserved")
)

// Snapshot is the accounting view of one table at one instant.
type Snapshot struct {
	Stacks   map[int]int64 `json:"stacks"`   // seat -> chips behind
	Pot      int64         `json:"pot"`      // chips committed to the current hand
	Escrowed int64         `json:"escrowed"` // confirmed buy-ins
	Returned int64         `json:"returned"` // cash-outs issued back to wallets
}

// Totals are the two sides of the conservation equation.
type Totals struct {
	OnTable sdkmath.Int
	Net     sdkmath.Int
}

// Sum computes both sides of sum(stacks) + pot == escrowed - returned.
func Sum(s Snapshot) (Totals, error) {
	onTable := sdkmath.ZeroInt()
	for seat, stack := range s.Stacks {
		if stack < 0 {
			return Totals{}, fmt.Errorf("%w: seat %d has %d", ErrNegativeStack, seat, stack)
		}
		onTable = onTable.Add(sdkmath.NewInt(stack))
	}

	if s.Pot < 0 {
		return Totals{}, fmt.Errorf("%w: %d", ErrNegativePot, s.Pot)
	}
	onTable = onTable.Add(sdkmath.NewInt(s.Pot))

	net := sdkmath.NewInt(s.Escrowed).Sub(sdkmath.NewInt(s.Returned))

	return Totals{OnTable: onTable, Net: net}, nil
}

func Check(s Snapshot) error {
	t, err := Sum(s)
	if err != nil {
		return err
	}

	if !t.OnTable.Equal(t.Net) {
		return fmt.Errorf("%w: on table %s, escrowed %d, returned %d", ErrConservation, t.OnTable, s.Escrowed, s.Returned)
	}

	return nil
}
