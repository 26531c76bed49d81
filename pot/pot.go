package pot

import (
	"errors"
	"fmt"
	"sort"

	"github.com/thoas/go-funk"
	"github.com/weedbox/holdemtable/evaluator"
	"github.com/weedbox/pokerface/settlement"
)

var (
	ErrNegativeContribution = errors.New("pot: negative contribution")
	ErrMissingHand          = errors.New("pot: missing hand for eligible seat")
	ErrInvariantViolated    = errors.New("pot: invariant violated")
)

type Contribution struct {
	Seat   int   `json:"seat"`
	Amount int64 `json:"amount"`
	Folded bool  `json:"folded"`
}

type Pot struct {
	Level    int64 `json:"level"`    // contribution tier that caps this pot
	Amount   int64 `json:"amount"`   // chips in this pot
	Eligible []int `json:"eligible"` // seats that may win it, ascending
}

type Award struct {
	Pot    int   `json:"pot"`
	Seat   int   `json:"seat"`
	Amount int64 `json:"amount"`
}

// Build splits hand contributions into pots by contribution level, smallest
// level first. Adjacent levels with the same eligible seats share one pot, and a
// tier only folded seats reached is merged into the nearest lower pot.
func Build(contribs []Contribution) ([]Pot, error) {
	total := int64(0)
	levels := make([]int64, 0, len(contribs))
	for _, c := range contribs {
		if c.Amount < 0 {
			return nil, ErrNegativeContribution
		}
		total += c.Amount
		if c.Amount > 0 && !funk.ContainsInt64(levels, c.Amount) {
			levels = append(levels, c.Amount)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]Pot, 0, len(levels))
	dead := int64(0)
	previous := int64(0)
	for _, level := range levels {
		reached := funk.Filter(contribs, func(c Contribution) bool {
			return c.Amount >= level
		}).([]Contribution)

		amount := (level - previous) * int64(len(reached))
		previous = level

		eligible := funk.Map(funk.Filter(reached, func(c Contribution) bool {
			return !c.Folded
		}), func(c Contribution) int {
			return c.Seat
		}).([]int)
		sort.Ints(eligible)

		if len(eligible) == 0 {
			if len(pots) > 0 {
				pots[len(pots)-1].Amount += amount
			} else {
				dead += amount
			}
			continue
		}

		// a tier nobody new dropped out of belongs to the pot below it
		if n := len(pots); n > 0 && funk.Equal(pots[n-1].Eligible, eligible) {
			pots[n-1].Level = level
			pots[n-1].Amount += amount
			continue
		}

		pots = append(pots, Pot{
			Level:    level,
			Amount:   amount + dead,
			Eligible: eligible,
		})
		dead = 0
	}

	if dead > 0 {
		return nil, fmt.Errorf("%w: %d chips have no eligible seat", ErrInvariantViolated, dead)
	}

	if got := Total(pots); got != total {
		return nil, fmt.Errorf("%w: pots hold %d, contributions %d", ErrInvariantViolated, got, total)
	}

	return pots, nil
}

func Total(pots []Pot) int64 {
	total := int64(0)
	for _, p := range pots {
		total += p.Amount
	}
	return total
}

// OrderFrom lists seats in seating order starting with the first seat after dealer.
func OrderFrom(dealer int, seats []int) []int {
	sorted := append([]int(nil), seats...)
	sort.Ints(sorted)

	order := make([]int, 0, len(sorted))
	for _, s := range sorted {
		if s > dealer {
			order = append(order, s)
		}
	}
	for _, s := range sorted {
		if s <= dealer {
			order = append(order, s)
		}
	}
	return order
}

// Settle awards each pot to its best eligible hands. Odd chips of a split go one
// at a time to the winners in order, which starts after the dealer.
func Settle(pots []Pot, hands map[int]evaluator.HandValue, order []int) ([]Award, error) {
	awards := make([]Award, 0)

	for i, p := range pots {
		if len(p.Eligible) == 0 {
			return nil, fmt.Errorf("%w: pot %d has no eligible seat", ErrInvariantViolated, i)
		}

		winners := p.Eligible
		if len(p.Eligible) > 1 {
			w, err := rankWinners(p.Eligible, hands)
			if err != nil {
				return nil, err
			}
			winners = w
		}

		ordered := funk.FilterInt(order, func(seat int) bool {
			return funk.ContainsInt(winners, seat)
		})
		if len(ordered) != len(winners) {
			return nil, fmt.Errorf("%w: winners %v missing from seat order %v", ErrInvariantViolated, winners, order)
		}

		share := p.Amount / int64(len(ordered))
		remainder := p.Amount % int64(len(ordered))
		for _, seat := range ordered {
			amount := share
			if remainder > 0 {
				amount++
				remainder--
			}
			if amount == 0 {
				continue
			}
			awards = append(awards, Award{Pot: i, Seat: seat, Amount: amount})
		}
	}

	awarded := int64(0)
	for _, a := range awards {
		awarded += a.Amount
	}
	if awarded != Total(pots) {
		return nil, fmt.Errorf("%w: awarded %d of %d", ErrInvariantViolated, awarded, Total(pots))
	}

	return awards, nil
}

func rankWinners(eligible []int, hands map[int]evaluator.HandValue) ([]int, error) {
	rank := settlement.NewPotRank()
	for _, seat := range eligible {
		v, ok := hands[seat]
		if !ok {
			return nil, fmt.Errorf("%w: seat %d", ErrMissingHand, seat)
		}
		rank.AddContributor(int(v), seat)
	}
	rank.Calculate()

	winners := rank.GetWinners()
	if len(winners) == 0 {
		return nil, fmt.Errorf("%w: no winner among %v", ErrInvariantViolated, eligible)
	}
	return winners, nil
}

// Totals sums awards per seat.
func Totals(awards []Award) map[int]int64 {
	totals := make(map[int]int64)
	for _, a := range awards {
		totals[a.Seat] += a.Amount
	}
	return totals
}
