package evaluator

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/weedbox/holdemtable/card"
)

var (
	ErrInvalidCards = errors.New("evaluator: expected 5 to 7 unique cards")
)

type Category uint8

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

var categoryNames = [...]string{
	"high card",
	"one pair",
	"two pair",
	"three of a kind",
	"straight",
	"flush",
	"full house",
	"four of a kind",
	"straight flush",
}

func (c Category) String() string {
	if int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// HandValue orders hands: a higher value is a stronger hand.
// Bits 20..23 carry the category, bits 0..19 five rank slots, most significant first.
type HandValue uint32

const (
	categoryShift = 20
	slotBits      = 4
	noRank        = -1
)

func (v HandValue) Category() Category {
	return Category(v >> categoryShift)
}

// Ranks returns the rank slots that decide the hand, primary ranks first.
func (v HandValue) Ranks() []card.Rank {
	ranks := make([]card.Rank, 0, 5)
	for i := 4; i >= 0; i-- {
		ranks = append(ranks, card.Rank((v>>(uint(i)*slotBits))&0xf))
	}
	switch v.Category() {
	case StraightFlush, Straight:
		return ranks[:1]
	case FourOfAKind, FullHouse:
		return ranks[:2]
	case ThreeOfAKind, TwoPair:
		return ranks[:3]
	case OnePair:
		return ranks[:4]
	}
	return ranks
}

func (v HandValue) String() string {
	ranks := v.Ranks()
	parts := make([]string, len(ranks))
	for i, r := range ranks {
		parts[i] = r.String()
	}
	return fmt.Sprintf("%s (%s)", v.Category(), strings.Join(parts, " "))
}

func Compare(a, b HandValue) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}

// Evaluate ranks the best five-card hand out of 5, 6 or 7 unique cards.
func Evaluate(cards []card.Card) (HandValue, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return 0, ErrInvalidCards
	}

	var seen uint64
	for _, c := range cards {
		if !c.Valid() {
			return 0, ErrInvalidCards
		}
		bit := uint64(1) << uint8(c)
		if seen&bit != 0 {
			return 0, ErrInvalidCards
		}
		seen |= bit
	}

	return evaluate(cards), nil
}

// Evaluate7 is the unchecked fast path for showdowns. Cards must be valid and unique.
func Evaluate7(cards *[7]card.Card) HandValue {
	return evaluate(cards[:])
}

func evaluate(cards []card.Card) HandValue {
	var suitMasks [card.SuitCount]uint16
	var counts [card.RankCount]uint8
	var all uint16

	for _, c := range cards {
		bit := uint16(1) << c.Rank()
		suitMasks[c.Suit()] |= bit
		counts[c.Rank()]++
		all |= bit
	}

	for _, m := range suitMasks {
		if bits.OnesCount16(m) < 5 {
			continue
		}
		if top := straightTop(m); top != noRank {
			return pack(StraightFlush, top, noRank, noRank, noRank, noRank)
		}
		k := kickers(m, 5)
		return pack(Flush, k[0], k[1], k[2], k[3], k[4])
	}

	quad := noRank
	trip1, trip2 := noRank, noRank
	pair1, pair2 := noRank, noRank
	for r := card.RankCount - 1; r >= 0; r-- {
		switch counts[r] {
		case 4:
			quad = r
		case 3:
			if trip1 == noRank {
				trip1 = r
			} else if trip2 == noRank {
				trip2 = r
			}
		case 2:
			if pair1 == noRank {
				pair1 = r
			} else if pair2 == noRank {
				pair2 = r
			}
		}
	}

	if quad != noRank {
		k := kickers(all&^(1<<uint(quad)), 1)
		return pack(FourOfAKind, quad, k[0], noRank, noRank, noRank)
	}

	if trip1 != noRank && (trip2 != noRank || pair1 != noRank) {
		pair := pair1
		if trip2 > pair {
			pair = trip2
		}
		return pack(FullHouse, trip1, pair, noRank, noRank, noRank)
	}

	if top := straightTop(all); top != noRank {
		return pack(Straight, top, noRank, noRank, noRank, noRank)
	}

	if trip1 != noRank {
		k := kickers(all&^(1<<uint(trip1)), 2)
		return pack(ThreeOfAKind, trip1, k[0], k[1], noRank, noRank)
	}

	if pair2 != noRank {
		k := kickers(all&^(1<<uint(pair1))&^(1<<uint(pair2)), 1)
		return pack(TwoPair, pair1, pair2, k[0], noRank, noRank)
	}

	if pair1 != noRank {
		k := kickers(all&^(1<<uint(pair1)), 3)
		return pack(OnePair, pair1, k[0], k[1], k[2], noRank)
	}

	k := kickers(all, 5)
	return pack(HighCard, k[0], k[1], k[2], k[3], k[4])
}

// straightTop returns the top rank of the best straight in mask. The wheel reports Five.
func straightTop(mask uint16) int {
	ext := uint32(mask) << 1
	if mask&(1<<card.Ace) != 0 {
		ext |= 1
	}
	for top := card.RankCount; top >= 4; top-- {
		if (ext>>uint(top-4))&0x1f == 0x1f {
			return top - 1
		}
	}
	return noRank
}

func kickers(mask uint16, n int) [5]int {
	k := [5]int{noRank, noRank, noRank, noRank, noRank}
	i := 0
	for r := card.RankCount - 1; r >= 0 && i < n; r-- {
		if mask&(1<<uint(r)) != 0 {
			k[i] = r
			i++
		}
	}
	return k
}

func pack(cat Category, r1, r2, r3, r4, r5 int) HandValue {
	v := HandValue(cat) << categoryShift
	for i, r := range [5]int{r1, r2, r3, r4, r5} {
		if r == noRank {
			continue
		}
		v |= HandValue(r) << (uint(4-i) * slotBits)
	}
	return v
}
