package card

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCard = errors.New("card: invalid card")
)

type Rank uint8

const (
	Two Rank = iota
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

type Suit uint8

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

const (
	RankCount = 13
	SuitCount = 4
	Count     = RankCount * SuitCount
)

var (
	rankSymbols = "23456789TJQKA"
	suitSymbols = "cdhs"
)

// Card packs rank and suit as rank*4 + suit.
type Card uint8

func New(r Rank, s Suit) Card {
	return Card(uint8(r)*SuitCount + uint8(s))
}

func (c Card) Rank() Rank {
	return Rank(uint8(c) / SuitCount)
}

func (c Card) Suit() Suit {
	return Suit(uint8(c) % SuitCount)
}

func (c Card) Valid() bool {
	return uint8(c) < Count
}

func (c Card) String() string {
	if !c.Valid() {
		return "??"
	}
	return string([]byte{rankSymbols[c.Rank()], suitSymbols[c.Suit()]})
}

func (r Rank) String() string {
	if int(r) >= len(rankSymbols) {
		return "?"
	}
	return string(rankSymbols[r])
}

func (s Suit) String() string {
	if int(s) >= len(suitSymbols) {
		return "?"
	}
	return string(suitSymbols[s])
}

// Parse accepts two-character notation such as "As", "Td" or "2c".
func Parse(s string) (Card, error) {
	if len(s) != 2 {
		return 0, ErrInvalidCard
	}

	r := strings.IndexByte(rankSymbols, strings.ToUpper(s[:1])[0])
	u := strings.IndexByte(suitSymbols, strings.ToLower(s[1:])[0])
	if r < 0 || u < 0 {
		return 0, ErrInvalidCard
	}

	return New(Rank(r), Suit(u)), nil
}

func MustParse(s string) Card {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseList parses whitespace separated cards.
func ParseList(s string) ([]Card, error) {
	fields := strings.Fields(s)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := Parse(f)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func MustParseList(s string) []Card {
	cards, err := ParseList(s)
	if err != nil {
		panic(err)
	}
	return cards
}

func Strings(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

func All() []Card {
	cards := make([]Card, Count)
	for i := 0; i < Count; i++ {
		cards[i] = Card(i)
	}
	return cards
}
