package deck

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"math/rand"

	"github.com/weedbox/holdemtable/card"
)

var (
	ErrDeckExhausted = errors.New("deck: exhausted")
)

type Deck struct {
	cards [card.Count]card.Card
	pos   int
	rng   *rand.Rand
}

// New returns a shuffled deck seeded from crypto/rand.
func New() *Deck {
	return NewSeeded(cryptoSeed())
}

// NewSeeded returns a deck whose shuffles are reproducible for a given seed.
func NewSeeded(seed int64) *Deck {
	d := &Deck{}
	d.Reseed(seed)
	return d
}

func cryptoSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("deck: unable to read random seed: " + err.Error())
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// Reseed restores the deck to all 52 cards and shuffles with a new source.
func (d *Deck) Reseed(seed int64) {
	d.rng = rand.New(rand.NewSource(seed))
	d.Shuffle()
}

// Shuffle returns every card to the deck and reorders it (Fisher-Yates).
func (d *Deck) Shuffle() {
	for i := range d.cards {
		d.cards[i] = card.Card(i)
	}
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	d.pos = 0
}

func (d *Deck) Draw() (card.Card, error) {
	if d.pos >= len(d.cards) {
		return 0, ErrDeckExhausted
	}
	c := d.cards[d.pos]
	d.pos++
	return c, nil
}

func (d *Deck) DrawN(n int) ([]card.Card, error) {
	if d.Remaining() < n {
		return nil, ErrDeckExhausted
	}
	cards := make([]card.Card, n)
	copy(cards, d.cards[d.pos:d.pos+n])
	d.pos += n
	return cards, nil
}

// Burn discards the top card.
func (d *Deck) Burn() error {
	_, err := d.Draw()
	return err
}

func (d *Deck) Remaining() int {
	return len(d.cards) - d.pos
}
