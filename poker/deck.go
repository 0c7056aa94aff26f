package poker

import (
	"math/rand"
)

// Deck represents a standard 52-card deck with a deal cursor. Burn cards
// are kept aside for audit and never reappear in a deal.
type Deck struct {
	cards  [52]Card
	next   int
	burned []Card
	rng    *rand.Rand
}

// NewDeck creates a new shuffled deck with an explicit RNG
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}

	i := 0
	for _, suit := range Suits {
		for _, rank := range Ranks {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}

	d.Shuffle()
	return d
}

// Shuffle reshuffles the deck using Fisher-Yates and resets the cursor
func (d *Deck) Shuffle() {
	d.next = 0
	d.burned = d.burned[:0]
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.Intn(i + 1)
		} else {
			j = rand.Intn(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// DealOne deals a single card, advancing the cursor
func (d *Deck) DealOne() (Card, bool) {
	if d.next >= len(d.cards) {
		return Card{}, false
	}
	card := d.cards[d.next]
	d.next++
	return card, true
}

// Deal deals n cards from the deck
func (d *Deck) Deal(n int) []Card {
	if d.next+n > len(d.cards) {
		return nil
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards
}

// Burn sets the next card aside before a street is dealt
func (d *Deck) Burn() (Card, bool) {
	card, ok := d.DealOne()
	if ok {
		d.burned = append(d.burned, card)
	}
	return card, ok
}

// Burned returns the cards burned so far, in order
func (d *Deck) Burned() []Card {
	return d.burned
}

// CardsRemaining returns the number of undealt cards
func (d *Deck) CardsRemaining() int {
	return len(d.cards) - d.next
}

// Cards returns the full deck order. Used to persist a hand's deck so a
// crashed process resumes with the same run-out.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards[:])
	return out
}

// Cursor returns the index of the next undealt card.
func (d *Deck) Cursor() int {
	return d.next
}

// Restore rebuilds a deck from a persisted order and cursor.
func Restore(cards []Card, cursor int, burned []Card) *Deck {
	d := &Deck{next: cursor}
	copy(d.cards[:], cards)
	d.burned = append(d.burned, burned...)
	return d
}
