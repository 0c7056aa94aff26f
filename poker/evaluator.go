package poker

import (
	"errors"
	"fmt"
	"sort"
)

// Category enumerates hand categories ordered from weakest to strongest.
type Category int

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
	RoyalFlush
)

// String returns a human-readable category name
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case OnePair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// ErrInvalidCardSet is returned for inputs outside 5..7 cards or with
// duplicate cards. These are engine bugs, not user errors.
var ErrInvalidCardSet = errors.New("invalid card set")

// HandValue is the result of evaluating a set of cards. Score is a packed
// integer: comparing two scores numerically is equivalent to comparing the
// hands under standard poker rules, and equal scores mean an exact tie.
type HandValue struct {
	Category Category
	Cards    [5]Card // the best five cards
	Kickers  []Rank  // tiebreak ranks beyond the category-defining ones
	Score    uint32
}

// packScore packs the category into the high bits and up to five tiebreak
// ranks, most significant first, into 4-bit nibbles below it.
func packScore(cat Category, tiebreaks []Rank) uint32 {
	score := uint32(cat) << 20
	shift := 16
	for _, r := range tiebreaks {
		score |= uint32(r) << shift
		shift -= 4
	}
	return score
}

// Evaluate returns the best five-card hand from 5 to 7 cards. Fewer than 5,
// more than 7, or duplicate cards fail with ErrInvalidCardSet.
func Evaluate(cards []Card) (HandValue, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandValue{}, fmt.Errorf("%w: got %d cards", ErrInvalidCardSet, len(cards))
	}
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if seen[c] {
			return HandValue{}, fmt.Errorf("%w: duplicate card %s", ErrInvalidCardSet, c)
		}
		seen[c] = true
	}

	var best HandValue
	var have bool
	combos(len(cards), func(idx [5]int) {
		var five [5]Card
		for i, j := range idx {
			five[i] = cards[j]
		}
		hv := evaluateFive(five)
		if !have || hv.Score > best.Score {
			best = hv
			have = true
		}
	})
	return best, nil
}

// combos visits every 5-element combination of n indices. For 7 cards that
// is the 21 candidate hands.
func combos(n int, visit func([5]int)) {
	var idx [5]int
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						idx[0], idx[1], idx[2], idx[3], idx[4] = a, b, c, d, e
						visit(idx)
					}
				}
			}
		}
	}
}

// evaluateFive scores exactly five cards.
func evaluateFive(five [5]Card) HandValue {
	sorted := five
	sort.Slice(sorted[:], func(i, j int) bool { return sorted[i].Rank > sorted[j].Rank })

	flush := true
	for i := 1; i < 5; i++ {
		if sorted[i].Suit != sorted[0].Suit {
			flush = false
			break
		}
	}

	straight, straightHigh := straightHighCard(sorted)

	// Rank multiset, grouped by count then rank so pairs/trips sort first.
	counts := map[Rank]int{}
	for _, c := range sorted {
		counts[c.Rank]++
	}
	type group struct {
		rank  Rank
		count int
	}
	groups := make([]group, 0, 5)
	for r, n := range counts {
		groups = append(groups, group{r, n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	var cat Category
	var tiebreaks []Rank
	var kickers []Rank

	switch {
	case flush && straight && straightHigh == Ace:
		cat = RoyalFlush
	case flush && straight:
		cat = StraightFlush
		tiebreaks = []Rank{straightHigh}
	case groups[0].count == 4:
		cat = FourOfAKind
		tiebreaks = []Rank{groups[0].rank, groups[1].rank}
		kickers = []Rank{groups[1].rank}
	case groups[0].count == 3 && groups[1].count == 2:
		cat = FullHouse
		tiebreaks = []Rank{groups[0].rank, groups[1].rank}
	case flush:
		cat = Flush
		tiebreaks = ranksDesc(sorted)
		kickers = tiebreaks
	case straight:
		cat = Straight
		tiebreaks = []Rank{straightHigh}
	case groups[0].count == 3:
		cat = ThreeOfAKind
		tiebreaks = []Rank{groups[0].rank, groups[1].rank, groups[2].rank}
		kickers = tiebreaks[1:]
	case groups[0].count == 2 && groups[1].count == 2:
		cat = TwoPair
		tiebreaks = []Rank{groups[0].rank, groups[1].rank, groups[2].rank}
		kickers = tiebreaks[2:]
	case groups[0].count == 2:
		cat = OnePair
		tiebreaks = []Rank{groups[0].rank, groups[1].rank, groups[2].rank, groups[3].rank}
		kickers = tiebreaks[1:]
	default:
		cat = HighCard
		tiebreaks = ranksDesc(sorted)
		kickers = tiebreaks
	}

	return HandValue{
		Category: cat,
		Cards:    sorted,
		Kickers:  kickers,
		Score:    packScore(cat, tiebreaks),
	}
}

// straightHighCard reports whether the five descending-sorted cards form a
// straight and its high card. The wheel A-2-3-4-5 plays the ace low, so its
// high card is the five.
func straightHighCard(sorted [5]Card) (bool, Rank) {
	run := true
	for i := 1; i < 5; i++ {
		if sorted[i-1].Rank != sorted[i].Rank+1 {
			run = false
			break
		}
	}
	if run {
		return true, sorted[0].Rank
	}

	// Wheel: A,5,4,3,2 when sorted ace-high.
	if sorted[0].Rank == Ace && sorted[1].Rank == Five && sorted[2].Rank == Four &&
		sorted[3].Rank == Three && sorted[4].Rank == Two {
		return true, Five
	}
	return false, 0
}

func ranksDesc(sorted [5]Card) []Rank {
	out := make([]Rank, 5)
	for i, c := range sorted {
		out[i] = c.Rank
	}
	return out
}
