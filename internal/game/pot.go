package game

import (
	"fmt"
	"sort"
)

// Pot is one layer of the pot. The first pot is the main pot; later
// entries are side pots in contribution order.
type Pot struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible"` // seat indexes, folded seats excluded
}

// Award is one seat's payout from distribution.
type Award struct {
	SeatIndex int `json:"seatIndex"`
	Amount    int `json:"amount"`
}

// BuildPots layers the pot from per-seat hand contributions. Every
// distinct positive contribution total is a level; each level's layer
// collects (level - prev) from every seat that bet at least that much.
// Folded seats fund layers but are never eligible for them.
func BuildPots(seats []*Seat) []Pot {
	levels := make([]int, 0, len(seats))
	seen := make(map[int]bool)
	for _, s := range seats {
		if s.TotalBetThisHand > 0 && !seen[s.TotalBetThisHand] {
			seen[s.TotalBetThisHand] = true
			levels = append(levels, s.TotalBetThisHand)
		}
	}
	sort.Ints(levels)

	var pots []Pot
	prev := 0
	for _, level := range levels {
		var pot Pot
		for _, s := range seats {
			if s.TotalBetThisHand >= level {
				pot.Amount += level - prev
				if !s.Folded {
					pot.Eligible = append(pot.Eligible, s.SeatIndex)
				}
			}
		}
		if pot.Amount == 0 {
			prev = level
			continue
		}
		if len(pot.Eligible) == 0 && len(pots) > 0 {
			// Every contributor at this level folded; the layer has no
			// claimant of its own and collapses into the pot below.
			pots[len(pots)-1].Amount += pot.Amount
			prev = level
			continue
		}
		pots = append(pots, pot)
		prev = level
	}
	return pots
}

// DistributePots splits each pot among its best-scoring eligible seats.
// Equal shares first; any odd chips go one at a time to the tied winners
// in clockwise order starting from the first seat after the button.
// The total paid out must equal the total collected.
func DistributePots(pots []Pot, scores map[int]uint32, dealerIndex, numSeats int) ([]Award, error) {
	collected := 0
	payouts := make(map[int]int)

	for _, pot := range pots {
		collected += pot.Amount
		if len(pot.Eligible) == 0 {
			return nil, fmt.Errorf("pot of %d has no eligible seats", pot.Amount)
		}

		// A single eligible seat takes the layer without evaluation; this
		// covers the uncalled portion of an oversized all-in.
		winners := pot.Eligible
		if len(pot.Eligible) > 1 {
			best := uint32(0)
			winners = nil
			for _, seat := range pot.Eligible {
				score, ok := scores[seat]
				if !ok {
					return nil, fmt.Errorf("no hand score for eligible seat %d", seat)
				}
				switch {
				case score > best:
					best = score
					winners = []int{seat}
				case score == best:
					winners = append(winners, seat)
				}
			}
		}

		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)
		for _, seat := range winners {
			payouts[seat] += share
		}

		// Odd chips go clockwise from the seat after the button.
		if remainder > 0 {
			ordered := append([]int(nil), winners...)
			sort.Slice(ordered, func(i, j int) bool {
				return clockwiseDistance(dealerIndex, ordered[i], numSeats) <
					clockwiseDistance(dealerIndex, ordered[j], numSeats)
			})
			for i := 0; i < remainder; i++ {
				payouts[ordered[i%len(ordered)]]++
			}
		}
	}

	awards := make([]Award, 0, len(payouts))
	distributed := 0
	for seat, amount := range payouts {
		awards = append(awards, Award{SeatIndex: seat, Amount: amount})
		distributed += amount
	}
	sort.Slice(awards, func(i, j int) bool { return awards[i].SeatIndex < awards[j].SeatIndex })

	if distributed != collected {
		return nil, fmt.Errorf("pot distribution mismatch: collected %d, distributed %d", collected, distributed)
	}
	return awards, nil
}

// clockwiseDistance is the number of seats from the button to seat,
// scanning clockwise; the seat directly after the button is distance 1.
func clockwiseDistance(dealerIndex, seat, numSeats int) int {
	d := (seat - dealerIndex + numSeats) % numSeats
	if d == 0 {
		return numSeats
	}
	return d
}
