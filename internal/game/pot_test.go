package game

import (
	"testing"

	"github.com/modelarena/holdem/poker"
)

func seatsWithBets(bets []int, folded []bool) []*Seat {
	seats := make([]*Seat, len(bets))
	for i := range bets {
		seats[i] = &Seat{
			SeatIndex:        i,
			TotalBetThisHand: bets[i],
			Folded:           folded != nil && folded[i],
		}
	}
	return seats
}

func TestBuildPotsNoAllIn(t *testing.T) {
	t.Parallel()

	pots := BuildPots(seatsWithBets([]int{50, 50, 50}, nil))
	if len(pots) != 1 {
		t.Fatalf("expected single main pot, got %d", len(pots))
	}
	if pots[0].Amount != 150 {
		t.Errorf("main pot should be 150, got %d", pots[0].Amount)
	}
	if len(pots[0].Eligible) != 3 {
		t.Errorf("all seats eligible, got %v", pots[0].Eligible)
	}
}

func TestBuildPotsThreeWayAllIn(t *testing.T) {
	t.Parallel()

	// Stacks 200 / 500 / 1000, everyone all-in preflop.
	pots := BuildPots(seatsWithBets([]int{200, 500, 1000}, nil))
	if len(pots) != 3 {
		t.Fatalf("expected main pot + two side pots, got %d", len(pots))
	}

	if pots[0].Amount != 600 || len(pots[0].Eligible) != 3 {
		t.Errorf("main pot: want 600 for 3 seats, got %d for %v", pots[0].Amount, pots[0].Eligible)
	}
	if pots[1].Amount != 600 || len(pots[1].Eligible) != 2 {
		t.Errorf("first side pot: want 600 for 2 seats, got %d for %v", pots[1].Amount, pots[1].Eligible)
	}
	if pots[2].Amount != 500 || len(pots[2].Eligible) != 1 || pots[2].Eligible[0] != 2 {
		t.Errorf("second side pot: want 500 back to seat 2, got %d for %v", pots[2].Amount, pots[2].Eligible)
	}
}

func TestBuildPotsFoldedSeatFundsLayers(t *testing.T) {
	t.Parallel()

	// Seat 1 folded after betting 30; their chips stay in the layers but
	// they are never eligible.
	pots := BuildPots(seatsWithBets([]int{100, 30, 100}, []bool{false, true, false}))
	total := 0
	for _, p := range pots {
		total += p.Amount
		for _, e := range p.Eligible {
			if e == 1 {
				t.Errorf("folded seat 1 must not be eligible: %v", p.Eligible)
			}
		}
	}
	if total != 230 {
		t.Errorf("layers must capture all 230 contributed chips, got %d", total)
	}
}

func TestDistributeThreeWayAllIn(t *testing.T) {
	t.Parallel()

	seats := seatsWithBets([]int{200, 500, 1000}, nil)
	pots := BuildPots(seats)

	// Seat 0 pair of aces, seat 1 two pair, seat 2 flush.
	scores := map[int]uint32{
		0: uint32(poker.OnePair)<<20 | 0xE0000,
		1: uint32(poker.TwoPair)<<20 | 0xED000,
		2: uint32(poker.Flush)<<20 | 0xEB975,
	}

	awards, err := DistributePots(pots, scores, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(awards) != 1 || awards[0].SeatIndex != 2 {
		t.Fatalf("seat 2 should take every layer, got %v", awards)
	}
	// Main 600 + side 600 + returned 500.
	if awards[0].Amount != 1700 {
		t.Errorf("seat 2 should collect 1700, got %d", awards[0].Amount)
	}
}

func TestDistributeSplitPotRemainder(t *testing.T) {
	t.Parallel()

	// Two tied seats, pot of 101: 50 each and the odd chip goes to the
	// first seat clockwise from the button.
	seats := []*Seat{
		{SeatIndex: 0, TotalBetThisHand: 50},
		{SeatIndex: 1, TotalBetThisHand: 51},
	}
	pots := BuildPots(seats)
	scores := map[int]uint32{0: 1000, 1: 1000}

	awards, err := DistributePots(pots, scores, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	got := map[int]int{}
	for _, a := range awards {
		got[a.SeatIndex] += a.Amount
	}
	// Button is seat 0; seat 1 is first clockwise after it. The 100-chip
	// layer splits 50/50 and the 1-chip layer (seat 1's extra) returns to
	// seat 1 outright, so the assertion focuses on the shared layer.
	if got[0]+got[1] != 101 {
		t.Fatalf("distribution must cover the full pot: %v", got)
	}
	if got[0] != 50 || got[1] != 51 {
		t.Errorf("want 50/51 with remainder to seat after button, got %v", got)
	}
}

func TestDistributeOddChipClockwiseFromButton(t *testing.T) {
	t.Parallel()

	// Seats 0 and 1 tie; a folded seat 2 left one odd chip in the bottom
	// layer. With the button on seat 1, seat 0 is the first winner
	// clockwise and takes the remainder chip.
	seats := seatsWithBets([]int{50, 50, 1}, []bool{false, false, true})
	pots := BuildPots(seats)
	if len(pots) != 2 {
		t.Fatalf("expected two layers, got %d", len(pots))
	}
	scores := map[int]uint32{0: 7, 1: 7}

	awards, err := DistributePots(pots, scores, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	got := map[int]int{}
	for _, a := range awards {
		got[a.SeatIndex] = a.Amount
	}
	if got[0] != 51 || got[1] != 50 {
		t.Errorf("want seat 0 to take the odd chip (51/50), got %v", got)
	}
}

func TestDistributeRejectsMissingScore(t *testing.T) {
	t.Parallel()

	pots := BuildPots(seatsWithBets([]int{10, 10}, nil))
	if _, err := DistributePots(pots, map[int]uint32{0: 1}, 0, 2); err == nil {
		t.Error("expected error for missing seat score")
	}
}
