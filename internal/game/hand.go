package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/modelarena/holdem/poker"
)

// Over reports whether the game's termination condition holds: the hand
// budget is exhausted or at most one seat still holds chips or live
// equity in the current pot. All-in seats mid-hand count as funded, so
// a hand in flight is never mistaken for a finished game.
func (g *Game) Over() bool {
	return g.CurrentHand >= g.Config.MaxHands || g.FundedSeats() <= 1
}

// StartHand begins the next hand: rotates the button past busted seats,
// shuffles a fresh deck, posts blinds, and deals hole cards. Returns
// false when the game is over instead.
func (g *Game) StartHand(rng *rand.Rand, now time.Time) bool {
	if g.Over() {
		return false
	}
	g.CurrentHand++

	// Busted seats sit out the hand; marking them folded keeps every
	// clockwise scan uniform.
	for _, s := range g.Seats {
		s.CurrentBet = 0
		s.TotalBetThisHand = 0
		s.AllIn = false
		s.HasActed = false
		s.HoleCards = nil
		s.Folded = s.Chips == 0
	}

	g.Table.DealerIndex = g.NextSeat(g.Table.DealerIndex+1, func(s *Seat) bool { return s.Chips > 0 })
	g.Table.Phase = Preflop
	g.Table.Community = nil
	g.Table.Pot = 0
	g.HandActions = nil

	deck := poker.NewDeck(rng)
	g.postBlinds()
	g.dealHole(deck)
	g.Deck = deckStateOf(deck)
	g.recountPot()

	for _, s := range g.Seats {
		if !s.Folded {
			if st := g.Stats[s.ModelID]; st != nil {
				st.HandsDealt++
			}
		}
	}

	g.LogSystemEntry(fmt.Sprintf("hand %d started", g.CurrentHand), now)
	g.LogPhaseEntry(Preflop, now)
	return true
}

// postBlinds posts the blinds and sets the first seat to act. Heads-up
// the button posts the small blind and acts first preflop; multi-way the
// blinds sit clockwise of the button and the seat after the big blind
// opens.
func (g *Game) postBlinds() {
	inHand := func(s *Seat) bool { return !s.Folded }

	var sbSeat, bbSeat, first int
	if g.NonFolded() == 2 {
		sbSeat = g.Table.DealerIndex
		bbSeat = g.NextSeat(sbSeat+1, inHand)
		first = sbSeat
	} else {
		sbSeat = g.NextSeat(g.Table.DealerIndex+1, inHand)
		bbSeat = g.NextSeat(sbSeat+1, inHand)
		first = g.NextSeat(bbSeat+1, inHand)
	}

	g.postBlind(g.Seats[sbSeat], g.Config.SmallBlind)
	g.postBlind(g.Seats[bbSeat], g.Config.BigBlind)

	g.Table.CurrentBet = g.Config.BigBlind
	g.Table.LastRaiseAmount = g.Config.BigBlind
	g.Table.MinRaise = g.Table.CurrentBet + g.Table.LastRaiseAmount
	g.Table.LastAggressor = bbSeat
	g.Table.CurrentPlayer = g.NextSeat(first, (*Seat).CanAct)
}

// postBlind posts a forced bet capped at the seat's stack.
func (g *Game) postBlind(seat *Seat, blind int) {
	amount := min(blind, seat.Chips)
	seat.Chips -= amount
	seat.CurrentBet = amount
	seat.TotalBetThisHand = amount
	if seat.Chips == 0 && amount > 0 {
		seat.AllIn = true
	}
}

// dealHole deals two cards to every seat in the hand.
func (g *Game) dealHole(deck *poker.Deck) {
	for _, s := range g.Seats {
		if !s.Folded {
			s.HoleCards = deck.Deal(2)
		}
	}
}

// AdvanceStreet ends the betting round, resets per-street state, burns a
// card, deals the next street, and sets the first seat to act. Returns
// the new phase; on Showdown no cards are dealt.
func (g *Game) AdvanceStreet(now time.Time) Phase {
	for _, s := range g.Seats {
		s.CurrentBet = 0
		if s.CanAct() {
			s.HasActed = false
		}
	}
	g.Table.CurrentBet = 0
	g.Table.LastRaiseAmount = g.Config.BigBlind
	g.Table.MinRaise = g.Config.BigBlind
	g.Table.LastAggressor = NoSeat

	g.Table.Phase = g.Table.Phase.next()
	if g.Table.Phase != Showdown {
		deck := g.Deck.deck()
		deck.Burn()
		need := 1
		if g.Table.Phase == Flop {
			need = 3
		}
		g.Table.Community = append(g.Table.Community, deck.Deal(need)...)
		g.Deck = deckStateOf(deck)
	}

	g.Table.CurrentPlayer = g.NextSeat(g.Table.DealerIndex+1, (*Seat).CanAct)
	g.LogPhaseEntry(g.Table.Phase, now)
	return g.Table.Phase
}

// DealNextStreet runs the board out to the target phase without further
// betting rounds. Used when all remaining seats are all-in.
func (g *Game) DealNextStreet(target Phase, now time.Time) {
	for g.Table.Phase.order() < target.order() {
		g.AdvanceStreet(now)
	}
}

// RunOutNeeded reports whether the hand should skip betting and deal the
// board through to showdown: at most one seat can act and no further bets
// are possible.
func (g *Game) RunOutNeeded() bool {
	return g.NonFolded() >= 2 && g.Actionable() <= 1 && g.RoundComplete()
}

// FoldWin awards the whole pot to the lone remaining seat. No hands are
// evaluated.
func (g *Game) FoldWin(now time.Time) (Award, error) {
	winner := NoSeat
	for _, s := range g.Seats {
		if !s.Folded {
			if winner != NoSeat {
				return Award{}, fmt.Errorf("fold win with %d seats remaining", g.NonFolded())
			}
			winner = s.SeatIndex
		}
	}
	if winner == NoSeat {
		return Award{}, fmt.Errorf("fold win with no seats remaining")
	}

	seat := g.Seats[winner]
	award := Award{SeatIndex: winner, Amount: g.Table.Pot}
	seat.Chips += award.Amount
	if st := g.Stats[seat.ModelID]; st != nil {
		st.HandsWon++
	}

	g.finishHand(HandSummary{
		HandNumber:   g.CurrentHand,
		Pot:          award.Amount,
		Board:        append([]poker.Card(nil), g.Table.Community...),
		WinnerIDs:    []string{seat.ModelID},
		WinCondition: WinAllFolded,
		CompletedAt:  now,
	}, now)
	g.LogSystemEntry(fmt.Sprintf("%s wins %d (all folded)", seat.ModelID, award.Amount), now)
	return award, nil
}

// ShowdownResult evaluates every remaining hand, distributes the layered
// pots, and closes the hand. An evaluator error is a structural bug and
// surfaces to the caller, which cancels the game.
func (g *Game) ShowdownResult(now time.Time) ([]Award, error) {
	// Card identity must be unique across the board and every live hand;
	// a duplicate means the deal itself is corrupt.
	seen := make(map[poker.Card]bool)
	for _, c := range g.Table.Community {
		if seen[c] {
			return nil, fmt.Errorf("duplicate card %s on the board", c)
		}
		seen[c] = true
	}
	for _, s := range g.Seats {
		if s.Folded {
			continue
		}
		for _, c := range s.HoleCards {
			if seen[c] {
				return nil, fmt.Errorf("duplicate card %s in seat %d's hole cards", c, s.SeatIndex)
			}
			seen[c] = true
		}
	}

	scores := make(map[int]uint32)
	values := make(map[int]poker.HandValue)
	for _, s := range g.Seats {
		if s.Folded {
			continue
		}
		hv, err := poker.Evaluate(append(append([]poker.Card(nil), s.HoleCards...), g.Table.Community...))
		if err != nil {
			return nil, fmt.Errorf("evaluating seat %d: %w", s.SeatIndex, err)
		}
		scores[s.SeatIndex] = hv.Score
		values[s.SeatIndex] = hv
		if st := g.Stats[s.ModelID]; st != nil {
			st.ShowdownsReached++
		}
	}

	pots := BuildPots(g.Seats)
	awards, err := DistributePots(pots, scores, g.Table.DealerIndex, len(g.Seats))
	if err != nil {
		return nil, err
	}

	pot := g.Table.Pot
	var winnerIDs []string
	for _, a := range awards {
		seat := g.Seats[a.SeatIndex]
		seat.Chips += a.Amount
		winnerIDs = append(winnerIDs, seat.ModelID)
		if st := g.Stats[seat.ModelID]; st != nil {
			st.HandsWon++
			st.ShowdownsWon++
		}
		g.LogSystemEntry(fmt.Sprintf("%s wins %d with %s", seat.ModelID, a.Amount, values[a.SeatIndex].Category), now)
	}

	g.finishHand(HandSummary{
		HandNumber:   g.CurrentHand,
		Pot:          pot,
		Board:        append([]poker.Card(nil), g.Table.Community...),
		WinnerIDs:    winnerIDs,
		WinCondition: WinShowdown,
		CompletedAt:  now,
	}, now)
	return awards, nil
}

// finishHand appends the hand summary and clears per-hand state. Hole
// cards are cleared here, at settlement.
func (g *Game) finishHand(summary HandSummary, now time.Time) {
	summary.Actions = append([]HandAction(nil), g.HandActions...)
	g.HandHistory = append(g.HandHistory, summary)

	for _, s := range g.Seats {
		s.CurrentBet = 0
		s.TotalBetThisHand = 0
		s.HoleCards = nil
	}
	g.Table.Pot = 0
	g.Table.CurrentPlayer = NoSeat
	g.Table.LastAggressor = NoSeat
	g.HandActions = nil
	g.Deck = nil
	g.ThinkingSeat = NoSeat
}
