package game

import (
	"fmt"
	"time"
)

// ValidActions is the precomputed legal action set handed to the decision
// adapter for the on-turn seat.
type ValidActions struct {
	CanCheck      bool `json:"canCheck"`
	CanCall       bool `json:"canCall"`
	CanRaise      bool `json:"canRaise"`
	CallAmount    int  `json:"callAmount"`
	MinRaiseTotal int  `json:"minRaiseTotal"`
	MaxRaiseTotal int  `json:"maxRaiseTotal"`
}

// LegalActions computes the legal action set for a seat. Fold is always
// legal and not represented.
func (g *Game) LegalActions(seatIdx int) ValidActions {
	seat := g.Seat(seatIdx)
	if seat == nil || !seat.CanAct() {
		return ValidActions{}
	}

	t := &g.Table
	va := ValidActions{
		CanCheck:      seat.CurrentBet == t.CurrentBet,
		MaxRaiseTotal: seat.Chips + seat.CurrentBet,
	}
	if t.CurrentBet > seat.CurrentBet {
		va.CanCall = true
		va.CallAmount = min(t.CurrentBet-seat.CurrentBet, seat.Chips)
	}
	if va.MaxRaiseTotal > t.CurrentBet {
		va.CanRaise = true
		// An all-in below the minimum is still a legal (under-)raise.
		va.MinRaiseTotal = min(t.MinRaise, va.MaxRaiseTotal)
	}
	return va
}

// ValidateAction reports whether the proposed action is legal for the
// seat. The dispatcher coerces illegal proposals to fold.
func (g *Game) ValidateAction(seatIdx int, action Action, amount int) error {
	seat := g.Seat(seatIdx)
	if seat == nil {
		return fmt.Errorf("no seat %d", seatIdx)
	}
	if !seat.CanAct() {
		return fmt.Errorf("seat %d cannot act", seatIdx)
	}
	va := g.LegalActions(seatIdx)

	switch action {
	case Fold:
		return nil
	case Check:
		if !va.CanCheck {
			return fmt.Errorf("cannot check facing a bet of %d", g.Table.CurrentBet)
		}
	case Call:
		if !va.CanCall {
			return fmt.Errorf("nothing to call")
		}
	case Raise:
		if !va.CanRaise {
			return fmt.Errorf("cannot raise")
		}
		if amount <= g.Table.CurrentBet {
			return fmt.Errorf("raise to %d does not exceed current bet %d", amount, g.Table.CurrentBet)
		}
		if amount > va.MaxRaiseTotal {
			return fmt.Errorf("raise to %d exceeds stack", amount)
		}
		if amount < g.Table.MinRaise && amount != va.MaxRaiseTotal {
			return fmt.Errorf("raise to %d below minimum %d", amount, g.Table.MinRaise)
		}
	case AllIn:
		if seat.Chips == 0 {
			return fmt.Errorf("no chips to move all-in")
		}
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}

// Apply mutates the game for a validated action and returns the chips the
// action moved into the pot. It records the action in the hand's betting
// history and per-model stats; the caller handles turn accounting.
func (g *Game) Apply(seatIdx int, action Action, amount int, now time.Time) int {
	seat := g.Seats[seatIdx]
	moved := 0

	switch action {
	case Fold:
		seat.Folded = true
		seat.HasActed = true

	case Check:
		seat.HasActed = true

	case Call:
		moved = g.applyCall(seat)

	case Raise:
		moved = g.applyRaise(seat, amount)

	case AllIn:
		total := seat.Chips + seat.CurrentBet
		if total > g.Table.CurrentBet {
			moved = g.applyRaise(seat, total)
		} else {
			moved = g.applyCall(seat)
		}
	}

	g.recountPot()
	g.recordAction(seat, action, moved > 0, moved)
	g.HandActions = append(g.HandActions, HandAction{
		SeatIndex: seatIdx,
		ModelID:   seat.ModelID,
		Phase:     g.Table.Phase,
		Action:    action,
		Amount:    moved,
		Timestamp: now,
	})
	return moved
}

// applyCall moves the matching chips, capped at the stack. A call for the
// whole stack is an all-in call.
func (g *Game) applyCall(seat *Seat) int {
	toCall := min(g.Table.CurrentBet-seat.CurrentBet, seat.Chips)
	seat.Chips -= toCall
	seat.CurrentBet += toCall
	seat.TotalBetThisHand += toCall
	seat.HasActed = true
	if seat.Chips == 0 {
		seat.AllIn = true
	}
	return toCall
}

// applyRaise raises the seat's street bet to total. A full raise (increment
// at least the last raise) reopens the action for everyone still able to
// act; an all-in under-raise advances the current bet without reopening.
func (g *Game) applyRaise(seat *Seat, total int) int {
	t := &g.Table
	delta := total - seat.CurrentBet
	increment := total - t.CurrentBet

	seat.Chips -= delta
	seat.CurrentBet = total
	seat.TotalBetThisHand += delta
	seat.HasActed = true
	if seat.Chips == 0 {
		seat.AllIn = true
	}

	if increment >= t.LastRaiseAmount {
		t.LastRaiseAmount = increment
		t.CurrentBet = total
		t.MinRaise = total + increment
		t.LastAggressor = seat.SeatIndex
		for _, o := range g.Seats {
			if o != seat && o.CanAct() {
				o.HasActed = false
			}
		}
	} else {
		// Under-raise all-in: seats that already matched the prior bet
		// keep their acted status and do not get the action reopened.
		t.CurrentBet = total
		t.MinRaise = total + t.LastRaiseAmount
	}
	return delta
}

// RoundComplete reports whether the betting round has terminated: every
// seat that can still act has acted and matched the current bet.
func (g *Game) RoundComplete() bool {
	for _, s := range g.Seats {
		if s.CanAct() && (!s.HasActed || s.CurrentBet != g.Table.CurrentBet) {
			return false
		}
	}
	return true
}

// NextToAct returns the next seat clockwise from `from` (exclusive) that
// can still make a decision.
func (g *Game) NextToAct(from int) int {
	return g.NextSeat(from+1, (*Seat).CanAct)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
