package model

import (
	"fmt"
	"strings"

	"github.com/modelarena/holdem/internal/game"
	"github.com/modelarena/holdem/poker"
)

// BuildPrompt renders the compact game context for the on-turn seat:
// game summary, the seat's own hole cards, the board, pot, an opponent
// view without hidden information, the current hand's betting history,
// and the legal action set.
func BuildPrompt(g *game.Game, seatIdx int, legal game.ValidActions) string {
	seat := g.Seats[seatIdx]
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s playing no-limit Texas Hold'em.\n", seat.ModelID)
	fmt.Fprintf(&b, "Hand %d of %d. Blinds %d/%d. Street: %s.\n\n",
		g.CurrentHand, g.Config.MaxHands, g.Config.SmallBlind, g.Config.BigBlind, g.Table.Phase)

	fmt.Fprintf(&b, "Your hole cards: %s\n", cardList(seat.HoleCards))
	fmt.Fprintf(&b, "Board: %s\n", cardList(g.Table.Community))
	fmt.Fprintf(&b, "Pot: %d\n", g.Table.Pot)
	fmt.Fprintf(&b, "Your stack: %d (bet this street: %d)\n\n", seat.Chips, seat.CurrentBet)

	b.WriteString("Opponents:\n")
	for _, o := range g.Seats {
		if o.SeatIndex == seatIdx {
			continue
		}
		fmt.Fprintf(&b, "  seat %d (%s): %d chips, %s%s\n",
			o.SeatIndex, o.ModelID, o.Chips, seatStatus(o), position(g, o.SeatIndex))
	}

	if len(g.HandActions) > 0 {
		b.WriteString("\nAction this hand:\n")
		for _, a := range g.HandActions {
			if a.Amount > 0 {
				fmt.Fprintf(&b, "  [%s] %s: %s %d\n", a.Phase, a.ModelID, a.Action, a.Amount)
			} else {
				fmt.Fprintf(&b, "  [%s] %s: %s\n", a.Phase, a.ModelID, a.Action)
			}
		}
	}

	b.WriteString("\nYour options:\n")
	b.WriteString("  FOLD\n")
	if legal.CanCheck {
		b.WriteString("  CHECK\n")
	}
	if legal.CanCall {
		fmt.Fprintf(&b, "  CALL (%d to call)\n", legal.CallAmount)
	}
	if legal.CanRaise {
		fmt.Fprintf(&b, "  RAISE $<total> (minimum total %d, maximum total %d)\n",
			legal.MinRaiseTotal, legal.MaxRaiseTotal)
		b.WriteString("  ALL-IN\n")
	}

	b.WriteString("\nThink it through, then end your reply with a single line " +
		"containing exactly one of: FOLD, CHECK, CALL, RAISE $<total>, ALL-IN.\n")
	return b.String()
}

func cardList(cards []poker.Card) string {
	if len(cards) == 0 {
		return "(none)"
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func seatStatus(s *game.Seat) string {
	switch {
	case s.Folded:
		return "folded"
	case s.AllIn:
		return "all-in"
	default:
		return fmt.Sprintf("bet %d", s.CurrentBet)
	}
}

func position(g *game.Game, seatIdx int) string {
	if g.Table.DealerIndex == seatIdx {
		return ", button"
	}
	return ""
}
