package engine

import (
	"context"

	"github.com/modelarena/holdem/internal/game"
)

// resume rescues games interrupted by a crash. The persisted document
// is enough to tell where each game stopped:
//
//   - no hand in flight: the inter-hand follow-up was lost, start the
//     next hand (or settle a finished game);
//   - a turn outstanding (ThinkingSeat set): the prompt and timer died
//     with the process, so re-request the decision and re-arm the
//     timeout for the recorded turn;
//   - between mutations (hand in flight, no thinker): re-derive the
//     lost follow-up from the round state.
func (e *Engine) resume(ctx context.Context) error {
	active, err := e.store.GamesByStatus(ctx, game.StatusActive)
	if err != nil {
		return err
	}

	for _, g := range active {
		g := g
		turn := g.Table.TurnNumber
		e.log.Info().Str("game_id", g.ID).Int("hand", g.CurrentHand).
			Int64("turn", turn).Msg("resuming game")

		switch {
		case g.Table.CurrentPlayer == game.NoSeat && g.Deck == nil:
			// Between hands; a hand with no actor left (everyone all-in)
			// still has its deck and falls through to the street advance.
			e.enqueue(func(ctx context.Context) {
				e.nextHand(ctx, g.ID)
			})
		case g.ThinkingSeat != game.NoSeat:
			e.dispatchTurn(ctx, g, turn)
		case g.RoundComplete():
			e.enqueue(func(ctx context.Context) {
				if err := e.advanceStreet(ctx, g.ID, turn); err != nil {
					e.log.Error().Err(err).Str("game_id", g.ID).Msg("resumed street advance failed")
				}
			})
		default:
			e.enqueue(func(ctx context.Context) {
				if err := e.ScheduleAITurn(ctx, g.ID, turn); err != nil {
					e.log.Error().Err(err).Str("game_id", g.ID).Msg("resumed turn schedule failed")
				}
			})
		}
	}
	return nil
}
