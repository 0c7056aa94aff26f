package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelarena/holdem/internal/game"
	"github.com/modelarena/holdem/internal/model"
)

// followUp is the single scheduling decision a mutation hands back:
// what to enqueue once the transaction committed.
type followUp struct {
	kind followKind
	turn int64
}

type followKind int

const (
	followNone followKind = iota
	followTurn
	followStreet
	followSettle
)

// errFatal marks structural failures (duplicate cards, impossible pot
// state). The game is cancelled; transient store errors are not.
var errFatal = errors.New("fatal game error")

// ScheduleAITurn claims the current turn for the on-turn seat and, on
// success, dispatches the decision request and arms the timeout. A
// stale or duplicate delivery is a silent no-op: the turn guard drops
// callbacks whose expectedTurn no longer matches, and a turn with a
// thinker already set is not re-armed.
func (e *Engine) ScheduleAITurn(ctx context.Context, gameID string, expectedTurn int64) error {
	g, err := e.store.UpdateGame(ctx, gameID, func(g *game.Game) error {
		if g.Status != game.StatusActive || g.Table.TurnNumber != expectedTurn {
			return ErrStaleTurn
		}
		if g.ThinkingSeat != game.NoSeat {
			return ErrStaleTurn
		}
		seat := g.Seat(g.Table.CurrentPlayer)
		if seat == nil || !seat.CanAct() {
			return ErrStaleTurn
		}
		g.ThinkingSeat = g.Table.CurrentPlayer
		return nil
	})
	if errors.Is(err, ErrStaleTurn) {
		e.metrics.StaleCallbacks.Inc()
		return nil
	}
	if err != nil {
		return err
	}

	e.notify(g)
	e.dispatchTurn(ctx, g, expectedTurn)
	return nil
}

// dispatchTurn fires the decision request and arms the timeout for the
// turn the document currently claims via ThinkingSeat. Also used by
// the resume scan for turns that were in flight at crash time.
func (e *Engine) dispatchTurn(ctx context.Context, g *game.Game, expectedTurn int64) {
	seatIdx := g.ThinkingSeat
	legal := g.LegalActions(seatIdx)
	turn := model.Turn{
		GameID:       g.ID,
		ModelID:      g.Seats[seatIdx].ModelID,
		SeatIndex:    seatIdx,
		ExpectedTurn: expectedTurn,
		Legal:        legal,
		Prompt:       model.BuildPrompt(g, seatIdx, legal),
	}
	gameID := g.ID

	// The model call must not block a worker; the timeout path is the
	// only guaranteed resolution for this turn.
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		dec, err := e.decider.Decide(ctx, turn)
		if err != nil {
			e.log.Debug().Err(err).Str("game_id", gameID).Int64("turn", expectedTurn).
				Msg("decision rpc failed; waiting for timeout")
			return
		}
		e.metrics.DecisionLatency.Observe(dec.Latency.Seconds())
		if err := e.ApplyDecision(ctx, gameID, expectedTurn, dec); err != nil {
			e.log.Error().Err(err).Str("game_id", gameID).Msg("applying decision failed")
		}
	}()

	e.runAfter(g.Config.TurnTimeout, func(ctx context.Context) {
		if err := e.HandleTimeout(ctx, gameID, expectedTurn); err != nil {
			e.log.Error().Err(err).Str("game_id", gameID).Msg("timeout handling failed")
		}
	})
}

// ApplyDecision validates and applies a model's decision for the turn
// it was requested on. Late or duplicate decisions lose the turn-number
// race and are dropped; an illegal action is coerced to a fold and
// counted against the model.
func (e *Engine) ApplyDecision(ctx context.Context, gameID string, expectedTurn int64, dec model.Decision) error {
	var follow followUp
	g, err := e.store.UpdateGame(ctx, gameID, func(g *game.Game) error {
		if g.Status != game.StatusActive || g.Table.TurnNumber != expectedTurn || g.ThinkingSeat == game.NoSeat {
			return ErrStaleTurn
		}
		now := e.clock.Now()
		seatIdx := g.ThinkingSeat
		seat := g.Seats[seatIdx]

		g.TotalAICost += dec.Cost
		g.TotalTokens += dec.Tokens
		if st := g.Stats[seat.ModelID]; st != nil {
			st.TokensUsed += dec.Tokens
			st.CostUSD += dec.Cost
		}

		action, amount := dec.Action, dec.Amount
		if dec.Invalid || g.ValidateAction(seatIdx, action, amount) != nil {
			g.RecordInvalidAction(seat)
			e.metrics.InvalidActions.Inc()
			action, amount = game.Fold, 0
		}

		moved := g.Apply(seatIdx, action, amount, now)
		g.LogActionEntry(seatIdx, action, moved, dec.Reasoning, now)
		e.metrics.Actions.WithLabelValues(string(action)).Inc()

		g.Table.TurnNumber++
		g.ThinkingSeat = game.NoSeat

		var err error
		follow, err = e.resolveNext(g)
		return err
	})
	return e.afterMutation(ctx, gameID, g, follow, err)
}

// HandleTimeout resolves an expired turn as a forced fold. It races
// ApplyDecision on the turn number; exactly one of them wins.
func (e *Engine) HandleTimeout(ctx context.Context, gameID string, expectedTurn int64) error {
	var follow followUp
	g, err := e.store.UpdateGame(ctx, gameID, func(g *game.Game) error {
		if g.Status != game.StatusActive || g.Table.TurnNumber != expectedTurn || g.ThinkingSeat == game.NoSeat {
			return ErrStaleTurn
		}
		now := e.clock.Now()
		seatIdx := g.ThinkingSeat
		seat := g.Seats[seatIdx]

		g.RecordTimeout(seat)
		e.metrics.Timeouts.Inc()
		g.Apply(seatIdx, game.Fold, 0, now)
		g.LogActionEntry(seatIdx, game.Fold, 0, "timeout", now)
		e.metrics.Actions.WithLabelValues(string(game.Fold)).Inc()

		g.Table.TurnNumber++
		g.ThinkingSeat = game.NoSeat

		var err error
		follow, err = e.resolveNext(g)
		return err
	})
	return e.afterMutation(ctx, gameID, g, follow, err)
}

// resolveNext runs after an applied action: fold-wins settle inside the
// same transaction, a finished round hands off to the street advance,
// and otherwise the next seat is put on the clock.
func (e *Engine) resolveNext(g *game.Game) (followUp, error) {
	now := e.clock.Now()
	if g.NonFolded() == 1 {
		if _, err := g.FoldWin(now); err != nil {
			return followUp{}, fmt.Errorf("%w: fold win: %v", errFatal, err)
		}
		return followUp{kind: followSettle}, nil
	}
	if g.RoundComplete() {
		return followUp{kind: followStreet, turn: g.Table.TurnNumber}, nil
	}
	g.Table.CurrentPlayer = g.NextToAct(g.Table.CurrentPlayer)
	return followUp{kind: followTurn, turn: g.Table.TurnNumber}, nil
}

// advanceStreet ends the betting round: deals the next street (or runs
// the board out when everyone is all-in), evaluates the showdown when
// the hand is done, and otherwise schedules the first actor.
func (e *Engine) advanceStreet(ctx context.Context, gameID string, expectedTurn int64) error {
	var follow followUp
	g, err := e.store.UpdateGame(ctx, gameID, func(g *game.Game) error {
		if g.Status != game.StatusActive || g.Table.TurnNumber != expectedTurn || g.ThinkingSeat != game.NoSeat {
			return ErrStaleTurn
		}
		if !g.RoundComplete() {
			return ErrStaleTurn
		}
		now := e.clock.Now()

		var next game.Phase
		if g.RunOutNeeded() {
			g.DealNextStreet(game.River, now)
			next = g.AdvanceStreet(now)
		} else {
			next = g.AdvanceStreet(now)
		}

		if next == game.Showdown {
			if _, err := g.ShowdownResult(now); err != nil {
				return fmt.Errorf("%w: showdown: %v", errFatal, err)
			}
			follow = followUp{kind: followSettle}
			return nil
		}
		follow = followUp{kind: followTurn, turn: g.Table.TurnNumber}
		return nil
	})
	return e.afterMutation(ctx, gameID, g, follow, err)
}

// afterMutation translates a mutation result into scheduling: stale
// no-ops are dropped, fatal errors cancel the game, and a committed
// write dispatches its follow-up.
func (e *Engine) afterMutation(ctx context.Context, gameID string, g *game.Game, follow followUp, err error) error {
	if errors.Is(err, ErrStaleTurn) {
		e.metrics.StaleCallbacks.Inc()
		return nil
	}
	if errors.Is(err, errFatal) {
		e.log.Error().Err(err).Str("game_id", gameID).Msg("game mutation hit a structural bug; cancelling")
		return e.cancelGame(ctx, gameID, err.Error())
	}
	if err != nil {
		return err
	}

	e.notify(g)
	switch follow.kind {
	case followTurn:
		e.enqueue(func(ctx context.Context) {
			if err := e.ScheduleAITurn(ctx, gameID, follow.turn); err != nil {
				e.log.Error().Err(err).Str("game_id", gameID).Msg("scheduling turn failed")
			}
		})
	case followStreet:
		e.enqueue(func(ctx context.Context) {
			if err := e.advanceStreet(ctx, gameID, follow.turn); err != nil {
				e.log.Error().Err(err).Str("game_id", gameID).Msg("advancing street failed")
			}
		})
	case followSettle:
		e.runAfter(g.Config.InterHandWait, func(ctx context.Context) {
			e.nextHand(ctx, gameID)
		})
	}
	return nil
}
