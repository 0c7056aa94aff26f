package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/modelarena/holdem/internal/game"
	"github.com/modelarena/holdem/internal/gameid"
	"github.com/modelarena/holdem/internal/store"
)

var errGameOver = errors.New("engine: game over")

// CreateGame seats the given models, debits their buy-ins, and kicks
// off the hand loop. origin labels the creation metric ("scheduled",
// "forced", ...).
func (e *Engine) CreateGame(ctx context.Context, modelIDs []string, isDev bool, origin string) (*game.Game, error) {
	if len(modelIDs) < 2 {
		return nil, fmt.Errorf("a game needs at least two models, got %d", len(modelIDs))
	}
	now := e.clock.Now()
	g := game.New(gameid.New(), e.cfg.Game, modelIDs, now)
	g.IsDev = isDev
	// Buy-ins are debited in the same transaction that creates the
	// record, so the game is born active.
	g.Status = game.StatusActive
	g.LogSystemEntry("game created", now)

	if err := e.store.CreateGame(ctx, g, now); err != nil {
		return nil, fmt.Errorf("creating game: %w", err)
	}
	e.metrics.GamesCreated.WithLabelValues(origin).Inc()
	e.log.Info().Str("game_id", g.ID).Strs("models", modelIDs).Bool("dev", isDev).
		Str("origin", origin).Msg("game created")
	e.notify(g)

	e.enqueue(func(ctx context.Context) {
		e.nextHand(ctx, g.ID)
	})
	return g, nil
}

// nextHand starts the next hand for an active game, or settles the
// game when its termination condition holds. Duplicate deliveries
// mid-hand are dropped by the current-player guard.
func (e *Engine) nextHand(ctx context.Context, gameID string) {
	var turn int64
	var runOut bool
	g, err := e.store.UpdateGame(ctx, gameID, func(g *game.Game) error {
		if g.Status != game.StatusActive {
			return ErrStaleTurn
		}
		if g.Table.CurrentPlayer != game.NoSeat || g.Deck != nil {
			// A hand is already in flight.
			return ErrStaleTurn
		}
		if !e.startHandLocked(g, e.clock.Now()) {
			return errGameOver
		}
		turn = g.Table.TurnNumber
		// Blind posts can consume every stack outright; then no seat can
		// act and the board must run out instead of a turn going on the
		// clock.
		runOut = g.Table.CurrentPlayer == game.NoSeat
		return nil
	})
	switch {
	case errors.Is(err, errGameOver):
		if err := e.completeGame(ctx, gameID); err != nil {
			e.log.Error().Err(err).Str("game_id", gameID).Msg("completing game failed")
		}
		return
	case errors.Is(err, ErrStaleTurn):
		e.metrics.StaleCallbacks.Inc()
		return
	case err != nil:
		e.log.Error().Err(err).Str("game_id", gameID).Msg("starting hand failed")
		return
	}

	e.metrics.HandsPlayed.Inc()
	e.log.Debug().Str("game_id", gameID).Int("hand", g.CurrentHand).Msg("hand started")
	e.notify(g)

	if runOut {
		e.enqueue(func(ctx context.Context) {
			if err := e.advanceStreet(ctx, gameID, turn); err != nil {
				e.log.Error().Err(err).Str("game_id", gameID).Msg("running out all-in hand failed")
			}
		})
		return
	}
	e.enqueue(func(ctx context.Context) {
		if err := e.ScheduleAITurn(ctx, gameID, turn); err != nil {
			e.log.Error().Err(err).Str("game_id", gameID).Msg("scheduling first turn failed")
		}
	})
}

// completeGame settles an active game: results are ranked by final
// chips, player records and the ledger are updated in the same
// transaction, then a rank snapshot and a best-effort credit sync run.
func (e *Engine) completeGame(ctx context.Context, gameID string) error {
	now := e.clock.Now()
	g, err := e.store.CompleteGame(ctx, gameID, func(g *game.Game) error {
		if g.Status != game.StatusActive {
			return ErrStaleTurn
		}
		g.Status = game.StatusCompleted
		g.CompletedAt = &now
		g.Results = rankResults(g)
		g.LogSystemEntry("game complete", now)
		return nil
	}, now)
	if errors.Is(err, ErrStaleTurn) {
		return nil
	}
	if err != nil {
		return err
	}

	e.metrics.GamesCompleted.Inc()
	e.metrics.AICost.Add(g.TotalAICost)
	e.log.Info().Str("game_id", gameID).Int("hands", g.CurrentHand).
		Float64("ai_cost", g.TotalAICost).Msg("game complete")
	e.notify(g)

	if _, err := e.store.SaveRankSnapshot(ctx, now); err != nil {
		e.log.Error().Err(err).Msg("rank snapshot failed")
	}
	e.syncCredits(ctx)
	return nil
}

// cancelGame marks the game cancelled and cashes seats out at their
// current stacks so chips are not destroyed.
func (e *Engine) cancelGame(ctx context.Context, gameID, reason string) error {
	now := e.clock.Now()
	g, err := e.store.CompleteGame(ctx, gameID, func(g *game.Game) error {
		if g.Status != game.StatusActive && g.Status != game.StatusWaiting {
			return ErrStaleTurn
		}
		g.Status = game.StatusCancelled
		g.CompletedAt = &now
		g.LogSystemEntry("game cancelled: "+reason, now)
		return nil
	}, now)
	if errors.Is(err, ErrStaleTurn) {
		return nil
	}
	if err != nil {
		return err
	}
	e.metrics.GamesCancelled.Inc()
	e.log.Warn().Str("game_id", gameID).Str("reason", reason).Msg("game cancelled")
	e.notify(g)
	return nil
}

// rankResults orders seats by final chips, best first.
func rankResults(g *game.Game) []game.Result {
	order := make([]*game.Seat, len(g.Seats))
	copy(order, g.Seats)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Chips > order[j].Chips
	})

	results := make([]game.Result, len(order))
	for i, s := range order {
		results[i] = game.Result{
			ModelID: s.ModelID,
			Chips:   s.Chips,
			Profit:  s.Chips - g.Config.BuyIn,
			Rank:    i + 1,
		}
	}
	return results
}

// syncCredits refreshes the stored credit snapshot from the provider.
// Best effort; failures only log.
func (e *Engine) syncCredits(ctx context.Context) {
	if e.creditor == nil {
		return
	}
	acct, err := e.creditor.Fetch(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("credit sync failed")
		return
	}
	if err := e.store.SaveCredits(ctx, store.CreditAccount{
		Balance:      acct.Balance,
		TotalUsed:    acct.TotalUsed,
		Limit:        acct.Limit,
		LastSyncedAt: acct.LastSyncedAt,
	}); err != nil {
		e.log.Warn().Err(err).Msg("saving credit snapshot failed")
	}
}
