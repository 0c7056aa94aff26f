package engine

import (
	"context"
	"fmt"

	"github.com/modelarena/holdem/internal/credits"
	"github.com/modelarena/holdem/internal/store"
)

// CreateResult reports a scheduler tick's outcome.
type CreateResult struct {
	Created bool
	GameID  string
	Reason  string
}

// RunScheduler ticks TryCreateScheduledGame until ctx is cancelled.
func (e *Engine) RunScheduler(ctx context.Context) error {
	tick := e.clock.TickerFunc(ctx, e.cfg.ScheduleEvery, func() error {
		res := e.TryCreateScheduledGame(ctx)
		if !res.Created {
			e.log.Info().Str("reason", res.Reason).Msg("scheduler tick skipped")
		}
		return nil
	}, "scheduler")
	return tick.Wait()
}

// TryCreateScheduledGame creates a new roster game when both gates
// pass: fewer than MaxConcurrent live non-dev games, and at least
// MinCreditFraction of the credit limit remaining. A failed gate
// leaves the store untouched.
func (e *Engine) TryCreateScheduledGame(ctx context.Context) CreateResult {
	active, err := e.store.CountActive(ctx, false)
	if err != nil {
		return CreateResult{Reason: fmt.Sprintf("counting active games: %v", err)}
	}
	if active >= e.cfg.MaxConcurrent {
		return CreateResult{Reason: fmt.Sprintf("%d live games at the concurrency cap", active)}
	}

	acct, ok := e.creditState(ctx)
	if !ok {
		return CreateResult{Reason: "credit state unavailable"}
	}
	if acct.Fraction() < e.cfg.MinCreditFraction {
		return CreateResult{Reason: fmt.Sprintf("credits below %.0f%%", e.cfg.MinCreditFraction*100)}
	}

	return e.createRosterGame(ctx, false, "scheduled")
}

// ForceCreateGame bypasses the concurrency and credit gates. Forced
// games are dev games and do not count against the scheduler's cap.
func (e *Engine) ForceCreateGame(ctx context.Context) CreateResult {
	return e.createRosterGame(ctx, true, "forced")
}

func (e *Engine) createRosterGame(ctx context.Context, isDev bool, origin string) CreateResult {
	if len(e.cfg.Roster) < 2 {
		return CreateResult{Reason: fmt.Sprintf("roster has %d models, need at least 2", len(e.cfg.Roster))}
	}
	g, err := e.CreateGame(ctx, e.cfg.Roster, isDev, origin)
	if err != nil {
		return CreateResult{Reason: err.Error()}
	}
	return CreateResult{Created: true, GameID: g.ID}
}

// creditState fetches fresh credits, persisting the snapshot; when the
// provider is unreachable it falls back to the last stored snapshot.
func (e *Engine) creditState(ctx context.Context) (credits.Account, bool) {
	if e.creditor != nil {
		acct, err := e.creditor.Fetch(ctx)
		if err == nil {
			if err := e.store.SaveCredits(ctx, store.CreditAccount{
				Balance:      acct.Balance,
				TotalUsed:    acct.TotalUsed,
				Limit:        acct.Limit,
				LastSyncedAt: acct.LastSyncedAt,
			}); err != nil {
				e.log.Warn().Err(err).Msg("saving credit snapshot failed")
			}
			return acct, true
		}
		e.log.Warn().Err(err).Msg("credit fetch failed; using stored snapshot")
	}

	stored, err := e.store.Credits(ctx)
	if err != nil {
		if e.creditor == nil {
			// No provider configured and nothing persisted: the gate is off.
			return credits.Account{Balance: credits.DefaultLimit, Limit: credits.DefaultLimit}, true
		}
		return credits.Account{}, false
	}
	return credits.Account{
		Balance:      stored.Balance,
		TotalUsed:    stored.TotalUsed,
		Limit:        stored.Limit,
		LastSyncedAt: stored.LastSyncedAt,
	}, true
}
