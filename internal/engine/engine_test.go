package engine

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelarena/holdem/internal/credits"
	"github.com/modelarena/holdem/internal/game"
	"github.com/modelarena/holdem/internal/model"
	"github.com/modelarena/holdem/internal/store"
)

// scriptDecider answers every turn with fn.
type scriptDecider struct {
	fn func(model.Turn) (model.Decision, error)
}

func (d scriptDecider) Decide(_ context.Context, turn model.Turn) (model.Decision, error) {
	return d.fn(turn)
}

// blockingDecider never answers; turns resolve via timeout only.
type blockingDecider struct{}

func (blockingDecider) Decide(ctx context.Context, _ model.Turn) (model.Decision, error) {
	<-ctx.Done()
	return model.Decision{}, ctx.Err()
}

type stubCredits struct {
	acct credits.Account
	err  error
}

func (s stubCredits) Fetch(context.Context) (credits.Account, error) {
	return s.acct, s.err
}

func alwaysFold() scriptDecider {
	return scriptDecider{fn: func(model.Turn) (model.Decision, error) {
		return model.Decision{Action: game.Fold, Reasoning: "testing the fold line"}, nil
	}}
}

func goodCredits() stubCredits {
	return stubCredits{acct: credits.Account{Balance: 15, TotalUsed: 5, Limit: 20, LastSyncedAt: time.Now()}}
}

func newTestEngine(t *testing.T, clock quartz.Clock, decider model.Decider, creditor CreditSource, mod func(*Config)) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "holdem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := Config{
		Roster: []string{"alpha", "beta"},
		Game: game.Config{
			BuyIn:         1000,
			SmallBlind:    10,
			BigBlind:      20,
			MaxHands:      3,
			TurnTimeout:   90 * time.Second,
			InterHandWait: time.Millisecond,
		},
	}
	if mod != nil {
		mod(&cfg)
	}
	e := New(cfg, st, decider, creditor, clock, rand.New(rand.NewSource(7)), nil, zerolog.Nop())
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(e.Stop)
	return e, st
}

func waitForGame(t *testing.T, st *store.Store, id string, cond func(*game.Game) bool) *game.Game {
	t.Helper()
	var g *game.Game
	require.Eventually(t, func() bool {
		got, err := st.Game(context.Background(), id)
		if err != nil {
			return false
		}
		g = got
		return cond(got)
	}, 5*time.Second, 5*time.Millisecond)
	return g
}

func TestGamePlaysToCompletion(t *testing.T) {
	t.Parallel()

	e, st := newTestEngine(t, quartz.NewReal(), alwaysFold(), nil, nil)
	ctx := context.Background()

	g, err := e.CreateGame(ctx, []string{"alpha", "beta"}, false, "test")
	require.NoError(t, err)

	final := waitForGame(t, st, g.ID, func(g *game.Game) bool {
		return g.Status == game.StatusCompleted
	})

	assert.Equal(t, 3, final.CurrentHand)
	assert.Len(t, final.HandHistory, 3)
	for _, h := range final.HandHistory {
		assert.Equal(t, game.WinAllFolded, h.WinCondition)
	}

	total := 0
	for _, s := range final.Seats {
		total += s.Chips
	}
	assert.Equal(t, 2000, total, "chips conserved across the game")

	require.Len(t, final.Results, 2)
	assert.Equal(t, 1, final.Results[0].Rank)
	assert.GreaterOrEqual(t, final.Results[0].Chips, final.Results[1].Chips)
	assert.Equal(t, final.Results[0].Chips-1000, final.Results[0].Profit)

	// Settlement reconciles the ledger and writes a rank snapshot.
	players, err := st.ListPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, 2)
	var balance int64
	for _, p := range players {
		balance += p.Balance
	}
	assert.Equal(t, int64(0), balance, "zero-sum across players")

	snaps, err := st.RankSnapshots(ctx, 1)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
}

func TestTimeoutFoldsAndLateDecisionIsDropped(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	e, st := newTestEngine(t, mock, blockingDecider{}, nil, nil)
	ctx := context.Background()

	g, err := e.CreateGame(ctx, []string{"alpha", "beta"}, false, "test")
	require.NoError(t, err)

	// The first turn is claimed and left hanging on the model.
	claimed := waitForGame(t, st, g.ID, func(g *game.Game) bool {
		return g.ThinkingSeat != game.NoSeat
	})
	onTurn := claimed.ThinkingSeat
	modelID := claimed.Seats[onTurn].ModelID
	require.Equal(t, int64(0), claimed.Table.TurnNumber)

	// Deadline expiry forces the fold.
	mock.Advance(90 * time.Second).MustWait(ctx)
	after := waitForGame(t, st, g.ID, func(g *game.Game) bool {
		return g.Table.TurnNumber == 1
	})
	assert.True(t, after.Seats[onTurn].Folded)
	assert.Equal(t, 1, after.Stats[modelID].Timeouts)

	// The hand resolved as a fold-win; pot went to the other seat.
	assert.Equal(t, game.WinAllFolded, after.HandHistory[0].WinCondition)

	// A late decision for the expired turn is silently dropped.
	err = e.ApplyDecision(ctx, g.ID, 0, model.Decision{Action: game.Raise, Amount: 100})
	require.NoError(t, err)
	unchanged, err := st.Game(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, after.Table.TurnNumber, unchanged.Table.TurnNumber)
	assert.Equal(t, after.Seats[onTurn].Chips, unchanged.Seats[onTurn].Chips)
}

func TestDuplicateScheduleIsNoOp(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	e, st := newTestEngine(t, mock, blockingDecider{}, nil, nil)
	ctx := context.Background()

	g, err := e.CreateGame(ctx, []string{"alpha", "beta"}, false, "test")
	require.NoError(t, err)
	claimed := waitForGame(t, st, g.ID, func(g *game.Game) bool {
		return g.ThinkingSeat != game.NoSeat
	})

	// Redelivery of the same schedule callback: thinker already set.
	require.NoError(t, e.ScheduleAITurn(ctx, g.ID, claimed.Table.TurnNumber))
	again, err := st.Game(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, claimed.ThinkingSeat, again.ThinkingSeat)
	assert.Equal(t, claimed.Table.TurnNumber, again.Table.TurnNumber)
}

func TestApplyDecisionIdempotent(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	e, st := newTestEngine(t, mock, blockingDecider{}, nil, nil)
	ctx := context.Background()

	g, err := e.CreateGame(ctx, []string{"alpha", "beta"}, false, "test")
	require.NoError(t, err)
	waitForGame(t, st, g.ID, func(g *game.Game) bool {
		return g.ThinkingSeat != game.NoSeat
	})

	dec := model.Decision{Action: game.Call, Reasoning: "limp"}
	require.NoError(t, e.ApplyDecision(ctx, g.ID, 0, dec))
	first := waitForGame(t, st, g.ID, func(g *game.Game) bool {
		return g.Table.TurnNumber >= 1
	})

	// Second delivery of the same payload loses the turn race.
	require.NoError(t, e.ApplyDecision(ctx, g.ID, 0, dec))
	second, err := st.Game(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Table.TurnNumber, second.Table.TurnNumber)
	assert.Equal(t, first.Table.Pot, second.Table.Pot)
}

func TestInvalidDecisionCoercedToFold(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	e, st := newTestEngine(t, mock, blockingDecider{}, nil, nil)
	ctx := context.Background()

	g, err := e.CreateGame(ctx, []string{"alpha", "beta"}, false, "test")
	require.NoError(t, err)
	claimed := waitForGame(t, st, g.ID, func(g *game.Game) bool {
		return g.ThinkingSeat != game.NoSeat
	})
	onTurn := claimed.ThinkingSeat
	modelID := claimed.Seats[onTurn].ModelID

	// Checking while facing the big blind is illegal.
	require.NoError(t, e.ApplyDecision(ctx, g.ID, 0, model.Decision{Action: game.Check}))
	after := waitForGame(t, st, g.ID, func(g *game.Game) bool {
		return g.Table.TurnNumber == 1
	})
	assert.True(t, after.Seats[onTurn].Folded)
	assert.Equal(t, 1, after.Stats[modelID].InvalidActions)
}

func TestSchedulerCreditGate(t *testing.T) {
	t.Parallel()

	low := stubCredits{acct: credits.Account{Balance: 1.5, TotalUsed: 18.5, Limit: 20}}
	e, st := newTestEngine(t, quartz.NewReal(), alwaysFold(), low, nil)
	ctx := context.Background()

	res := e.TryCreateScheduledGame(ctx)
	assert.False(t, res.Created)
	assert.Contains(t, res.Reason, "credits below 10%")

	// The failed gate left the store untouched.
	n, err := st.CountActive(ctx, true)
	require.NoError(t, err)
	assert.Zero(t, n)
	players, err := st.ListPlayers(ctx)
	require.NoError(t, err)
	assert.Empty(t, players)
}

func TestSchedulerConcurrencyGate(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	e, _ := newTestEngine(t, mock, blockingDecider{}, goodCredits(), nil)
	ctx := context.Background()

	res := e.TryCreateScheduledGame(ctx)
	require.True(t, res.Created, res.Reason)
	res = e.TryCreateScheduledGame(ctx)
	require.True(t, res.Created, res.Reason)

	res = e.TryCreateScheduledGame(ctx)
	assert.False(t, res.Created)
	assert.Contains(t, res.Reason, "concurrency cap")

	// Forced games bypass the cap and do not count against it.
	res = e.ForceCreateGame(ctx)
	assert.True(t, res.Created, res.Reason)
}

func TestResumeBetweenHands(t *testing.T) {
	t.Parallel()

	// Seed a store with an active game that has no hand in flight,
	// as if the process died during the inter-hand wait.
	dir := filepath.Join(t.TempDir(), "holdem.db")
	st, err := store.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	now := time.Now().UTC()
	g := game.New("resume-1", game.Config{
		BuyIn: 1000, SmallBlind: 10, BigBlind: 20, MaxHands: 3,
		TurnTimeout: 90 * time.Second, InterHandWait: time.Millisecond,
	}, []string{"alpha", "beta"}, now)
	g.Status = game.StatusActive
	require.NoError(t, st.CreateGame(context.Background(), g, now))

	mock := quartz.NewMock(t)
	e := New(Config{Roster: []string{"alpha", "beta"}}, st, blockingDecider{}, nil, mock,
		rand.New(rand.NewSource(7)), nil, zerolog.Nop())
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(e.Stop)

	resumed := waitForGame(t, st, "resume-1", func(g *game.Game) bool {
		return g.CurrentHand == 1 && g.ThinkingSeat != game.NoSeat
	})
	assert.Equal(t, game.Preflop, resumed.Table.Phase)
}

func TestResumeAllInBlindsHandRunsOut(t *testing.T) {
	t.Parallel()

	// Stacks of 10 and 15 against 10/20 blinds: posting leaves both
	// seats all-in with nobody to act. Seed that hand mid-flight, as if
	// the process died right after dealing, and let resume run the
	// board out instead of treating the game as settled.
	dir := filepath.Join(t.TempDir(), "holdem.db")
	st, err := store.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	now := time.Now().UTC()
	g := game.New("shortstack-1", game.Config{
		BuyIn: 1000, SmallBlind: 10, BigBlind: 20, MaxHands: 1,
		TurnTimeout: 90 * time.Second, InterHandWait: time.Millisecond,
	}, []string{"alpha", "beta"}, now)
	g.Status = game.StatusActive
	g.Seats[0].Chips = 10
	g.Seats[1].Chips = 15
	require.True(t, g.StartHand(rand.New(rand.NewSource(3)), now))
	require.Equal(t, game.NoSeat, g.Table.CurrentPlayer)
	require.False(t, g.Over(), "a hand in flight is not a finished game")
	require.NoError(t, st.CreateGame(ctx, g, now))

	e := New(Config{}, st, blockingDecider{}, nil, quartz.NewReal(),
		rand.New(rand.NewSource(9)), nil, zerolog.Nop())
	require.NoError(t, e.Start(ctx))
	t.Cleanup(e.Stop)

	final := waitForGame(t, st, "shortstack-1", func(g *game.Game) bool {
		return g.Status == game.StatusCompleted
	})
	require.Len(t, final.HandHistory, 1)
	assert.Equal(t, game.WinShowdown, final.HandHistory[0].WinCondition)

	total := 0
	for _, s := range final.Seats {
		total += s.Chips
	}
	assert.Equal(t, 25, total, "every chip in the pot comes back out")
}

func TestResumeMidTurnRearmsTimeout(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "holdem.db")
	st, err := store.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	// First engine: play up to a claimed turn, then stop (the crash).
	mock1 := quartz.NewMock(t)
	e1 := New(Config{}, st, blockingDecider{}, nil, mock1,
		rand.New(rand.NewSource(7)), nil, zerolog.Nop())
	require.NoError(t, e1.Start(ctx))
	g, err := e1.CreateGame(ctx, []string{"alpha", "beta"}, false, "test")
	require.NoError(t, err)
	waitForGame(t, st, g.ID, func(g *game.Game) bool {
		return g.ThinkingSeat != game.NoSeat
	})
	e1.Stop()

	// Second engine resumes; the recorded turn gets a fresh timeout.
	mock2 := quartz.NewMock(t)
	e2 := New(Config{}, st, blockingDecider{}, nil, mock2,
		rand.New(rand.NewSource(8)), nil, zerolog.Nop())
	require.NoError(t, e2.Start(ctx))
	t.Cleanup(e2.Stop)

	require.Eventually(t, func() bool {
		mock2.Advance(90 * time.Second)
		got, err := st.Game(ctx, g.ID)
		return err == nil && got.Table.TurnNumber >= 1
	}, 5*time.Second, 10*time.Millisecond)

	after, err := st.Game(ctx, g.ID)
	require.NoError(t, err)
	var timeouts int
	for _, s := range after.Stats {
		timeouts += s.Timeouts
	}
	assert.GreaterOrEqual(t, timeouts, 1)
}
