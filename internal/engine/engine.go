// Package engine drives games through their hand loop. It is
// event-driven and single-writer-per-game: every transition is a
// guarded mutation through the store, keyed on the game's monotonic
// turn number, and follow-up work is enqueued against an internal
// scheduler rather than run recursively. Model calls happen outside
// transactions.
package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/modelarena/holdem/internal/credits"
	"github.com/modelarena/holdem/internal/game"
	"github.com/modelarena/holdem/internal/model"
	"github.com/modelarena/holdem/internal/store"
)

// ErrStaleTurn marks a callback that arrived after the turn it was
// scheduled for had already resolved. Handlers treat it as a silent
// no-op; duplicate and reordered deliveries are expected.
var ErrStaleTurn = errors.New("engine: stale turn")

// Defaults for scheduler gates and game parameters.
const (
	DefaultMaxConcurrent     = 2
	DefaultMinCreditFraction = 0.10
	DefaultScheduleEvery     = 2 * time.Hour
	defaultWorkers           = 4
)

// CreditSource yields the current credit account, usually the external
// provider client.
type CreditSource interface {
	Fetch(ctx context.Context) (credits.Account, error)
}

// Notifier receives a snapshot after every persisted game mutation.
// The websocket hub implements it; a nil notifier is fine.
type Notifier interface {
	GameUpdated(g *game.Game)
}

// Config carries the engine's roster and tunables. Zero values fall
// back to the defaults above.
type Config struct {
	Roster            []string
	Game              game.Config
	MaxConcurrent     int
	MinCreditFraction float64
	ScheduleEvery     time.Duration
	Workers           int
}

func (c *Config) applyDefaults() {
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.MinCreditFraction == 0 {
		c.MinCreditFraction = DefaultMinCreditFraction
	}
	if c.ScheduleEvery == 0 {
		c.ScheduleEvery = DefaultScheduleEvery
	}
	if c.Workers == 0 {
		c.Workers = defaultWorkers
	}
	if c.Game.BuyIn == 0 {
		c.Game.BuyIn = 1000
	}
	if c.Game.SmallBlind == 0 {
		c.Game.SmallBlind = 10
	}
	if c.Game.BigBlind == 0 {
		c.Game.BigBlind = 20
	}
	if c.Game.MaxHands == 0 {
		c.Game.MaxHands = 100
	}
	if c.Game.TurnTimeout == 0 {
		c.Game.TurnTimeout = 90 * time.Second
	}
	if c.Game.InterHandWait == 0 {
		c.Game.InterHandWait = 2 * time.Second
	}
}

// Engine coordinates games, deciders, and the store.
type Engine struct {
	cfg      Config
	store    *store.Store
	decider  model.Decider
	creditor CreditSource
	clock    quartz.Clock
	log      zerolog.Logger
	metrics  *Metrics
	notifier Notifier

	rngMu sync.Mutex
	rng   *rand.Rand

	tasks   chan func(context.Context)
	wg      sync.WaitGroup
	runCtx  context.Context
	cancel  context.CancelFunc
	started bool
}

// New builds an engine. creditor and notifier may be nil; rng seeds the
// deck shuffles and may be shared with nothing else.
func New(cfg Config, st *store.Store, decider model.Decider, creditor CreditSource, clock quartz.Clock, rng *rand.Rand, metrics *Metrics, log zerolog.Logger) *Engine {
	cfg.applyDefaults()
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Engine{
		cfg:      cfg,
		store:    st,
		decider:  decider,
		creditor: creditor,
		clock:    clock,
		log:      log.With().Str("component", "engine").Logger(),
		metrics:  metrics,
		rng:      rng,
		tasks:    make(chan func(context.Context), 256),
	}
}

// SetNotifier wires the spectator feed. Call before Start.
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// Start launches the worker pool and resumes any games interrupted by
// a previous crash. It returns once workers are running.
func (e *Engine) Start(ctx context.Context) error {
	e.runCtx, e.cancel = context.WithCancel(ctx)
	e.started = true
	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e.resume(e.runCtx)
}

// Stop drains in-flight work and stops the workers.
func (e *Engine) Stop() {
	if !e.started {
		return
	}
	e.cancel()
	e.wg.Wait()
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.runCtx.Done():
			return
		case fn := <-e.tasks:
			fn(e.runCtx)
		}
	}
}

// enqueue hands fn to the worker pool. Dropped silently after Stop;
// every handler re-validates against the store, so a dropped task is
// recovered by the resume scan on the next start.
func (e *Engine) enqueue(fn func(context.Context)) {
	select {
	case e.tasks <- fn:
	case <-e.runCtx.Done():
	}
}

// runAfter schedules fn on the worker pool after delay. Non-positive
// delays enqueue immediately.
func (e *Engine) runAfter(delay time.Duration, fn func(context.Context)) {
	if delay <= 0 {
		e.enqueue(fn)
		return
	}
	e.clock.AfterFunc(delay, func() {
		e.enqueue(fn)
	})
}

// startHandLocked shuffles under the rng mutex; workers start hands
// for different games concurrently and rand.Rand is not safe for that.
func (e *Engine) startHandLocked(g *game.Game, now time.Time) bool {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return g.StartHand(e.rng, now)
}

// notify pushes a snapshot to the spectator feed.
func (e *Engine) notify(g *game.Game) {
	if e.notifier != nil && g != nil {
		e.notifier.GameUpdated(g)
	}
}
