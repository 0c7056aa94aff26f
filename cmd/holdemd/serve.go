package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/modelarena/holdem/cmd/holdemd/shared"
	"github.com/modelarena/holdem/internal/api"
	"github.com/modelarena/holdem/internal/config"
	"github.com/modelarena/holdem/internal/credits"
	"github.com/modelarena/holdem/internal/engine"
	"github.com/modelarena/holdem/internal/model"
	"github.com/modelarena/holdem/internal/randutil"
	"github.com/modelarena/holdem/internal/ratelimit"
	"github.com/modelarena/holdem/internal/store"
)

// ServeCmd runs the arena: scheduler, engine, and HTTP API.
type ServeCmd struct {
	Config  string `kong:"default='holdem.hcl',help='Path to the HCL configuration file'"`
	Debug   bool   `kong:"help='Enable debug logging'"`
	JSONLog bool   `kong:"name='json-log',help='Emit structured JSON logs instead of console output'"`
	Seed    *int64 `kong:"help='Deterministic RNG seed for deck shuffles (optional)'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.Server.LogLevel
	if c.Debug {
		level = "debug"
	}
	logger := shared.SetupLogger(level, c.JSONLog)

	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info().Int64("seed", seed).Msg("Using deterministic seed")
	} else {
		seed = time.Now().UnixNano()
	}
	rng := randutil.New(seed)

	st, err := store.Open(cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	clock := quartz.NewReal()

	var creditor engine.CreditSource
	if cfg.Server.CreditsURL != "" {
		creditor = credits.New(cfg.Server.CreditsURL, 30*time.Second, clock, logger)
	} else {
		logger.Warn().Msg("No credits_url configured, scheduled games skip the credit gate")
	}

	decider := model.NewHTTPDecider(cfg.Server.ModelEndpoint, 2*time.Minute, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := engine.NewMetrics(registry)

	eng := engine.New(cfg.EngineConfig(), st, decider, creditor, clock, rng, metrics, logger)
	hub := api.NewHub(logger)
	eng.SetNotifier(hub)

	srv := api.NewServer(st, eng, hub, ratelimit.NewGuard(clock),
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), logger)
	httpServer := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket routes manage their own deadlines
	}

	logger.Info().
		Str("address", cfg.Server.Listen).
		Str("db_path", cfg.Server.DBPath).
		Strs("roster", cfg.Roster()).
		Int("buy_in", cfg.Game.BuyIn).
		Int("small_blind", cfg.Game.SmallBlind).
		Int("big_blind", cfg.Game.BigBlind).
		Int("max_hands", cfg.Game.MaxHands).
		Msg("Starting holdem arena")

	ctx := shared.SetupSignalHandler(logger)
	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer eng.Stop()

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return eng.RunScheduler(runCtx)
	})
	g.Go(func() error {
		<-runCtx.Done()
		logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
