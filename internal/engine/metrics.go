package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the engine's Prometheus collectors.
type Metrics struct {
	GamesCreated    *prometheus.CounterVec
	GamesCompleted  prometheus.Counter
	GamesCancelled  prometheus.Counter
	HandsPlayed     prometheus.Counter
	Actions         *prometheus.CounterVec
	Timeouts        prometheus.Counter
	InvalidActions  prometheus.Counter
	StaleCallbacks  prometheus.Counter
	DecisionLatency prometheus.Histogram
	AICost          prometheus.Counter
}

// NewMetrics builds and registers the collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GamesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holdem_games_created_total",
			Help: "Games created, by origin.",
		}, []string{"origin"}),
		GamesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holdem_games_completed_total",
			Help: "Games that reached settlement.",
		}),
		GamesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holdem_games_cancelled_total",
			Help: "Games cancelled on fatal errors.",
		}),
		HandsPlayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holdem_hands_played_total",
			Help: "Hands started across all games.",
		}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holdem_actions_total",
			Help: "Applied betting actions, by kind.",
		}, []string{"action"}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holdem_timeouts_total",
			Help: "Turns resolved by the timeout fold.",
		}),
		InvalidActions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holdem_invalid_actions_total",
			Help: "Model decisions coerced to fold.",
		}),
		StaleCallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holdem_stale_callbacks_total",
			Help: "Callbacks dropped by the turn guard.",
		}),
		DecisionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "holdem_decision_latency_seconds",
			Help:    "Model decision round-trip latency.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		AICost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holdem_ai_cost_usd_total",
			Help: "Accumulated model spend in USD.",
		}),
	}
	reg.MustRegister(
		m.GamesCreated, m.GamesCompleted, m.GamesCancelled, m.HandsPlayed,
		m.Actions, m.Timeouts, m.InvalidActions, m.StaleCallbacks,
		m.DecisionLatency, m.AICost,
	)
	return m
}

// NopMetrics builds unregistered collectors for tests and tools.
func NopMetrics() *Metrics {
	m := NewMetrics(prometheus.NewRegistry())
	return m
}
