// Package model is the decision RPC adapter: it turns engine state into
// a textual prompt, calls a remote model endpoint, and parses the reply
// into a betting action. It is the only component that performs network
// I/O and it never mutates game state.
package model

import (
	"context"
	"time"

	"github.com/modelarena/holdem/internal/game"
)

// Turn is the engine-computed view of one decision request. Legal is
// precomputed inside the scheduling transaction, so the adapter never
// reads the live record.
type Turn struct {
	GameID       string
	ModelID      string
	SeatIndex    int
	ExpectedTurn int64
	Prompt       string
	Legal        game.ValidActions
}

// Decision is a parsed model reply plus its accounting. Invalid marks
// a reply that did not contain a recognizable action; the engine
// coerces it to a fold and counts it.
type Decision struct {
	Action    game.Action
	Amount    int
	Reasoning string
	Invalid   bool
	Tokens    int64
	Cost      float64
	Latency   time.Duration
}

// Decider obtains a betting decision for one turn. An error means the
// decision never arrived (network failure, malformed transport); the
// engine relies on the armed timeout in that case.
type Decider interface {
	Decide(ctx context.Context, turn Turn) (Decision, error)
}
