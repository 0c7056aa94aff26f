// Package ratelimit provides the advisory limiters guarding
// client-initiated mutations. The autonomous loop is never limited.
package ratelimit

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Sliding is a per-key sliding window counter: an event is allowed when
// fewer than limit events happened within the trailing window.
type Sliding struct {
	mu     sync.Mutex
	clock  quartz.Clock
	window time.Duration
	limit  int
	events map[string][]time.Time
}

// NewSliding builds a sliding-window limiter.
func NewSliding(limit int, window time.Duration, clock quartz.Clock) *Sliding {
	return &Sliding{
		clock:  clock,
		window: window,
		limit:  limit,
		events: make(map[string][]time.Time),
	}
}

// Allow records an event for key and reports whether it fit the window.
func (s *Sliding) Allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	cutoff := now.Add(-s.window)
	kept := s.events[key][:0]
	for _, ts := range s.events[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= s.limit {
		s.events[key] = kept
		return false
	}
	s.events[key] = append(kept, now)
	return true
}

// Fixed is a fixed-window counter: the count resets when the window
// containing the first event ends.
type Fixed struct {
	mu          sync.Mutex
	clock       quartz.Clock
	window      time.Duration
	limit       int
	windowStart time.Time
	count       int
}

// NewFixed builds a fixed-window limiter.
func NewFixed(limit int, window time.Duration, clock quartz.Clock) *Fixed {
	return &Fixed{clock: clock, window: window, limit: limit}
}

// Allow records an event and reports whether it fit the current window.
func (f *Fixed) Allow() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	if f.windowStart.IsZero() || now.Sub(f.windowStart) >= f.window {
		f.windowStart = now
		f.count = 0
	}
	if f.count >= f.limit {
		return false
	}
	f.count++
	return true
}

// Guard bundles the three limits applied to client-initiated
// mutations. The global limit is canonical; the per-IP and per-game
// windows are courtesies.
type Guard struct {
	perIP   *Sliding
	perGame *Sliding
	global  *Fixed
}

// NewGuard builds the standard guard: 10/min per IP, 50/10min per
// game, 500/hour globally.
func NewGuard(clock quartz.Clock) *Guard {
	return &Guard{
		perIP:   NewSliding(10, time.Minute, clock),
		perGame: NewSliding(50, 10*time.Minute, clock),
		global:  NewFixed(500, time.Hour, clock),
	}
}

// Allow reports whether a mutation from ip against gameID may proceed.
// gameID may be empty for mutations not scoped to a game.
func (g *Guard) Allow(ip, gameID string) bool {
	if !g.global.Allow() {
		return false
	}
	if !g.perIP.Allow(ip) {
		return false
	}
	if gameID != "" && !g.perGame.Allow(gameID) {
		return false
	}
	return true
}
