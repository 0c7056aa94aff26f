// Package api is the read-mostly HTTP surface: game listings, player
// standings, the spectator websocket feed, Prometheus metrics, and the
// rate-limited force-create endpoint.
package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/modelarena/holdem/internal/engine"
	"github.com/modelarena/holdem/internal/ratelimit"
	"github.com/modelarena/holdem/internal/store"
)

// Server wires the HTTP routes.
type Server struct {
	store    *store.Store
	engine   *engine.Engine
	hub      *Hub
	guard    *ratelimit.Guard
	metrics  http.Handler
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewServer builds the API server. metrics is the promhttp handler for
// the engine's registry; nil disables the endpoint.
func NewServer(st *store.Store, eng *engine.Engine, hub *Hub, guard *ratelimit.Guard, metrics http.Handler, log zerolog.Logger) *Server {
	return &Server{
		store:   st,
		engine:  eng,
		hub:     hub,
		guard:   guard,
		metrics: metrics,
		log:     log.With().Str("component", "api").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Spectator feed is public.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/games", s.listGames)
	mux.HandleFunc("GET /api/games/{id}", s.getGame)
	mux.HandleFunc("GET /api/players", s.listPlayers)
	mux.HandleFunc("GET /api/players/{id}/history", s.playerHistory)
	mux.HandleFunc("GET /api/rankings", s.listRankings)
	mux.HandleFunc("POST /api/games/force", s.forceGame)
	mux.HandleFunc("GET /ws/games/{id}", s.watchGame)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.store.RecentGames(r.Context(), 50)
	if err != nil {
		s.fail(w, err)
		return
	}
	views := make([]*GameView, 0, len(games))
	for _, g := range games {
		views = append(views, NewGameView(g))
	}
	s.ok(w, views)
}

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Game(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, NewGameView(g))
}

func (s *Server) listPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.store.ListPlayers(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, players)
}

func (s *Server) playerHistory(w http.ResponseWriter, r *http.Request) {
	points, err := s.store.RankHistory(r.Context(), r.PathValue("id"), 100)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, points)
}

func (s *Server) listRankings(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.store.RankSnapshots(r.Context(), 20)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, snaps)
}

// forceGame creates a dev game outside the scheduler gates. This is
// the only client-initiated mutation and the only rate-limited route.
func (s *Server) forceGame(w http.ResponseWriter, r *http.Request) {
	if !s.guard.Allow(clientIP(r), "") {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}
	res := s.engine.ForceCreateGame(r.Context())
	if !res.Created {
		s.log.Warn().Str("reason", res.Reason).Msg("force create refused")
		http.Error(w, res.Reason, http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(res)
}

func (s *Server) watchGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	g, err := s.store.Game(r.Context(), gameID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	snapshot, err := json.Marshal(NewGameView(g))
	if err != nil {
		s.fail(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.hub.Subscribe(gameID, conn, snapshot)
}

func (s *Server) ok(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug().Err(err).Msg("writing response failed")
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
