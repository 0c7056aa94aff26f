package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/modelarena/holdem/internal/game"
)

const (
	writeWait      = 10 * time.Second
	subscriberBuf  = 16
	maxMessageSize = 512
)

// Hub fans game snapshots out to spectator websockets, one
// subscription set per game. It implements the engine's notifier.
type Hub struct {
	log zerolog.Logger

	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

// NewHub builds an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:  log.With().Str("component", "hub").Logger(),
		subs: make(map[string]map[*subscriber]struct{}),
	}
}

// GameUpdated broadcasts the spectator view of g to its subscribers.
// Slow consumers are dropped rather than back-pressuring the engine.
func (h *Hub) GameUpdated(g *game.Game) {
	h.mu.RLock()
	set := h.subs[g.ID]
	subs := make([]*subscriber, 0, len(set))
	for sub := range set {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(NewGameView(g))
	if err != nil {
		h.log.Error().Err(err).Str("game_id", g.ID).Msg("encoding game view failed")
		return
	}
	for _, sub := range subs {
		if !sub.trySend(payload) {
			h.remove(g.ID, sub)
			sub.close()
		}
	}
}

// Subscribe registers conn for a game's updates and services it until
// the peer goes away. Blocks; call from the connection's handler.
func (h *Hub) Subscribe(gameID string, conn *websocket.Conn, snapshot []byte) {
	sub := newSubscriber(conn)

	h.mu.Lock()
	if h.subs[gameID] == nil {
		h.subs[gameID] = make(map[*subscriber]struct{})
	}
	h.subs[gameID][sub] = struct{}{}
	h.mu.Unlock()

	if snapshot != nil {
		sub.trySend(snapshot)
	}

	go sub.writePump()
	sub.readPump()
	h.remove(gameID, sub)
	sub.close()
}

func (h *Hub) remove(gameID string, sub *subscriber) {
	h.mu.Lock()
	if set := h.subs[gameID]; set != nil {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, gameID)
		}
	}
	h.mu.Unlock()
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newSubscriber(conn *websocket.Conn) *subscriber {
	return &subscriber{conn: conn, send: make(chan []byte, subscriberBuf)}
}

// trySend queues a payload without blocking. False means the buffer is
// full or the subscriber is gone.
func (s *subscriber) trySend(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
	s.conn.Close()
}

func (s *subscriber) writePump() {
	for payload := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; spectators are read-only. Returns
// when the peer closes.
func (s *subscriber) readPump() {
	s.conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
