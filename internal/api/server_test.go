package api

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelarena/holdem/internal/engine"
	"github.com/modelarena/holdem/internal/game"
	"github.com/modelarena/holdem/internal/model"
	"github.com/modelarena/holdem/internal/ratelimit"
	"github.com/modelarena/holdem/internal/store"
	"github.com/modelarena/holdem/poker"
)

type foldDecider struct{}

func (foldDecider) Decide(context.Context, model.Turn) (model.Decision, error) {
	return model.Decision{Action: game.Fold, Reasoning: "test fold"}, nil
}

func newTestServer(t *testing.T) (*Server, *store.Store, *Hub) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "holdem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	eng := engine.New(engine.Config{
		Roster: []string{"alpha", "beta"},
		Game: game.Config{
			BuyIn: 1000, SmallBlind: 10, BigBlind: 20, MaxHands: 2,
			TurnTimeout: 90 * time.Second, InterHandWait: time.Millisecond,
		},
	}, st, foldDecider{}, nil, quartz.NewReal(), rand.New(rand.NewSource(3)), nil, zerolog.Nop())
	require.NoError(t, eng.Start(context.Background()))
	t.Cleanup(eng.Stop)

	hub := NewHub(zerolog.Nop())
	eng.SetNotifier(hub)
	srv := NewServer(st, eng, hub, ratelimit.NewGuard(quartz.NewReal()), nil, zerolog.Nop())
	return srv, st, hub
}

func seedGame(t *testing.T, st *store.Store, id string) *game.Game {
	t.Helper()
	now := time.Now().UTC()
	g := game.New(id, game.Config{BuyIn: 1000, SmallBlind: 10, BigBlind: 20, MaxHands: 10},
		[]string{"alpha", "beta"}, now)
	g.Status = game.StatusActive
	g.Seats[0].HoleCards = []poker.Card{
		poker.NewCard(poker.Ace, poker.Spades),
		poker.NewCard(poker.King, poker.Hearts),
	}
	require.NoError(t, st.CreateGame(context.Background(), g, now))
	return g
}

func TestGetGameRedactsHiddenState(t *testing.T) {
	t.Parallel()
	srv, st, _ := newTestServer(t)
	seedGame(t, st, "g1")

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/games/g1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.NotContains(t, raw, "deck")

	var view GameView
	b, _ := json.Marshal(raw)
	require.NoError(t, json.Unmarshal(b, &view))
	require.Len(t, view.Seats, 2)
	assert.Equal(t, 2, view.Seats[0].HoleCardCount)

	// No card strings or rank fields leak through the seat payload.
	var seats []map[string]any
	require.NoError(t, json.Unmarshal(raw["seats"], &seats))
	for _, seat := range seats {
		_, has := seat["holeCards"]
		assert.False(t, has, "hole cards must not be serialized")
	}
}

func TestGetGameNotFound(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/games/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListGames(t *testing.T) {
	t.Parallel()
	srv, st, _ := newTestServer(t)
	seedGame(t, st, "g1")
	seedGame(t, st, "g2")

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/games")
	require.NoError(t, err)
	defer resp.Body.Close()

	var views []GameView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	assert.Len(t, views, 2)
}

func TestPlayerHistory(t *testing.T) {
	t.Parallel()
	srv, st, _ := newTestServer(t)
	ctx := context.Background()

	seedGame(t, st, "g1")
	_, err := st.CompleteGame(ctx, "g1", func(g *game.Game) error {
		g.Status = game.StatusCompleted
		g.Seats[0].Chips = 1500
		g.Seats[1].Chips = 500
		return nil
	}, time.Now().UTC())
	require.NoError(t, err)
	_, err = st.SaveRankSnapshot(ctx, time.Now().UTC())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/players/alpha/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var points []store.RankPoint
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&points))
	require.Len(t, points, 1)
	assert.Equal(t, 1, points[0].Rank)
	assert.Equal(t, int64(500), points[0].Balance)
}

func TestForceGameRateLimited(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	// Per-IP window allows 10 requests a minute; the 11th must bounce.
	var last int
	for i := 0; i < 11; i++ {
		resp, err := http.Post(ts.URL+"/api/games/force", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		last = resp.StatusCode
		if i < 10 {
			require.Equal(t, http.StatusCreated, resp.StatusCode)
		}
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestWatchGameStreamsSnapshots(t *testing.T) {
	t.Parallel()
	srv, st, hub := newTestServer(t)
	g := seedGame(t, st, "g1")

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/games/g1"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The initial snapshot arrives immediately.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var view GameView
	require.NoError(t, json.Unmarshal(payload, &view))
	assert.Equal(t, "g1", view.ID)

	// A broadcast lands on the subscriber.
	g.CurrentHand = 5
	hub.GameUpdated(g)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &view))
	assert.Equal(t, 5, view.CurrentHand)
}
