package model

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelarena/holdem/internal/game"
)

func TestHTTPDeciderParsesReply(t *testing.T) {
	t.Parallel()

	var gotReq completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(completionResponse{
			Text:   "The flush draw is live.\nRAISE $120",
			Tokens: 512,
			Cost:   0.0031,
		})
	}))
	defer srv.Close()

	d := NewHTTPDecider(srv.URL, 5*time.Second, zerolog.Nop())
	dec, err := d.Decide(context.Background(), Turn{
		GameID:  "g1",
		ModelID: "alpha",
		Prompt:  "prompt body",
	})
	require.NoError(t, err)

	assert.Equal(t, "alpha", gotReq.Model)
	assert.Equal(t, "prompt body", gotReq.Prompt)
	assert.Equal(t, game.Raise, dec.Action)
	assert.Equal(t, 120, dec.Amount)
	assert.False(t, dec.Invalid)
	assert.Equal(t, int64(512), dec.Tokens)
	assert.InDelta(t, 0.0031, dec.Cost, 1e-9)
	assert.Contains(t, dec.Reasoning, "flush draw")
	assert.Greater(t, dec.Latency, time.Duration(0))
}

func TestHTTPDeciderUnparseableReplyIsInvalid(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionResponse{Text: "hmm, tough spot"})
	}))
	defer srv.Close()

	d := NewHTTPDecider(srv.URL, 5*time.Second, zerolog.Nop())
	dec, err := d.Decide(context.Background(), Turn{ModelID: "alpha"})
	require.NoError(t, err)
	assert.True(t, dec.Invalid)
}

func TestHTTPDeciderTransportErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewHTTPDecider(srv.URL, 5*time.Second, zerolog.Nop())
	_, err := d.Decide(context.Background(), Turn{ModelID: "alpha"})
	assert.Error(t, err)

	srv.Close()
	_, err = d.Decide(context.Background(), Turn{ModelID: "alpha"})
	assert.Error(t, err, "connection refused must surface as an error")
}

func TestHTTPDeciderHonorsContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The request body must be consumed before blocking, or net/http
		// never notices the client hanging up and Close stalls.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	d := NewHTTPDecider(srv.URL, time.Minute, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Decide(ctx, Turn{ModelID: "alpha"})
	assert.Error(t, err)
}
