package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HTTPDecider calls a completion-style HTTP endpoint: POST a JSON
// request with the model id and prompt, get back the reply text with
// token and cost accounting.
type HTTPDecider struct {
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

// NewHTTPDecider builds a decider for the given endpoint. The client
// timeout is a transport backstop; per-turn deadlines arrive via the
// request context.
func NewHTTPDecider(endpoint string, timeout time.Duration, log zerolog.Logger) *HTTPDecider {
	return &HTTPDecider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      log.With().Str("component", "decider").Logger(),
	}
}

type completionRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type completionResponse struct {
	Text   string  `json:"text"`
	Tokens int64   `json:"tokens"`
	Cost   float64 `json:"cost"`
}

// Decide performs the RPC and parses the reply. Transport failures
// return an error without a decision; an unparseable reply is a valid
// transport result and comes back with Invalid set.
func (d *HTTPDecider) Decide(ctx context.Context, turn Turn) (Decision, error) {
	body, err := json.Marshal(completionRequest{Model: turn.ModelID, Prompt: turn.Prompt})
	if err != nil {
		return Decision{}, fmt.Errorf("encoding decision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return Decision{}, fmt.Errorf("building decision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Debug().Err(err).Str("game_id", turn.GameID).Str("model", turn.ModelID).
			Msg("decision rpc failed")
		return Decision{}, fmt.Errorf("calling model %s: %w", turn.ModelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Decision{}, fmt.Errorf("model %s returned %s", turn.ModelID, resp.Status)
	}

	var cr completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return Decision{}, fmt.Errorf("decoding reply from %s: %w", turn.ModelID, err)
	}

	dec := Decision{
		Reasoning: strings.TrimSpace(cr.Text),
		Tokens:    cr.Tokens,
		Cost:      cr.Cost,
		Latency:   time.Since(start),
	}
	action, amount, ok := ParseReply(cr.Text)
	if !ok {
		dec.Invalid = true
		d.log.Debug().Str("game_id", turn.GameID).Str("model", turn.ModelID).
			Msg("reply contained no action")
		return dec, nil
	}
	dec.Action = action
	dec.Amount = amount
	return dec, nil
}
