package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/modelarena/holdem/cmd/holdemd/shared"
)

// ForceGameCmd posts to a running server's force-create endpoint. Forced
// games are dev games: they bypass the scheduler gates and stay out of
// the standings.
type ForceGameCmd struct {
	Addr  string `kong:"default='localhost:8090',help='Address of the running server'"`
	Debug bool   `kong:"help='Enable debug logging'"`
}

func (c *ForceGameCmd) Run() error {
	level := "info"
	if c.Debug {
		level = "debug"
	}
	logger := shared.SetupLogger(level, false)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post("http://"+c.Addr+"/api/games/force", "application/json", nil)
	if err != nil {
		return fmt.Errorf("reaching server at %s: %w", c.Addr, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var res struct {
			GameID string `json:"GameID"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		logger.Info().Str("game_id", res.GameID).Msg("Dev game started")
		return nil
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited, try again later")
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server refused: %s (%s)", resp.Status, string(body))
	}
}
