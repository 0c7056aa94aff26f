// Package credits talks to the external credit provider. The scheduler
// gate reads the fetched account; the provider only reports balance and
// usage, the limit is fixed by agreement.
package credits

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
)

// DefaultLimit is the agreed credit ceiling in USD.
const DefaultLimit = 20.0

// Account is the provider state mapped into engine terms.
type Account struct {
	Balance      float64
	TotalUsed    float64
	Limit        float64
	LastSyncedAt time.Time
}

// Fraction is the remaining share of the limit, clamped to [0, 1].
func (a Account) Fraction() float64 {
	if a.Limit <= 0 {
		return 0
	}
	f := a.Balance / a.Limit
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Client fetches the account over HTTP.
type Client struct {
	url    string
	client *http.Client
	clock  quartz.Clock
	log    zerolog.Logger
}

// New builds a client for the provider URL.
func New(url string, timeout time.Duration, clock quartz.Clock, log zerolog.Logger) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
		clock:  clock,
		log:    log.With().Str("component", "credits").Logger(),
	}
}

type providerResponse struct {
	Balance   float64 `json:"balance"`
	TotalUsed float64 `json:"total_used"`
}

// Fetch GETs the provider and maps its response. The sync timestamp is
// taken at fetch time; the limit is always DefaultLimit.
func (c *Client) Fetch(ctx context.Context) (Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Account{}, fmt.Errorf("building credits request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Account{}, fmt.Errorf("fetching credits: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Account{}, fmt.Errorf("credits provider returned %s", resp.Status)
	}
	var pr providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return Account{}, fmt.Errorf("decoding credits response: %w", err)
	}

	acct := Account{
		Balance:      pr.Balance,
		TotalUsed:    pr.TotalUsed,
		Limit:        DefaultLimit,
		LastSyncedAt: c.clock.Now(),
	}
	c.log.Debug().Float64("balance", acct.Balance).Float64("used", acct.TotalUsed).
		Msg("credits synced")
	return acct, nil
}
