package credits

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchMapsProviderResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"balance": 12.5, "total_used": 7.5}`))
	}))
	defer srv.Close()

	mock := quartz.NewMock(t)
	c := New(srv.URL, 5*time.Second, mock, zerolog.Nop())
	acct, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 12.5, acct.Balance, 1e-9)
	assert.InDelta(t, 7.5, acct.TotalUsed, 1e-9)
	assert.InDelta(t, DefaultLimit, acct.Limit, 1e-9)
	assert.True(t, acct.LastSyncedAt.Equal(mock.Now()))
	assert.InDelta(t, 0.625, acct.Fraction(), 1e-9)
}

func TestFetchErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, quartz.NewMock(t), zerolog.Nop())
	_, err := c.Fetch(context.Background())
	assert.Error(t, err)
}

func TestFractionClamps(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Account{Balance: -3, Limit: 20}.Fraction())
	assert.Equal(t, 1.0, Account{Balance: 25, Limit: 20}.Fraction())
	assert.Equal(t, 0.0, Account{Balance: 10, Limit: 0}.Fraction())
	assert.InDelta(t, 0.075, Account{Balance: 1.5, Limit: 20}.Fraction(), 1e-9)
}
