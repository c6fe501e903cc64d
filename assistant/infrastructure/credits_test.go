package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func creditServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBalanceAcceptsStringAndNumber(t *testing.T) {
	for _, body := range []string{`{"balance":"12.5"}`, `{"balance":12.5}`} {
		srv := creditServer(t, http.StatusOK, body)
		c := NewCreditChecker(srv.URL, "key", time.Second, nil)

		balance, err := c.Balance(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 12.5, balance)
		assert.True(t, c.Available(context.Background()))
		require.NoError(t, c.Close())
	}
}

func TestAvailableClosesAtMinimum(t *testing.T) {
	srv := creditServer(t, http.StatusOK, `{"balance":"0.01"}`)
	c := NewCreditChecker(srv.URL, "key", time.Second, nil)
	assert.False(t, c.Available(context.Background()))
}

func TestAvailableFailsOpen(t *testing.T) {
	srv := creditServer(t, http.StatusInternalServerError, `{"error":"boom"}`)
	c := NewCreditChecker(srv.URL, "key", time.Second, nil)

	_, err := c.Balance(context.Background())
	assert.Error(t, err)
	assert.True(t, c.Available(context.Background()))

	assert.True(t, NewCreditChecker("", "", 0, nil).Available(context.Background()))
}

func TestParseBalance(t *testing.T) {
	_, err := parseBalance(json.RawMessage(`null`))
	assert.Error(t, err)
	_, err = parseBalance(json.RawMessage(`"abc"`))
	assert.Error(t, err)
	v, err := parseBalance(json.RawMessage(` "3" `))
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}
