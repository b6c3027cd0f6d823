package liqapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"liquidationMap/internal/domain"
	"liquidationMap/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...map[string]interface{})        {}
func (nopLogger) Info(context.Context, string, ...map[string]interface{})         {}
func (nopLogger) Warn(context.Context, string, ...map[string]interface{})         {}
func (nopLogger) Error(context.Context, error, string, ...map[string]interface{}) {}

const validMap = `{
  "summary": {"current_price": 64000.5, "open_interest": 1.5e9},
  "direction": {"bias": "UP", "upward_mag": 12.5, "downward_mag": 4},
  "bins": [
    {"mid_price": 65000, "intensity": 80, "usd": 2500000, "status": "ACTIVE"},
    {"mid_price": 63000, "intensity": 10, "usd": 300000, "status": "CLEARED"}
  ],
  "raw_liquidations": [
    {"price": 65010, "usd": 1000000, "side": "sell", "status": "ACTIVE", "entry_time": 1700000000},
    {"price": 62990, "usd": 50000, "side": "buy", "status": "PARTIAL", "entry_time": null}
  ],
  "timestamp": 1700003600000
}`

func newTestClient(t *testing.T, url string, attempts int) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL:     url + "/",
		MaxAttempts: attempts,
		MinBackoff:  time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
		Logger:      nopLogger{},
	})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{BaseURL: "http://x"})
	assert.Error(t, err)

	_, err = New(Config{Logger: nopLogger{}})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	c, err := New(Config{BaseURL: "http://x//", Logger: nopLogger{}})
	require.NoError(t, err)
	assert.Equal(t, "http://x", c.baseURL)
	assert.Equal(t, 3, c.maxAttempts)
	assert.Equal(t, time.Second, c.minBackoff)
	assert.Equal(t, 10*time.Second, c.maxBackoff)
}

func TestFetchLiquidationMap_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/liquidation-map", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(validMap))
	}))
	defer srv.Close()

	m, err := newTestClient(t, srv.URL, 1).FetchLiquidationMap(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.BiasUp, m.Direction.Bias)
	require.NotNil(t, m.Summary.CurrentPrice())
	assert.Equal(t, 64000.5, *m.Summary.CurrentPrice())
	assert.Len(t, m.Bins, 2)
	require.Len(t, m.RawLiquidations, 2)
	assert.Nil(t, m.RawLiquidations[1].EntryTime)
	assert.Equal(t, int64(1700003600), m.FetchedAt().Unix())

	events := m.Events()
	require.Len(t, events, 2)
	assert.Equal(t, domain.SideLong, events[0].Side)
	assert.Equal(t, domain.SideShort, events[1].Side)
}

func TestFetchLiquidationMap_InvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>`},
		{"bad bias", `{"direction":{"bias":"SIDEWAYS"},"bins":[],"timestamp":1}`},
		{"intensity too high", `{"direction":{"bias":"UP"},"bins":[{"mid_price":1,"intensity":101,"usd":1,"status":"ACTIVE"}]}`},
		{"bad bin status", `{"direction":{"bias":"UP"},"bins":[{"mid_price":1,"intensity":1,"usd":1,"status":"GONE"}]}`},
		{"negative usd", `{"direction":{"bias":"DOWN"},"bins":[{"mid_price":1,"intensity":1,"usd":-1,"status":"ACTIVE"}]}`},
		{"bad raw side", `{"direction":{"bias":"UP"},"raw_liquidations":[{"price":1,"usd":1,"side":"flat","status":"ACTIVE"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL, 3).FetchLiquidationMap(context.Background())
			assert.ErrorIs(t, err, ports.ErrInvalidResponse)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "invalid payloads are not retried")
		})
	}
}

func TestFetchLiquidationMap_StatusCodes(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		want      error
		wantCalls int32
	}{
		{"server error retried", http.StatusBadGateway, ports.ErrUpstreamUnavailable, 3},
		{"rate limit retried", http.StatusTooManyRequests, ports.ErrRateLimited, 3},
		{"client error not retried", http.StatusNotFound, ports.ErrInvalidRequest, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"detail":"nope"}`))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL, 3).FetchLiquidationMap(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "nope", apiErr.Message)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestFetchLiquidationMap_RecoversAfterRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(validMap))
	}))
	defer srv.Close()

	m, err := newTestClient(t, srv.URL, 3).FetchLiquidationMap(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchLiquidationMap_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(Config{
		BaseURL:     srv.URL,
		MaxAttempts: 5,
		MinBackoff:  time.Hour,
		MaxBackoff:  time.Hour,
		Logger:      nopLogger{},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.FetchLiquidationMap(ctx)
	assert.ErrorIs(t, err, ports.ErrContextCanceled)
}

func TestStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	assert.Equal(t, "ok", c.Status(context.Background()))

	down := newTestClient(t, "http://127.0.0.1:1", 1)
	assert.Equal(t, "error", down.Status(context.Background()))
}

func TestStatus_SingleAttempt(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusServiceUnavailable, `{"detail":"down"}`},
		{"rate limited", http.StatusTooManyRequests, ``},
		{"empty status", http.StatusOK, `{}`},
		{"malformed body", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			// Backoff long enough that any retry would be visible in the elapsed time.
			c, err := New(Config{
				BaseURL:     srv.URL,
				MaxAttempts: 3,
				MinBackoff:  time.Second,
				MaxBackoff:  time.Second,
				Logger:      nopLogger{},
			})
			require.NoError(t, err)

			start := time.Now()
			assert.Equal(t, "error", c.Status(context.Background()))
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
			assert.Less(t, time.Since(start), 500*time.Millisecond)
		})
	}
}
