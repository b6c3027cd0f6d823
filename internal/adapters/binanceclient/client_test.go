package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"liquidationMap/internal/domain"
	"liquidationMap/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...map[string]interface{})        {}
func (nopLogger) Info(context.Context, string, ...map[string]interface{})         {}
func (nopLogger) Warn(context.Context, string, ...map[string]interface{})         {}
func (nopLogger) Error(context.Context, error, string, ...map[string]interface{}) {}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	c, err := New(Config{Logger: nopLogger{}, UseTestnet: true})
	require.NoError(t, err)
	assert.Equal(t, baseURLTestnet, c.futuresClient.BaseURL)
	assert.Equal(t, 10, c.maxReconnectAttempts)

	c, err = New(Config{Logger: nopLogger{}, MaxReconnectAttempts: 3})
	require.NoError(t, err)
	assert.Equal(t, baseURLProduction, c.futuresClient.BaseURL)
	assert.Equal(t, 3, c.maxReconnectAttempts)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limit", &common.APIError{Code: -1003}, ports.ErrRateLimited},
		{"recv window", &common.APIError{Code: -1021}, ports.ErrTimeout},
		{"bad signature", &common.APIError{Code: -1022}, ports.ErrAuthenticationFailed},
		{"bad symbol", &common.APIError{Code: -1121}, ports.ErrInvalidRequest},
		{"other api", &common.APIError{Code: -9999}, ports.ErrExchangeUnavailable},
		{"wrapped api", fmt.Errorf("outer: %w", &common.APIError{Code: -1003}), ports.ErrRateLimited},
		{"deadline", context.DeadlineExceeded, ports.ErrTimeout},
		{"canceled", context.Canceled, ports.ErrContextCanceled},
		{"refused", errors.New("dial tcp: connection refused"), ports.ErrConnectionFailed},
		{"unknown", errors.New("weird"), ports.ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyError(tt.err), tt.want)
		})
	}
}

func TestHandleError_WrapsBoth(t *testing.T) {
	c, err := New(Config{Logger: nopLogger{}})
	require.NoError(t, err)

	orig := &common.APIError{Code: -1003, Message: "slow down"}
	got := c.handleError(context.Background(), orig, "GetCandlesRange")
	assert.ErrorIs(t, got, ports.ErrRateLimited)
	var apiErr *common.APIError
	assert.True(t, errors.As(got, &apiErr))
	assert.Nil(t, c.handleError(context.Background(), nil, "noop"))
}

func TestTranslateBinanceKline(t *testing.T) {
	got, err := translateBinanceKline(&futures.Kline{
		OpenTime: 1700000000000,
		Open:     "100.5",
		High:     "101",
		Low:      "99.25",
		Close:    "100",
		Volume:   "12.5",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Candle{Time: 1700000000, Open: 100.5, High: 101, Low: 99.25, Close: 100, Volume: 12.5}, got)

	_, err = translateBinanceKline(&futures.Kline{Open: "x", High: "1", Low: "1", Close: "1", Volume: "1"})
	assert.Error(t, err)

	_, err = translateBinanceKline(nil)
	assert.Error(t, err)
}

func TestTranslateWsKline(t *testing.T) {
	event := &futures.WsKlineEvent{
		Kline: futures.WsKline{
			StartTime: 1700003600000,
			Open:      "10",
			High:      "12",
			Low:       "9",
			Close:     "11",
			Volume:    "0",
		},
	}
	got, err := translateWsKline(event)
	require.NoError(t, err)
	assert.Equal(t, int64(1700003600), got.Time)
	assert.Equal(t, 11.0, got.Close)

	event.Kline.Volume = "n/a"
	_, err = translateWsKline(event)
	assert.Error(t, err)

	_, err = translateWsKline(nil)
	assert.Error(t, err)
}

func TestStreamCandles_RequiresHandler(t *testing.T) {
	c, err := New(Config{Logger: nopLogger{}})
	require.NoError(t, err)
	_, _, err = c.StreamCandles(context.Background(), "BTCUSDT", "1m", nil, nil)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}
