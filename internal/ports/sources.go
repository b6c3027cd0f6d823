package ports

import (
	"context"
	"time"

	"liquidationMap/internal/domain"
)

// CandleSource provides the historical and live price series for the heatmap time axis.
type CandleSource interface {
	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error

	// GetServerTime retrieves the current server time from the exchange.
	GetServerTime(ctx context.Context) (time.Time, error)

	// GetMarkPrice retrieves the current mark price for a given symbol.
	GetMarkPrice(ctx context.Context, symbol string) (float64, error)

	// GetCandlesRange retrieves all candles for symbol/interval between start and end,
	// ascending by time.
	GetCandlesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.Candle, error)

	// StreamCandles starts a WebSocket stream of candle updates.
	// Returns channels to control the stream (doneCh, stopCh) or an error if connection fails.
	StreamCandles(ctx context.Context, symbol, interval string, handler func(candle domain.Candle), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error)
}

// LiquidationMapSource fetches the validated liquidation map.
type LiquidationMapSource interface {
	// FetchLiquidationMap retrieves and validates the current liquidation map.
	FetchLiquidationMap(ctx context.Context) (*domain.LiquidationMap, error)

	// Status returns the upstream status string, "error" when unreachable.
	Status(ctx context.Context) string
}
