package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"liquidationMap/internal/domain"
	"liquidationMap/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	// Maximum klines per REST page.
	maxKlinesLimit = 1500
)

// Client implements the ports.CandleSource interface using the go-binance library.
type Client struct {
	futuresClient        *futures.Client
	logger               ports.Logger
	reconnectDelay       time.Duration
	maxReconnectAttempts int
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey               string
	SecretKey            string
	UseTestnet           bool
	Logger               ports.Logger
	ReconnectDelay       time.Duration // Base reconnect delay (e.g., 1 * time.Second)
	MaxReconnectAttempts int           // Max attempts before giving up
}

// New creates a new Binance client adapter. Only public market data
// endpoints are used, so empty keys are allowed.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
	} else {
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance candle source configured", map[string]interface{}{
		"baseURL":       client.BaseURL,
		"authenticated": cfg.APIKey != "",
	})

	reconnectDelay := cfg.ReconnectDelay
	if reconnectDelay <= 0 {
		reconnectDelay = 1 * time.Second
	}
	maxAttempts := cfg.MaxReconnectAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}

	return &Client{
		futuresClient:        client,
		logger:               cfg.Logger,
		reconnectDelay:       reconnectDelay,
		maxReconnectAttempts: maxAttempts,
	}, nil
}

// classifyError maps an error from the Binance SDK or the network onto a ports error.
func classifyError(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case -1003: // Too many requests
			return ports.ErrRateLimited
		case -1021: // Timestamp outside of recvWindow
			return ports.ErrTimeout
		case -1022, -2014, -2015: // Signature or API-key problems
			return ports.ErrAuthenticationFailed
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130:
			return ports.ErrInvalidRequest
		default:
			return ports.ErrExchangeUnavailable
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ports.ErrTimeout
	case errors.Is(err, context.Canceled):
		return ports.ErrContextCanceled
	case strings.Contains(err.Error(), "use of closed network connection"),
		strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "connection reset by peer"):
		return ports.ErrConnectionFailed
	default:
		return ports.ErrUnknown
	}
}

// handleError translates Binance API errors into standardized ports errors and logs them.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message
	}

	mapped := classifyError(err)
	if errors.Is(mapped, ports.ErrContextCanceled) {
		c.logger.Debug(ctx, operation+" canceled", fields)
	} else {
		c.logger.Error(ctx, err, operation+" failed", fields)
	}
	return fmt.Errorf("%s failed: %w: %w", operation, mapped, err)
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetServerTime retrieves the current server time from the exchange.
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	op := "GetServerTime"
	serverTimeMs, err := c.futuresClient.NewServerTimeService().Do(ctx)
	if err != nil {
		return time.Time{}, c.handleError(ctx, err, op)
	}
	return time.UnixMilli(serverTimeMs), nil
}

// GetMarkPrice retrieves the current mark price for a given symbol.
func (c *Client) GetMarkPrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetMarkPrice"
	tickers, err := c.futuresClient.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	if len(tickers) == 0 {
		return 0, fmt.Errorf("%s: no price data for %s: %w", op, symbol, ports.ErrNoData)
	}

	price, err := strconv.ParseFloat(tickers[0].MarkPrice, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: could not parse price '%s': %w", op, tickers[0].MarkPrice, ports.ErrInvalidResponse)
	}
	return price, nil
}

// GetCandlesRange fetches all candles for a symbol/interval between start and end time,
// paging through the klines endpoint.
func (c *Client) GetCandlesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.Candle, error) {
	op := "GetCandlesRange"
	var candles []domain.Candle
	from := start

	for {
		klines, err := c.futuresClient.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(maxKlinesLimit).
			Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		for _, bk := range klines {
			candle, err := translateBinanceKline(bk)
			if err != nil {
				return nil, fmt.Errorf("%s: %v: %w", op, err, ports.ErrInvalidResponse)
			}
			candles = append(candles, candle)
		}
		last := klines[len(klines)-1]
		from = time.UnixMilli(last.CloseTime + 1)
		if from.After(end) || len(klines) < maxKlinesLimit {
			break
		}
	}

	c.logger.Debug(ctx, op+" completed", map[string]interface{}{
		"symbol":   symbol,
		"interval": interval,
		"count":    len(candles),
	})
	return candles, nil
}

// StreamCandles starts a WebSocket kline stream and keeps it connected until ctx
// is cancelled, stopCh is signalled, or reconnect attempts run out.
func (c *Client) StreamCandles(ctx context.Context, symbol, interval string, handler func(candle domain.Candle), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error) {
	op := "StreamCandles"
	if handler == nil {
		return nil, nil, fmt.Errorf("%s: handler is required: %w", op, ports.ErrInvalidRequest)
	}
	wsCtx, cancelWs := context.WithCancel(ctx)
	fields := map[string]interface{}{"symbol": symbol, "interval": interval}

	binanceHandler := func(event *futures.WsKlineEvent) {
		candle, err := translateWsKline(event)
		if err != nil {
			c.logger.Error(wsCtx, err, op+": failed to translate kline event", fields)
			return
		}
		handler(candle)
	}

	binanceErrHandler := func(err error) {
		translated := c.handleError(wsCtx, err, op+" WebSocket")
		if errHandler != nil {
			errHandler(translated)
		}
	}

	b := &backoff.Backoff{
		Min:    c.reconnectDelay,
		Max:    c.reconnectDelay * 32,
		Factor: 2,
		Jitter: true,
	}

	go func() {
		defer cancelWs()

		for {
			if wsCtx.Err() != nil {
				return
			}

			innerDoneCh, innerStopCh, connectErr := futures.WsKlineServe(symbol, interval, binanceHandler, binanceErrHandler)
			if connectErr != nil {
				c.handleError(wsCtx, connectErr, op+" connection attempt")
				if int(b.Attempt())+1 >= c.maxReconnectAttempts {
					c.logger.Error(wsCtx, connectErr, op+": max reconnection attempts exceeded, giving up", map[string]interface{}{
						"symbol":      symbol,
						"interval":    interval,
						"maxAttempts": c.maxReconnectAttempts,
					})
					if errHandler != nil {
						errHandler(fmt.Errorf("%s: %w", op, ports.ErrConnectionFailed))
					}
					return
				}
				delay := b.Duration()
				c.logger.Info(wsCtx, op+": connection failed, retrying", map[string]interface{}{
					"symbol":   symbol,
					"interval": interval,
					"attempt":  int(b.Attempt()),
					"delay":    delay.String(),
				})
				select {
				case <-time.After(delay):
					continue
				case <-wsCtx.Done():
					return
				}
			}

			c.logger.Info(wsCtx, op+": WebSocket connection established", fields)
			b.Reset()

			select {
			case <-innerDoneCh:
				c.logger.Warn(wsCtx, op+": WebSocket connection closed unexpectedly, reconnecting", fields)
			case <-wsCtx.Done():
				select {
				case innerStopCh <- struct{}{}:
				default:
				}
				return
			}
		}
	}()

	doneCh = make(chan struct{})
	stopCh = make(chan struct{})

	go func() {
		select {
		case <-stopCh:
			c.logger.Info(ctx, op+": received stop signal", fields)
			cancelWs()
		case <-wsCtx.Done():
		}
	}()

	go func() {
		<-wsCtx.Done()
		close(doneCh)
	}()

	return doneCh, stopCh, nil
}

// --- Translation Helpers ---

type ohlcv struct {
	open, high, low, close, volume string
}

func parseOHLCV(raw ohlcv) (o, h, l, cl, v float64, err error) {
	if o, err = strconv.ParseFloat(raw.open, 64); err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("parsing open price '%s': %w", raw.open, err)
	}
	if h, err = strconv.ParseFloat(raw.high, 64); err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("parsing high price '%s': %w", raw.high, err)
	}
	if l, err = strconv.ParseFloat(raw.low, 64); err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("parsing low price '%s': %w", raw.low, err)
	}
	if cl, err = strconv.ParseFloat(raw.close, 64); err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("parsing close price '%s': %w", raw.close, err)
	}
	if v, err = strconv.ParseFloat(raw.volume, 64); err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("parsing volume '%s': %w", raw.volume, err)
	}
	return o, h, l, cl, v, nil
}

func translateWsKline(event *futures.WsKlineEvent) (domain.Candle, error) {
	if event == nil {
		return domain.Candle{}, errors.New("received nil kline event")
	}
	k := event.Kline
	o, h, l, cl, v, err := parseOHLCV(ohlcv{k.Open, k.High, k.Low, k.Close, k.Volume})
	if err != nil {
		return domain.Candle{}, err
	}
	return domain.Candle{Time: k.StartTime / 1000, Open: o, High: h, Low: l, Close: cl, Volume: v}, nil
}

func translateBinanceKline(bk *futures.Kline) (domain.Candle, error) {
	if bk == nil {
		return domain.Candle{}, errors.New("received nil historical kline")
	}
	o, h, l, cl, v, err := parseOHLCV(ohlcv{bk.Open, bk.High, bk.Low, bk.Close, bk.Volume})
	if err != nil {
		return domain.Candle{}, err
	}
	return domain.Candle{Time: bk.OpenTime / 1000, Open: o, High: h, Low: l, Close: cl, Volume: v}, nil
}
