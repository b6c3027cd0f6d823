// Package liqapi fetches liquidation maps from the upstream HTTP API.
package liqapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"liquidationMap/internal/domain"
	"liquidationMap/internal/ports"

	"github.com/jpillora/backoff"
)

const (
	liquidationMapPath = "/liquidation-map"
	statusPath         = "/status"

	// The status check backs a dashboard indicator and is never retried.
	statusTimeout = 5 * time.Second

	// Upper bound on a response body we are willing to decode.
	maxBodyBytes = 32 << 20
)

// APIError is a non-2xx response from the upstream API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("liquidation map API returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code onto the matching ports error.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ports.ErrRateLimited
	case e.StatusCode >= 500:
		return ports.ErrUpstreamUnavailable
	default:
		return ports.ErrInvalidRequest
	}
}

// Temporary reports whether retrying the request can help.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config holds configuration for the liquidation map client.
type Config struct {
	BaseURL     string
	Timeout     time.Duration // Per-request timeout (default 30s)
	MaxAttempts int           // Total attempts per call (default 3)
	MinBackoff  time.Duration // First retry delay (default 1s)
	MaxBackoff  time.Duration // Retry delay cap (default 10s)
	HTTPClient  *http.Client
	Logger      ports.Logger
}

// Client implements ports.LiquidationMapSource over HTTP.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration
	logger      ports.Logger
}

// New creates a new liquidation map client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for liquidation map client")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("base URL is required: %w", ports.ErrConfigurationError)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:     base,
		httpClient:  httpClient,
		maxAttempts: cfg.MaxAttempts,
		minBackoff:  cfg.MinBackoff,
		maxBackoff:  cfg.MaxBackoff,
		logger:      cfg.Logger,
	}, nil
}

// FetchLiquidationMap retrieves and validates the current liquidation map.
func (c *Client) FetchLiquidationMap(ctx context.Context) (*domain.LiquidationMap, error) {
	op := "FetchLiquidationMap"
	var m domain.LiquidationMap
	if err := c.getJSON(ctx, op, liquidationMapPath, &m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		c.logger.Error(ctx, err, op+": response failed validation")
		return nil, fmt.Errorf("%s: %v: %w", op, err, ports.ErrInvalidResponse)
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{
		"bins":             len(m.Bins),
		"raw_liquidations": len(m.RawLiquidations),
		"bias":             m.Direction.Bias,
	})
	return &m, nil
}

// Status returns the upstream status string, or "error" when the API cannot be reached.
// It makes a single attempt bounded by statusTimeout.
func (c *Client) Status(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	var body struct {
		Status string `json:"status"`
	}
	if err := c.doGet(ctx, statusPath, &body); err != nil {
		c.logger.Debug(ctx, "Status check failed", map[string]interface{}{"error": err.Error()})
		return "error"
	}
	if body.Status == "" {
		return "error"
	}
	return body.Status
}

// getJSON performs GET path with retries and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, op, path string, out interface{}) error {
	b := &backoff.Backoff{
		Min:    c.minBackoff,
		Max:    c.maxBackoff,
		Factor: 2,
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		lastErr = c.doGet(ctx, path, out)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == c.maxAttempts {
			break
		}
		delay := b.Duration()
		c.logger.Warn(ctx, op+": request failed, retrying", map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   lastErr.Error(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w: %w", op, ports.ErrContextCanceled, ctx.Err())
		}
	}
	return fmt.Errorf("%s failed: %w", op, lastErr)
}

func (c *Client) doGet(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %v: %w", err, ports.ErrInvalidRequest)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return fmt.Errorf("%w: %w", ports.ErrContextCanceled, err)
		case errors.Is(err, context.DeadlineExceeded):
			return fmt.Errorf("%w: %w", ports.ErrTimeout, err)
		default:
			return fmt.Errorf("%w: %w", ports.ErrConnectionFailed, err)
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading body: %w: %w", ports.ErrConnectionFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding body: %v: %w", err, ports.ErrInvalidResponse)
	}
	return nil
}

// errorMessage extracts {"detail"} or {"error"} from an error body, falling back to the status line.
func errorMessage(body []byte, status string) string {
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return status
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return errors.Is(err, ports.ErrConnectionFailed) || errors.Is(err, ports.ErrTimeout)
}
