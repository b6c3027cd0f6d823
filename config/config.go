package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"liquidationMap/internal/adapters/logger" // Import the logger package for LogLevel
	"liquidationMap/internal/domain"
	"liquidationMap/internal/heatmap"
)

// Config holds all application configuration.
type Config struct {
	// Liquidation map API
	LiqMapBaseURL     string
	LiqMapTimeout     time.Duration
	LiqMapMaxAttempts int

	// Binance API (public market data only; keys are optional)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Heatmap
	Symbol          string
	LookbackDays    int
	PriceBins       int
	ExcludeStatuses []domain.LiquidationStatus

	// Scheduling
	RefreshInterval   time.Duration
	PredictionHorizon time.Duration
	StreamCandles     bool

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFile  string          // Rotated log file; empty logs to stderr only

	// Connection Settings (Binance WebSocket)
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int

	// HTTP API
	APIPort            int
	APIEnv             string
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Liquidation map API
	cfg.LiqMapBaseURL = strings.TrimRight(getEnv("LIQMAP_API_BASE_URL", ""), "/")
	if cfg.LiqMapBaseURL == "" {
		errs = append(errs, "LIQMAP_API_BASE_URL must be set")
	} else if u, perr := url.Parse(cfg.LiqMapBaseURL); perr != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("LIQMAP_API_BASE_URL '%s' is not an absolute URL", cfg.LiqMapBaseURL))
	}

	timeoutSeconds, err := getEnvAsIntRequired("LIQMAP_API_TIMEOUT_SECONDS", 30)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LIQMAP_API_TIMEOUT_SECONDS: %v", err))
	} else if timeoutSeconds <= 0 {
		errs = append(errs, "LIQMAP_API_TIMEOUT_SECONDS must be positive")
	}
	cfg.LiqMapTimeout = time.Duration(timeoutSeconds) * time.Second

	cfg.LiqMapMaxAttempts, err = getEnvAsIntRequired("LIQMAP_API_RETRIES", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LIQMAP_API_RETRIES: %v", err))
	} else if cfg.LiqMapMaxAttempts <= 0 {
		errs = append(errs, "LIQMAP_API_RETRIES must be positive")
	}

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)
	if (cfg.APIKey == "") != (cfg.SecretKey == "") {
		errs = append(errs, "BINANCE_API_KEY and BINANCE_API_SECRET must be set together")
	}

	// Heatmap
	cfg.Symbol = strings.ToUpper(getEnv("SYMBOL", "BTCUSDT"))

	cfg.LookbackDays, err = getEnvAsIntRequired("LOOKBACK_DAYS", 1)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LOOKBACK_DAYS: %v", err))
	} else if cfg.LookbackDays <= 0 {
		errs = append(errs, "LOOKBACK_DAYS must be positive")
	}

	cfg.PriceBins, err = getEnvAsIntRequired("HEATMAP_PRICE_BINS", heatmap.DefaultPriceBins)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid HEATMAP_PRICE_BINS: %v", err))
	} else if cfg.PriceBins <= 0 {
		errs = append(errs, "HEATMAP_PRICE_BINS must be positive")
	}

	cfg.ExcludeStatuses, err = parseStatuses(getEnv("HEATMAP_EXCLUDE_STATUSES", ""))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid HEATMAP_EXCLUDE_STATUSES: %v", err))
	}

	// Scheduling
	refreshMinutes := getEnvAsInt("REFRESH_INTERVAL_MINUTES", 60)
	if refreshMinutes <= 0 {
		errs = append(errs, "REFRESH_INTERVAL_MINUTES must be positive")
	}
	cfg.RefreshInterval = time.Duration(refreshMinutes) * time.Minute

	horizonMinutes := getEnvAsInt("PREDICTION_HORIZON_MINUTES", 60)
	if horizonMinutes <= 0 {
		errs = append(errs, "PREDICTION_HORIZON_MINUTES must be positive")
	}
	cfg.PredictionHorizon = time.Duration(horizonMinutes) * time.Minute

	cfg.StreamCandles = getEnvAsBool("STREAM_CANDLES", true)

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/liquidation_map.db")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFile = getEnv("LOG_FILE", "")

	// Connection Settings
	reconnectDelaySeconds := getEnvAsInt("RECONNECT_DELAY_SECONDS", 5)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts = getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 10)
	if cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}

	// HTTP API
	cfg.APIPort, err = getEnvAsIntRequired("API_PORT", 8080)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid API_PORT: %v", err))
	} else if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		errs = append(errs, "API_PORT must be between 1 and 65535")
	}
	cfg.APIEnv = getEnv("API_ENV", "development")
	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// HeatmapOptions returns engine options with the configured overrides applied.
func (c *Config) HeatmapOptions() heatmap.Options {
	opts := heatmap.DefaultOptions()
	if c.PriceBins > 0 {
		opts.PriceBins = c.PriceBins
	}
	opts.ExcludeStatuses = append([]domain.LiquidationStatus(nil), c.ExcludeStatuses...)
	return opts
}

// Lookback returns the bucketed lookback window and candle interval.
func (c *Config) Lookback() domain.Lookback {
	return domain.PickLookback(c.LookbackDays)
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseStatuses(s string) ([]domain.LiquidationStatus, error) {
	var out []domain.LiquidationStatus
	for _, part := range splitList(s) {
		st := domain.LiquidationStatus(strings.ToUpper(part))
		if !st.Valid() {
			return nil, fmt.Errorf("unknown status '%s'", part)
		}
		out = append(out, st)
	}
	return out, nil
}
