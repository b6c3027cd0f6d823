package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"liquidationMap/internal/adapters/logger"
	"liquidationMap/internal/domain"
	"liquidationMap/internal/heatmap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"LIQMAP_API_BASE_URL", "LIQMAP_API_TIMEOUT_SECONDS", "LIQMAP_API_RETRIES",
	"BINANCE_API_KEY", "BINANCE_API_SECRET", "IS_TESTNET",
	"SYMBOL", "LOOKBACK_DAYS", "HEATMAP_PRICE_BINS", "HEATMAP_EXCLUDE_STATUSES",
	"REFRESH_INTERVAL_MINUTES", "PREDICTION_HORIZON_MINUTES", "STREAM_CANDLES",
	"DB_PATH", "LOG_LEVEL", "LOG_FILE", "RECONNECT_DELAY_SECONDS", "MAX_RECONNECT_ATTEMPTS",
	"API_PORT", "API_ENV", "CORS_ALLOWED_ORIGINS",
}

// clearEnv blanks every config key for the duration of the test. An empty
// value counts as unset, so the defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIQMAP_API_BASE_URL", "http://localhost:8000/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.LiqMapBaseURL)
	assert.Equal(t, 30*time.Second, cfg.LiqMapTimeout)
	assert.Equal(t, 3, cfg.LiqMapMaxAttempts)
	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, 1, cfg.LookbackDays)
	assert.Equal(t, heatmap.DefaultPriceBins, cfg.PriceBins)
	assert.Empty(t, cfg.ExcludeStatuses)
	assert.Equal(t, time.Hour, cfg.RefreshInterval)
	assert.Equal(t, time.Hour, cfg.PredictionHorizon)
	assert.True(t, cfg.StreamCandles)
	assert.False(t, cfg.IsTestnet)
	assert.Equal(t, "./data/liquidation_map.db", cfg.DBPath)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 10, cfg.MaxReconnectAttempts)
	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, "development", cfg.APIEnv)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, domain.Lookback{Days: 1, Interval: "30m"}, cfg.Lookback())
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIQMAP_API_BASE_URL", "https://liq.example.com/api")
	t.Setenv("SYMBOL", "ethusdt")
	t.Setenv("LOOKBACK_DAYS", "10")
	t.Setenv("HEATMAP_PRICE_BINS", "200")
	t.Setenv("HEATMAP_EXCLUDE_STATUSES", "cleared, partial")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("STREAM_CANDLES", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", cfg.Symbol)
	assert.Equal(t, []domain.LiquidationStatus{domain.StatusCleared, domain.StatusPartial}, cfg.ExcludeStatuses)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.StreamCandles)
	assert.Equal(t, domain.Lookback{Days: 14, Interval: "4h"}, cfg.Lookback())

	opts := cfg.HeatmapOptions()
	assert.Equal(t, 200, opts.PriceBins)
	assert.Equal(t, cfg.ExcludeStatuses, opts.ExcludeStatuses)
	assert.NoError(t, opts.Validate())
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{"missing base url", map[string]string{}, "LIQMAP_API_BASE_URL must be set"},
		{"relative base url", map[string]string{"LIQMAP_API_BASE_URL": "liq/api"}, "not an absolute URL"},
		{"bad timeout", map[string]string{"LIQMAP_API_BASE_URL": "http://x", "LIQMAP_API_TIMEOUT_SECONDS": "abc"}, "invalid LIQMAP_API_TIMEOUT_SECONDS"},
		{"zero bins", map[string]string{"LIQMAP_API_BASE_URL": "http://x", "HEATMAP_PRICE_BINS": "0"}, "HEATMAP_PRICE_BINS must be positive"},
		{"bad status", map[string]string{"LIQMAP_API_BASE_URL": "http://x", "HEATMAP_EXCLUDE_STATUSES": "GONE"}, "unknown status 'GONE'"},
		{"half keys", map[string]string{"LIQMAP_API_BASE_URL": "http://x", "BINANCE_API_KEY": "k"}, "must be set together"},
		{"bad port", map[string]string{"LIQMAP_API_BASE_URL": "http://x", "API_PORT": "70000"}, "API_PORT must be between"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadRenderJob(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "job.yaml", `
name: btc-1d
candles_csv: data/candles.csv
liquidation_map_json: /abs/map.json
output_csv: out/cells.csv
options:
  price_bins: 60
  kernel: [0.25, 0.5, 0.25]
  min_intensity: 0
  exclude_statuses: [cleared]
`)

	job, err := LoadRenderJob(path)
	require.NoError(t, err)
	assert.Equal(t, "btc-1d", job.Name)
	assert.Equal(t, filepath.Join(dir, "data/candles.csv"), job.CandlesCSV)
	assert.Equal(t, "/abs/map.json", job.LiquidationMapJSON)
	assert.Equal(t, filepath.Join(dir, "out/cells.csv"), job.OutputCSV)

	opts, err := job.HeatmapOptions()
	require.NoError(t, err)
	assert.Equal(t, 60, opts.PriceBins)
	assert.Equal(t, []float64{0.25, 0.5, 0.25}, opts.Kernel)
	assert.Equal(t, 1, opts.KernelRadius())
	assert.Equal(t, 0.0, opts.MinIntensity)
	assert.Equal(t, heatmap.DefaultRampLength, opts.RampLength)
	assert.Equal(t, []domain.LiquidationStatus{domain.StatusCleared}, opts.ExcludeStatuses)
}

func TestLoadRenderJob_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"missing inputs", "name: x\n", "candles_csv is required"},
		{"even kernel", "candles_csv: a\nliquidation_map_json: b\noptions:\n  kernel: [0.5, 0.5]\n", "kernel length must be odd"},
		{"bad status", "candles_csv: a\nliquidation_map_json: b\noptions:\n  exclude_statuses: [nope]\n", "exclude_statuses"},
		{"bad yaml", "candles_csv: [\n", "parsing render job"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, dir, filepath.Base(t.Name())+string(rune('a'+i))+".yaml", tt.content)
			_, err := LoadRenderJob(p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	_, err := LoadRenderJob(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
