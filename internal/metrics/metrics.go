// Package metrics provides Prometheus metrics for the heatmap service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusEmpty   = "empty"
	StatusStale   = "stale"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	RefreshTotal          *prometheus.CounterVec
	RenderDuration        prometheus.Histogram
	HeatmapCells          prometheus.Gauge
	HeatmapTimeBins       prometheus.Gauge
	EventsSkipped         *prometheus.CounterVec
	PredictionsScored     *prometheus.CounterVec
	LastSuccessfulRefresh prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "liquidation_map"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RefreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Total number of heatmap refreshes by outcome",
		}, []string{"status"}), // status: success|error|empty|stale
		RenderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Heatmap engine build duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		HeatmapCells: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heatmap_cells",
			Help:      "Number of cells in the current heatmap",
		}),
		HeatmapTimeBins: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heatmap_time_bins",
			Help:      "Number of candles on the current heatmap time axis",
		}),
		EventsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_skipped_total",
			Help:      "Liquidation events not rasterized, by reason",
		}, []string{"reason"}), // reason: out_of_range|after_window|zero_lifetime|zero_weight
		PredictionsScored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_scored_total",
			Help:      "Predictions evaluated at the horizon, by outcome",
		}, []string{"outcome"}), // outcome: correct|wrong|unscored
		LastSuccessfulRefresh: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of the last successful refresh",
		}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRefresh counts one refresh and, on success, stamps the refresh time.
func (m *Metrics) RecordRefresh(status string, at time.Time) {
	m.RefreshTotal.WithLabelValues(status).Inc()
	if status == StatusSuccess {
		m.LastSuccessfulRefresh.Set(float64(at.Unix()))
	}
}

// RecordRender records one engine run.
func (m *Metrics) RecordRender(d time.Duration, cells, timeBins int, skipped map[string]int) {
	m.RenderDuration.Observe(d.Seconds())
	m.HeatmapCells.Set(float64(cells))
	m.HeatmapTimeBins.Set(float64(timeBins))
	for reason, n := range skipped {
		if n > 0 {
			m.EventsSkipped.WithLabelValues(reason).Add(float64(n))
		}
	}
}

// RecordPrediction counts an evaluated prediction. A nil verdict counts as unscored.
func (m *Metrics) RecordPrediction(correct *bool) {
	outcome := "unscored"
	if correct != nil {
		outcome = "wrong"
		if *correct {
			outcome = "correct"
		}
	}
	m.PredictionsScored.WithLabelValues(outcome).Inc()
}
