package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"liquidationMap/config"
	"liquidationMap/internal/domain"
	"liquidationMap/internal/heatmap"
	"liquidationMap/internal/metrics"
	"liquidationMap/internal/ports"
)

const (
	evaluationInterval = time.Minute
	// Predictions evaluated this close to their target use the live mark price
	// instead of a historical candle.
	markPriceTolerance = 5 * time.Minute
	outcomeInterval    = "1m"
	// Skew beyond this shifts entry times against candle boundaries noticeably.
	maxClockSkew = 2 * time.Second
)

// Heatmap is the published view of one render. It is never mutated after publication.
type Heatmap struct {
	Symbol       string           `json:"symbol"`
	LookbackDays int              `json:"lookback_days"`
	Interval     string           `json:"interval"`
	Generation   uint64           `json:"generation"`
	GeneratedAt  time.Time        `json:"generated_at"`
	MapTimestamp time.Time        `json:"map_timestamp"`
	CurrentPrice *float64         `json:"current_price"`
	Direction    domain.Direction `json:"direction"`
	heatmap.Result
}

// HeatmapService keeps the liquidation heatmap for one symbol up to date.
type HeatmapService struct {
	cfg         *config.Config
	logger      ports.Logger
	candles     ports.CandleSource
	liqMap      ports.LiquidationMapSource
	predictions ports.PredictionRepository
	snapshots   ports.SnapshotRepository
	metrics     *metrics.Metrics
	opts        heatmap.Options
	now         func() time.Time

	// State fields
	mu          sync.RWMutex // Protects access to state fields below
	issued      uint64       // Last refresh generation handed out
	applied     uint64       // Refresh generation behind the published heatmap
	candleCache []domain.Candle
	eventCache  []domain.LiquidationEvent
	lastMap     *domain.LiquidationMap
	current     *Heatmap
}

// NewHeatmapService creates a new application service instance.
func NewHeatmapService(
	cfg *config.Config,
	logger ports.Logger,
	candles ports.CandleSource,
	liqMap ports.LiquidationMapSource,
	predictions ports.PredictionRepository,
	snapshots ports.SnapshotRepository,
	m *metrics.Metrics,
) (*HeatmapService, error) {
	if cfg == nil || logger == nil || candles == nil || liqMap == nil || predictions == nil || snapshots == nil || m == nil {
		return nil, fmt.Errorf("missing required dependencies for HeatmapService")
	}
	opts := cfg.HeatmapOptions()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("heatmap options: %w", err)
	}
	if cfg.PredictionHorizon <= 0 || cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("refresh interval and prediction horizon must be positive: %w", ports.ErrConfigurationError)
	}

	return &HeatmapService{
		cfg:         cfg,
		logger:      logger,
		candles:     candles,
		liqMap:      liqMap,
		predictions: predictions,
		snapshots:   snapshots,
		metrics:     m,
		opts:        opts,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start runs the refresh and evaluation loops until ctx is cancelled or a
// shutdown signal arrives.
func (s *HeatmapService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Heatmap Service...", map[string]interface{}{
		"symbol":          s.cfg.Symbol,
		"lookbackDays":    s.cfg.Lookback().Days,
		"interval":        s.cfg.Lookback().Interval,
		"refreshInterval": s.cfg.RefreshInterval.String(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.candles.Ping(ctx); err != nil {
		s.logger.Warn(ctx, "Candle source ping failed, continuing", map[string]interface{}{"error": err.Error()})
	}
	if _, err := s.CheckClockSkew(ctx); err != nil {
		s.logger.Warn(ctx, "Clock skew check failed, continuing", map[string]interface{}{"error": err.Error()})
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Error(ctx, err, "Initial refresh failed, will retry on next tick")
	}

	var wsDoneCh, wsStopCh chan struct{}
	if s.cfg.StreamCandles {
		interval := s.cfg.Lookback().Interval
		var err error
		wsDoneCh, wsStopCh, err = s.candles.StreamCandles(ctx, s.cfg.Symbol, interval, s.OnCandle, s.handleStreamError)
		if err != nil {
			s.logger.Error(ctx, err, "Failed to start candle stream, continuing with periodic refresh only")
		} else {
			s.logger.Info(ctx, "Candle stream started", map[string]interface{}{"symbol": s.cfg.Symbol, "interval": interval})
		}
	}

	refreshTicker := time.NewTicker(s.cfg.RefreshInterval)
	defer refreshTicker.Stop()
	evalTicker := time.NewTicker(evaluationInterval)
	defer evalTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Main context cancelled, initiating shutdown...")
			s.stopStream(wsDoneCh, wsStopCh)
			s.logger.Info(ctx, "Heatmap Service stopped.")
			return nil
		case <-refreshTicker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error(ctx, err, "Scheduled refresh failed")
			}
		case <-evalTicker.C:
			if _, err := s.EvaluatePredictions(ctx); err != nil {
				s.logger.Error(ctx, err, "Prediction evaluation failed")
			}
		case <-wsDoneCh:
			s.logger.Warn(ctx, "Candle stream stopped, continuing with periodic refresh only")
			wsDoneCh, wsStopCh = nil, nil
		}
	}
}

// CheckClockSkew compares the local clock with the exchange server time and
// returns server minus local. Skew above maxClockSkew is logged as a warning.
func (s *HeatmapService) CheckClockSkew(ctx context.Context) (time.Duration, error) {
	local := s.now()
	server, err := s.candles.GetServerTime(ctx)
	if err != nil {
		return 0, fmt.Errorf("get server time: %w", err)
	}
	skew := server.Sub(local)
	fields := map[string]interface{}{"skew": skew.String()}
	if skew > maxClockSkew || skew < -maxClockSkew {
		s.logger.Warn(ctx, "Local clock drifts from exchange time", fields)
	} else {
		s.logger.Debug(ctx, "Clock skew within tolerance", fields)
	}
	return skew, nil
}

func (s *HeatmapService) stopStream(doneCh, stopCh chan struct{}) {
	if stopCh == nil {
		return
	}
	select {
	case stopCh <- struct{}{}:
	default:
	}
	select {
	case <-doneCh:
	case <-time.After(5 * time.Second):
		s.logger.Warn(context.Background(), "Timeout waiting for candle stream to shut down")
	}
}

func (s *HeatmapService) handleStreamError(err error) {
	s.logger.Warn(context.Background(), "Candle stream error reported", map[string]interface{}{"error": err.Error()})
}

// Refresh fetches a fresh liquidation map and candle window, renders it and
// publishes the result. A refresh that finishes after a newer one is discarded.
func (s *HeatmapService) Refresh(ctx context.Context) error {
	gen := s.nextGeneration()
	started := s.now()

	m, err := s.liqMap.FetchLiquidationMap(ctx)
	if err != nil {
		s.metrics.RecordRefresh(metrics.StatusError, started)
		return fmt.Errorf("fetch liquidation map: %w", err)
	}

	lb := s.cfg.Lookback()
	end := s.now()
	start := end.Add(-time.Duration(lb.Days) * 24 * time.Hour)
	candles, err := s.candles.GetCandlesRange(ctx, s.cfg.Symbol, lb.Interval, start, end)
	if err != nil {
		s.metrics.RecordRefresh(metrics.StatusError, started)
		return fmt.Errorf("fetch candles: %w", err)
	}

	events := m.Events()
	view := s.render(gen, candles, events, m)

	s.mu.Lock()
	if gen <= s.applied {
		s.mu.Unlock()
		s.metrics.RecordRefresh(metrics.StatusStale, started)
		s.logger.Info(ctx, "Discarding stale refresh", map[string]interface{}{"generation": gen})
		return nil
	}
	s.applied = gen
	s.candleCache = candles
	s.eventCache = events
	s.lastMap = m
	s.current = view
	s.mu.Unlock()

	status := metrics.StatusSuccess
	if !view.Renderable {
		status = metrics.StatusEmpty
	}
	s.metrics.RecordRefresh(status, s.now())
	s.logger.Info(ctx, "Heatmap refreshed", map[string]interface{}{
		"generation": gen,
		"candles":    len(candles),
		"events":     len(events),
		"cells":      len(view.Cells),
		"renderable": view.Renderable,
		"reason":     view.Reason,
	})

	s.saveSnapshot(ctx, view)
	s.recordPrediction(ctx, m, candles)
	return nil
}

// OnCandle folds a live candle into the cached window and re-renders from the
// cached events. Updates for the open candle replace it; a new candle rolls the
// window forward.
func (s *HeatmapService) OnCandle(c domain.Candle) {
	s.mu.Lock()
	if len(s.candleCache) == 0 || s.lastMap == nil {
		s.mu.Unlock()
		return
	}
	last := s.candleCache[len(s.candleCache)-1]
	var candles []domain.Candle
	switch {
	case c.Time == last.Time:
		candles = append([]domain.Candle(nil), s.candleCache...)
		candles[len(candles)-1] = c
	case c.Time > last.Time:
		candles = append(append([]domain.Candle(nil), s.candleCache[1:]...), c)
	default:
		s.mu.Unlock()
		return
	}
	gen := s.applied
	events := s.eventCache
	m := s.lastMap
	s.mu.Unlock()

	view := s.render(gen, candles, events, m)

	s.mu.Lock()
	defer s.mu.Unlock()
	// A refresh published in the meantime carries newer data.
	if s.applied != gen {
		return
	}
	s.candleCache = candles
	s.current = view
}

// Current returns the published heatmap, if any. Callers must not mutate it.
func (s *HeatmapService) Current() (*Heatmap, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

// CrossSection returns the non-cleared bins of the last map and the reference price.
func (s *HeatmapService) CrossSection() ([]domain.CrossSectionPoint, *float64, bool) {
	s.mu.RLock()
	m := s.lastMap
	s.mu.RUnlock()
	if m == nil {
		return nil, nil, false
	}
	price := m.Summary.CurrentPrice()
	return m.CrossSection(price), price, true
}

// UpstreamStatus passes through the liquidation map API status.
func (s *HeatmapService) UpstreamStatus(ctx context.Context) string {
	return s.liqMap.Status(ctx)
}

// EvaluatePredictions scores pending predictions whose horizon has passed and
// returns how many were updated.
func (s *HeatmapService) EvaluatePredictions(ctx context.Context) (int, error) {
	now := s.now()
	pending, err := s.predictions.FindPending(ctx, s.cfg.Symbol, now.Add(-s.cfg.PredictionHorizon))
	if err != nil {
		return 0, fmt.Errorf("find pending predictions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var markPrice *float64
	scored := 0
	var errs []error
	for _, p := range pending {
		target := p.Timestamp.Add(s.cfg.PredictionHorizon)
		var price float64
		if now.Sub(target) <= markPriceTolerance {
			if markPrice == nil {
				mp, err := s.candles.GetMarkPrice(ctx, s.cfg.Symbol)
				if err != nil {
					return scored, fmt.Errorf("get mark price: %w", err)
				}
				markPrice = &mp
			}
			price = *markPrice
		} else {
			price, err = s.priceAt(ctx, target)
			if err != nil {
				errs = append(errs, fmt.Errorf("prediction %d: %w", p.ID, err))
				continue
			}
		}

		p.Resolve(price)
		if err := s.predictions.UpdateOutcome(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("prediction %d: %w", p.ID, err))
			continue
		}
		s.metrics.RecordPrediction(p.DirectionCorrect)
		scored++

		fields := map[string]interface{}{"predictionID": p.ID, "bias": p.Bias, "priceLater": price}
		if p.PriceChangePct != nil {
			fields["changePct"] = *p.PriceChangePct
		}
		if p.DirectionCorrect != nil {
			fields["correct"] = *p.DirectionCorrect
		}
		s.logger.Info(ctx, "Prediction evaluated", fields)
	}
	return scored, errors.Join(errs...)
}

// priceAt returns the close of the one-minute candle opening at or after t.
func (s *HeatmapService) priceAt(ctx context.Context, t time.Time) (float64, error) {
	candles, err := s.candles.GetCandlesRange(ctx, s.cfg.Symbol, outcomeInterval, t, t.Add(2*time.Minute))
	if err != nil {
		return 0, err
	}
	if len(candles) == 0 {
		return 0, fmt.Errorf("no candle at %s: %w", t.Format(time.RFC3339), ports.ErrNoData)
	}
	return candles[0].Close, nil
}

func (s *HeatmapService) nextGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// render runs the engine outside the lock and wraps the result.
func (s *HeatmapService) render(gen uint64, candles []domain.Candle, events []domain.LiquidationEvent, m *domain.LiquidationMap) *Heatmap {
	began := time.Now()
	res := heatmap.Build(candles, events, s.opts)
	s.metrics.RecordRender(time.Since(began), len(res.Cells), res.TimeBins, map[string]int{
		"out_of_range":  res.Stats.OutOfRange,
		"after_window":  res.Stats.AfterWindow,
		"zero_lifetime": res.Stats.ZeroLifetime,
		"zero_weight":   res.Stats.ZeroWeight,
	})

	lb := s.cfg.Lookback()
	return &Heatmap{
		Symbol:       s.cfg.Symbol,
		LookbackDays: lb.Days,
		Interval:     lb.Interval,
		Generation:   gen,
		GeneratedAt:  s.now(),
		MapTimestamp: m.FetchedAt(),
		CurrentPrice: m.Summary.CurrentPrice(),
		Direction:    m.Direction,
		Result:       res,
	}
}

func (s *HeatmapService) saveSnapshot(ctx context.Context, h *Heatmap) {
	snap := &domain.HeatmapSnapshot{
		Symbol:       h.Symbol,
		LookbackDays: h.LookbackDays,
		Interval:     h.Interval,
		CreatedAt:    h.GeneratedAt,
		PriceMin:     h.PriceRange.Min,
		PriceMax:     h.PriceRange.Max,
		TimeBins:     h.TimeBins,
		CellCount:    len(h.Cells),
		EventCount:   h.Stats.Rasterized,
		Renderable:   h.Renderable,
		Reason:       h.Reason,
	}
	if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
		s.logger.Error(ctx, err, "Failed to save heatmap snapshot")
	}
}

// recordPrediction stores the map's directional call. The reference price is the
// map's current price, falling back to the last candle close.
func (s *HeatmapService) recordPrediction(ctx context.Context, m *domain.LiquidationMap, candles []domain.Candle) {
	var price float64
	if p := m.Summary.CurrentPrice(); p != nil {
		price = *p
	} else if len(candles) > 0 {
		price = candles[len(candles)-1].Close
	}
	if price <= 0 {
		s.logger.Warn(ctx, "No reference price, prediction not recorded")
		return
	}

	p := &domain.Prediction{
		Timestamp:         s.now(),
		Symbol:            s.cfg.Symbol,
		Timeframe:         formatHorizon(s.cfg.PredictionHorizon),
		Bias:              m.Direction.Bias,
		UpwardMag:         m.Direction.UpwardMag,
		DownwardMag:       m.Direction.DownwardMag,
		PriceAtPrediction: price,
	}
	if _, err := s.predictions.CreatePrediction(ctx, p); err != nil {
		s.logger.Error(ctx, err, "Failed to record prediction")
	}
}

func formatHorizon(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
}
