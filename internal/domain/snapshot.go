package domain

import "time"

// HeatmapSnapshot is the persisted metadata of one heatmap render.
type HeatmapSnapshot struct {
	ID           string    // UUID
	Symbol       string    // Trading symbol
	LookbackDays int       // Bucketed lookback window
	Interval     string    // Candle interval used for the time axis
	CreatedAt    time.Time // Render time
	PriceMin     float64   // Trimmed lower price bound
	PriceMax     float64   // Trimmed upper price bound
	TimeBins     int       // Candle count
	CellCount    int       // Emitted cells
	EventCount   int       // Events rasterized
	Renderable   bool      // False when the engine had nothing to draw
	Reason       string    // Why the render is empty, if it is
}
