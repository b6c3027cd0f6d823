// Package heatmap turns liquidation levels and a candle series into a sparse
// price x time density field.
//
// A render pass runs four stages: the price axis is trimmed to the 5th..95th
// percentile of event prices, a grid with one column per candle is allocated,
// every event is splatted over its live span (entry until the first candle that
// trades through its price), and the accumulated grid is normalized into cells.
// Build is pure: no I/O, no shared state, identical inputs give identical output.
package heatmap

import (
	"liquidationMap/internal/domain"
)

// Result is the render-ready output of one pass. Callers treat it as immutable.
type Result struct {
	Renderable bool        `json:"renderable"`
	Reason     string      `json:"reason,omitempty"`
	PriceRange PriceRange  `json:"price_range"`
	PriceStep  float64     `json:"price_step"`
	PriceBins  int         `json:"price_bins"`
	TimeBins   int         `json:"time_bins"`
	Times      []int64     `json:"times"`
	Closes     []float64   `json:"closes"`
	Cells      []Cell      `json:"cells"`
	Stats      RasterStats `json:"stats"`
}

// Build runs a full render pass. Missing or degenerate input never fails: it
// yields a Result with Renderable false, no cells and the reason set.
func Build(candles []domain.Candle, events []domain.LiquidationEvent, opts Options) Result {
	res := Result{
		PriceBins: opts.PriceBins,
		TimeBins:  len(candles),
		Times:     make([]int64, len(candles)),
		Closes:    make([]float64, len(candles)),
		Cells:     []Cell{},
	}
	for i, c := range candles {
		res.Times[i] = c.Time
		res.Closes[i] = c.Close
	}

	if err := opts.Validate(); err != nil {
		return res.empty(err)
	}
	if len(candles) < 2 {
		return res.empty(ErrInsufficientCandles)
	}

	priceRange, err := TrimPriceRange(events, opts)
	res.PriceRange = priceRange
	if err != nil {
		return res.empty(err)
	}

	grid, err := NewGrid(priceRange, opts.PriceBins, len(candles))
	if err != nil {
		return res.empty(err)
	}
	res.PriceStep = grid.PriceStep

	stats, err := grid.Rasterize(candles, events, opts)
	res.Stats = stats
	if err != nil {
		return res.empty(err)
	}

	cells := grid.Normalize(opts)
	if len(cells) == 0 {
		return res.empty(ErrEmptyGrid)
	}
	res.Cells = cells
	res.Renderable = true
	return res
}

func (r Result) empty(reason error) Result {
	r.Renderable = false
	r.Reason = reason.Error()
	r.Cells = []Cell{}
	return r
}
