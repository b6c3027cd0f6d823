package domain

import (
	"math"
	"time"
)

// Prediction records a directional call taken from a liquidation map, and its outcome
// once the evaluation horizon has passed.
type Prediction struct {
	ID                int64         // Unique identifier (from DB)
	Timestamp         time.Time     // When the call was made
	Symbol            string        // Trading symbol (e.g., "BTCUSDT")
	Timeframe         string        // Evaluation horizon label (e.g., "1h")
	Bias              DirectionBias // UP, DOWN or UNBIASED
	UpwardMag         float64       // Upward magnitude reported by the map
	DownwardMag       float64       // Downward magnitude reported by the map
	PriceAtPrediction float64       // Reference price at Timestamp

	// Outcome, nil until evaluated
	PriceLater       *float64
	PriceChangePct   *float64
	DirectionCorrect *bool
}

// IsCompleted reports whether the prediction has been evaluated.
func (p *Prediction) IsCompleted() bool {
	return p.PriceLater != nil
}

// Resolve fills the outcome fields from the price observed at the horizon.
// UNBIASED calls get a price change but no correctness verdict.
func (p *Prediction) Resolve(priceLater float64) {
	later := priceLater
	p.PriceLater = &later
	if p.PriceAtPrediction <= 0 || math.IsNaN(priceLater) || math.IsInf(priceLater, 0) {
		return
	}
	change := (priceLater - p.PriceAtPrediction) / p.PriceAtPrediction * 100
	p.PriceChangePct = &change

	var correct bool
	switch p.Bias {
	case BiasUp:
		correct = change > 0
	case BiasDown:
		correct = change < 0
	default:
		return
	}
	p.DirectionCorrect = &correct
}
