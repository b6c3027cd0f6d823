package heatmap

import (
	"fmt"
	"math"
	"sort"

	"liquidationMap/internal/domain"
)

// RasterStats counts what happened to each event offered to the rasterizer.
type RasterStats struct {
	Considered   int `json:"considered"`    // Entry time present, status allowed
	Rasterized   int `json:"rasterized"`    // Contributed to the grid
	OutOfRange   int `json:"out_of_range"`  // Price outside the trimmed range
	AfterWindow  int `json:"after_window"`  // Entry time after the last candle
	ZeroLifetime int `json:"zero_lifetime"` // Swept on its first candle
	ZeroWeight   int `json:"zero_weight"`   // Non-positive notional
}

// Lifetime returns the [start, end) candle span during which the level is live.
// start is the first candle at or after entry; end is the first candle from start
// whose range brackets price, or len(candles). ok is false when there is no
// start candle or the span is empty.
func Lifetime(candles []domain.Candle, entry int64, price float64) (start, end int, ok bool) {
	start = -1
	for i, c := range candles {
		if c.Time >= entry {
			start = i
			break
		}
	}
	if start < 0 {
		return -1, -1, false
	}
	end = len(candles)
	for i := start; i < len(candles); i++ {
		if candles[i].Brackets(price) {
			end = i
			break
		}
	}
	return start, end, end > start
}

// EventWeight scales notional against maxNotional and compresses it with a power curve.
func EventWeight(notional, maxNotional, exponent float64) float64 {
	if !(maxNotional > 0) || !(notional > 0) || math.IsInf(maxNotional, 0) {
		return 0
	}
	v := notional / maxNotional
	if v > 1 {
		v = 1
	}
	return math.Pow(v, exponent)
}

// Rasterize splats every eligible event into the grid. candles must hold exactly
// TimeBins entries, ascending by time. Events are visited in a canonical order so
// the floating point sums do not depend on the order of the input slice.
func (g *Grid) Rasterize(candles []domain.Candle, events []domain.LiquidationEvent, opts Options) (RasterStats, error) {
	var stats RasterStats
	if len(candles) != g.TimeBins {
		return stats, fmt.Errorf("%w: grid has %d time bins, got %d candles", ErrInvalidOptions, g.TimeBins, len(candles))
	}

	considered := canonical(eligible(events, opts))
	stats.Considered = len(considered)

	maxNotional := 0.0
	for _, ev := range considered {
		if ev.NotionalUSD > maxNotional && !math.IsInf(ev.NotionalUSD, 0) {
			maxNotional = ev.NotionalUSD
		}
	}

	radius := opts.KernelRadius()
	for _, ev := range considered {
		if !g.Range.Contains(ev.Price) {
			stats.OutOfRange++
			continue
		}
		start, end, ok := Lifetime(candles, *ev.EntryTime, ev.Price)
		if !ok {
			if start < 0 {
				stats.AfterWindow++
			} else {
				stats.ZeroLifetime++
			}
			continue
		}
		w := EventWeight(ev.NotionalUSD, maxNotional, opts.WeightExponent)
		if w <= 0 {
			stats.ZeroWeight++
			continue
		}

		b0 := g.PriceBin(ev.Price)
		for t := start; t < end; t++ {
			base := w
			if t < start+opts.RampLength {
				base *= float64(t-start+1) / float64(opts.RampLength)
			}
			for dy := -radius; dy <= radius; dy++ {
				b := b0 + dy
				if b < 0 || b >= g.PriceBins {
					continue
				}
				g.add(b, t, base*opts.Kernel[dy+radius])
			}
		}
		stats.Rasterized++
	}
	return stats, nil
}

// canonical returns the events sorted by every field that affects the output.
func canonical(events []domain.LiquidationEvent) []domain.LiquidationEvent {
	out := make([]domain.LiquidationEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		if *a.EntryTime != *b.EntryTime {
			return *a.EntryTime < *b.EntryTime
		}
		if a.NotionalUSD != b.NotionalUSD {
			return a.NotionalUSD < b.NotionalUSD
		}
		if a.Side != b.Side {
			return a.Side < b.Side
		}
		return a.Status < b.Status
	})
	return out
}
