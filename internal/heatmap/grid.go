package heatmap

import (
	"fmt"
	"math"
)

// Grid is the dense price x time accumulation buffer of one render pass.
// Values are stored row-major by price bin.
type Grid struct {
	Range     PriceRange
	PriceBins int
	TimeBins  int
	PriceStep float64

	values []float64
}

// NewGrid allocates a zeroed grid spanning r with priceBins rows and timeBins columns.
func NewGrid(r PriceRange, priceBins, timeBins int) (*Grid, error) {
	if priceBins < 1 {
		return nil, fmt.Errorf("%w: price bins must be positive, got %d", ErrInvalidOptions, priceBins)
	}
	if timeBins < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientCandles, timeBins)
	}
	span := r.Span()
	if math.IsNaN(span) || math.IsInf(span, 0) || span <= 0 {
		return nil, fmt.Errorf("%w: [%v, %v]", ErrDegenerateRange, r.Min, r.Max)
	}
	return &Grid{
		Range:     r,
		PriceBins: priceBins,
		TimeBins:  timeBins,
		PriceStep: span / float64(priceBins),
		values:    make([]float64, priceBins*timeBins),
	}, nil
}

// At returns the accumulated value of cell (b, t).
func (g *Grid) At(b, t int) float64 {
	return g.values[b*g.TimeBins+t]
}

func (g *Grid) add(b, t int, v float64) {
	g.values[b*g.TimeBins+t] += v
}

// PriceBin maps a price onto its row, clamped to the grid.
func (g *Grid) PriceBin(price float64) int {
	b := int(math.Floor((price - g.Range.Min) / g.PriceStep))
	if b < 0 {
		return 0
	}
	if b > g.PriceBins-1 {
		return g.PriceBins - 1
	}
	return b
}

// ColumnSum sums all price bins of time column t.
func (g *Grid) ColumnSum(t int) float64 {
	sum := 0.0
	for b := 0; b < g.PriceBins; b++ {
		sum += g.At(b, t)
	}
	return sum
}

// Max returns the largest accumulated value.
func (g *Grid) Max() float64 {
	m := 0.0
	for _, v := range g.values {
		if v > m {
			m = v
		}
	}
	return m
}

// Values returns a copy of the raw buffer.
func (g *Grid) Values() []float64 {
	out := make([]float64, len(g.values))
	copy(out, g.values)
	return out
}
