package heatmap

import "math"

// Cell is one visible rectangle of the heatmap.
type Cell struct {
	TimeIndex int     `json:"time_index"`
	PriceLow  float64 `json:"price_low"`
	PriceHigh float64 `json:"price_high"`
	Intensity float64 `json:"intensity"`
}

// Normalize rescales the grid against its maximum, applies the intensity curve and
// returns the cells above the visibility threshold, ordered by price bin then time.
func (g *Grid) Normalize(opts Options) []Cell {
	maxCell := g.Max()
	if !(maxCell > 0) || math.IsInf(maxCell, 0) {
		return []Cell{}
	}

	cells := make([]Cell, 0)
	for b := 0; b < g.PriceBins; b++ {
		p0 := g.Range.Min + float64(b)*g.PriceStep
		p1 := p0 + g.PriceStep
		for t := 0; t < g.TimeBins; t++ {
			v := g.At(b, t)
			if v <= 0 {
				continue
			}
			norm := v / maxCell
			if norm > 1 {
				norm = 1
			}
			intensity := math.Pow(norm, opts.IntensityExponent)
			if intensity < opts.MinIntensity {
				continue
			}
			cells = append(cells, Cell{TimeIndex: t, PriceLow: p0, PriceHigh: p1, Intensity: intensity})
		}
	}
	return cells
}
