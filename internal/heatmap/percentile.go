package heatmap

import (
	"fmt"
	"math"
	"sort"

	"liquidationMap/internal/domain"
)

// PriceRange is the visible price band of the heatmap.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns Max - Min.
func (r PriceRange) Span() float64 {
	return r.Max - r.Min
}

// Contains reports whether price lies inside the band, bounds included.
func (r PriceRange) Contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}

// Percentile returns the nearest-rank percentile of sample: the value at
// floor(n*p) of the ascending-sorted sample. The sample is not modified.
func Percentile(sample []float64, p float64) (float64, error) {
	if len(sample) == 0 {
		return 0, ErrEmptySample
	}
	return nearestRank(sortedCopy(sample), p), nil
}

func sortedCopy(sample []float64) []float64 {
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)
	return sorted
}

// nearestRank picks the floor(n*p) element of an ascending, non-empty slice.
func nearestRank(sorted []float64, p float64) float64 {
	n := len(sorted)
	idx := int(math.Floor(float64(n) * p))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// TrimRange returns the [lower, upper] percentile band of sample.
func TrimRange(sample []float64, lower, upper float64) (PriceRange, error) {
	if len(sample) == 0 {
		return PriceRange{}, ErrEmptySample
	}
	sorted := sortedCopy(sample)
	r := PriceRange{
		Min: nearestRank(sorted, lower),
		Max: nearestRank(sorted, upper),
	}
	span := r.Span()
	if math.IsNaN(span) || math.IsInf(span, 0) || span <= 0 {
		return r, fmt.Errorf("%w: [%v, %v]", ErrDegenerateRange, r.Min, r.Max)
	}
	return r, nil
}

// TrimPriceRange bounds the price axis on the events eligible for this pass.
func TrimPriceRange(events []domain.LiquidationEvent, opts Options) (PriceRange, error) {
	prices := make([]float64, 0, len(events))
	for _, ev := range eligible(events, opts) {
		prices = append(prices, ev.Price)
	}
	if len(prices) == 0 {
		return PriceRange{}, ErrNoEvents
	}
	return TrimRange(prices, opts.LowerPercentile, opts.UpperPercentile)
}

// eligible keeps events with an entry time, a finite price and an allowed status.
func eligible(events []domain.LiquidationEvent, opts Options) []domain.LiquidationEvent {
	out := make([]domain.LiquidationEvent, 0, len(events))
	for _, ev := range events {
		if !ev.HasEntryTime() || opts.excluded(ev.Status) {
			continue
		}
		if math.IsNaN(ev.Price) || math.IsInf(ev.Price, 0) {
			continue
		}
		out = append(out, ev)
	}
	return out
}
