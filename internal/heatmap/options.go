package heatmap

import (
	"fmt"
	"math"

	"liquidationMap/internal/domain"
)

// DefaultKernel is the vertical smoothing kernel (radius 2). It sums to 1.
var DefaultKernel = []float64{0.06, 0.24, 0.40, 0.24, 0.06}

const (
	DefaultPriceBins         = 120
	DefaultRampLength        = 6
	DefaultWeightExponent    = 0.65
	DefaultIntensityExponent = 0.55
	DefaultMinIntensity      = 0.015
	DefaultLowerPercentile   = 0.05
	DefaultUpperPercentile   = 0.95
)

// Options holds the tunables of one render pass.
type Options struct {
	PriceBins         int       // Price axis resolution
	Kernel            []float64 // Odd-length vertical kernel, radius = len/2
	RampLength        int       // Fade-in length in time bins
	WeightExponent    float64   // Power curve applied to normalized notional
	IntensityExponent float64   // Power curve applied to normalized grid values
	MinIntensity      float64   // Cells below this intensity are dropped
	LowerPercentile   float64   // Lower price trim
	UpperPercentile   float64   // Upper price trim

	// ExcludeStatuses lists statuses the caller does not want rasterized.
	ExcludeStatuses []domain.LiquidationStatus
}

// DefaultOptions returns the standard render settings.
func DefaultOptions() Options {
	kernel := make([]float64, len(DefaultKernel))
	copy(kernel, DefaultKernel)
	return Options{
		PriceBins:         DefaultPriceBins,
		Kernel:            kernel,
		RampLength:        DefaultRampLength,
		WeightExponent:    DefaultWeightExponent,
		IntensityExponent: DefaultIntensityExponent,
		MinIntensity:      DefaultMinIntensity,
		LowerPercentile:   DefaultLowerPercentile,
		UpperPercentile:   DefaultUpperPercentile,
	}
}

// Validate checks the options for values the engine cannot work with.
func (o Options) Validate() error {
	if o.PriceBins < 1 {
		return fmt.Errorf("%w: price bins must be positive, got %d", ErrInvalidOptions, o.PriceBins)
	}
	if len(o.Kernel) == 0 || len(o.Kernel)%2 == 0 {
		return fmt.Errorf("%w: kernel length must be odd, got %d", ErrInvalidOptions, len(o.Kernel))
	}
	for _, k := range o.Kernel {
		if k < 0 || math.IsNaN(k) || math.IsInf(k, 0) {
			return fmt.Errorf("%w: kernel taps must be finite and non-negative", ErrInvalidOptions)
		}
	}
	if o.RampLength < 1 {
		return fmt.Errorf("%w: ramp length must be positive, got %d", ErrInvalidOptions, o.RampLength)
	}
	if o.WeightExponent <= 0 || o.IntensityExponent <= 0 {
		return fmt.Errorf("%w: exponents must be positive", ErrInvalidOptions)
	}
	if o.MinIntensity < 0 || o.MinIntensity > 1 {
		return fmt.Errorf("%w: min intensity must be within [0,1], got %v", ErrInvalidOptions, o.MinIntensity)
	}
	if o.LowerPercentile < 0 || o.UpperPercentile >= 1 || o.LowerPercentile >= o.UpperPercentile {
		return fmt.Errorf("%w: percentiles must satisfy 0 <= lower < upper < 1", ErrInvalidOptions)
	}
	return nil
}

// KernelRadius returns the neighborhood radius of the smoothing kernel.
func (o Options) KernelRadius() int {
	return len(o.Kernel) / 2
}

func (o Options) excluded(status domain.LiquidationStatus) bool {
	for _, s := range o.ExcludeStatuses {
		if s == status {
			return true
		}
	}
	return false
}
