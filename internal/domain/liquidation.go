package domain

import (
	"fmt"
	"math"
	"time"
)

// LiquidationEvent is one open leveraged position's liquidation trigger.
type LiquidationEvent struct {
	Price       float64           // Liquidation trigger price
	NotionalUSD float64           // Position notional in USD
	Side        Side              // long or short
	Status      LiquidationStatus // ACTIVE, PARTIAL or CLEARED
	EntryTime   *int64            // Position open time, unix seconds (nil when unknown)
}

// HasEntryTime reports whether a lifetime can be computed for the event.
func (e LiquidationEvent) HasEntryTime() bool {
	return e.EntryTime != nil
}

// Bin is one aggregated price bucket of the liquidation map.
type Bin struct {
	Bucket    string            `json:"bucket,omitempty"`
	MidPrice  float64           `json:"mid_price"`
	Intensity float64           `json:"intensity"` // 0..100
	USD       float64           `json:"usd"`
	Status    LiquidationStatus `json:"status"`
}

// Direction is the directional summary of the map.
type Direction struct {
	Bias        DirectionBias `json:"bias"`
	UpwardMag   float64       `json:"upward_mag"`
	DownwardMag float64       `json:"downward_mag"`
}

// Summary carries market context. Upstream uses several spellings for the current price.
type Summary struct {
	Price             *float64 `json:"price,omitempty"`
	CurrentPriceSnake *float64 `json:"current_price,omitempty"`
	CurrentPriceCamel *float64 `json:"currentPrice,omitempty"`
	Close             *float64 `json:"close,omitempty"`
	OpenInterest      *float64 `json:"open_interest,omitempty"`
	TotalOIUSD        *float64 `json:"total_oi_usd,omitempty"`
	FundingRate       *float64 `json:"funding_rate,omitempty"`
	High              *float64 `json:"high,omitempty"`
	Low               *float64 `json:"low,omitempty"`
}

// CurrentPrice returns the first price field present, in upstream precedence order.
func (s Summary) CurrentPrice() *float64 {
	for _, p := range []*float64{s.CurrentPriceCamel, s.CurrentPriceSnake, s.Price, s.Close} {
		if p != nil {
			v := *p
			return &v
		}
	}
	return nil
}

// RawLiquidation is a single liquidation level as delivered by the map API.
type RawLiquidation struct {
	Price     float64 `json:"price"`
	USD       float64 `json:"usd"`
	Side      string  `json:"side"`
	Status    string  `json:"status"`
	EntryTime *int64  `json:"entry_time"`
}

// LiquidationMap is the validated liquidation map snapshot.
type LiquidationMap struct {
	Summary         Summary          `json:"summary"`
	Direction       Direction        `json:"direction"`
	Bins            []Bin            `json:"bins"`
	RawLiquidations []RawLiquidation `json:"raw_liquidations,omitempty"`
	Timestamp       int64            `json:"timestamp"`
}

// FetchedAt returns the map timestamp. Both seconds and milliseconds are seen upstream.
func (m *LiquidationMap) FetchedAt() time.Time {
	if m.Timestamp > 1e12 {
		return time.UnixMilli(m.Timestamp).UTC()
	}
	return time.Unix(m.Timestamp, 0).UTC()
}

// Events converts raw liquidations into engine input. Entries with an unknown side
// or status are dropped.
func (m *LiquidationMap) Events() []LiquidationEvent {
	events := make([]LiquidationEvent, 0, len(m.RawLiquidations))
	for _, raw := range m.RawLiquidations {
		side, ok := ParseSide(raw.Side)
		if !ok {
			continue
		}
		status := LiquidationStatus(raw.Status)
		if !status.Valid() {
			continue
		}
		ev := LiquidationEvent{
			Price:       raw.Price,
			NotionalUSD: raw.USD,
			Side:        side,
			Status:      status,
		}
		if raw.EntryTime != nil {
			t := *raw.EntryTime
			ev.EntryTime = &t
		}
		events = append(events, ev)
	}
	return events
}

// CrossSectionPoint is one bar of the cross-sectional view.
type CrossSectionPoint struct {
	Price             float64           `json:"price"`
	USD               float64           `json:"usd"`
	Intensity         float64           `json:"intensity"`
	Status            LiquidationStatus `json:"status"`
	AboveCurrentPrice bool              `json:"above_current_price"`
}

// CrossSection returns the non-cleared bins, flagged relative to currentPrice.
func (m *LiquidationMap) CrossSection(currentPrice *float64) []CrossSectionPoint {
	points := make([]CrossSectionPoint, 0, len(m.Bins))
	for _, b := range m.Bins {
		if b.Status == StatusCleared {
			continue
		}
		points = append(points, CrossSectionPoint{
			Price:             b.MidPrice,
			USD:               b.USD,
			Intensity:         b.Intensity,
			Status:            b.Status,
			AboveCurrentPrice: currentPrice != nil && b.MidPrice > *currentPrice,
		})
	}
	return points
}

// Validate checks enum values and numeric ranges of a decoded map.
func (m *LiquidationMap) Validate() error {
	if !m.Direction.Bias.Valid() {
		return fmt.Errorf("direction.bias %q is not one of UP, DOWN, UNBIASED", m.Direction.Bias)
	}
	for i, b := range m.Bins {
		if !b.Status.Valid() {
			return fmt.Errorf("bins[%d].status %q is unknown", i, b.Status)
		}
		if b.Intensity < 0 || b.Intensity > 100 || math.IsNaN(b.Intensity) {
			return fmt.Errorf("bins[%d].intensity %v outside [0,100]", i, b.Intensity)
		}
		if b.MidPrice < 0 || b.USD < 0 {
			return fmt.Errorf("bins[%d] has negative price or usd", i)
		}
	}
	for i, r := range m.RawLiquidations {
		if _, ok := ParseSide(r.Side); !ok {
			return fmt.Errorf("raw_liquidations[%d].side %q is unknown", i, r.Side)
		}
		if !LiquidationStatus(r.Status).Valid() {
			return fmt.Errorf("raw_liquidations[%d].status %q is unknown", i, r.Status)
		}
		if r.Price < 0 || r.USD < 0 {
			return fmt.Errorf("raw_liquidations[%d] has negative price or usd", i)
		}
	}
	return nil
}
