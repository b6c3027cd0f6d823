package domain

import "strings"

// Side is the side of the leveraged position a liquidation level belongs to.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ParseSide normalizes the side strings used by upstream feeds.
// Exchanges report the liquidation order side, so BUY closes a short and SELL closes a long.
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "sell":
		return SideLong, true
	case "short", "buy":
		return SideShort, true
	default:
		return "", false
	}
}

// LiquidationStatus reports whether a liquidation level is still resting.
type LiquidationStatus string

const (
	StatusActive  LiquidationStatus = "ACTIVE"
	StatusPartial LiquidationStatus = "PARTIAL"
	StatusCleared LiquidationStatus = "CLEARED"
)

// Valid checks the status against the known set.
func (s LiquidationStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPartial, StatusCleared:
		return true
	default:
		return false
	}
}

// DirectionBias is the directional call derived from the liquidation map.
type DirectionBias string

const (
	BiasUp       DirectionBias = "UP"
	BiasDown     DirectionBias = "DOWN"
	BiasUnbiased DirectionBias = "UNBIASED"
)

// Valid checks the bias against the known set.
func (b DirectionBias) Valid() bool {
	switch b {
	case BiasUp, BiasDown, BiasUnbiased:
		return true
	default:
		return false
	}
}
