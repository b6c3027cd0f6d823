package heatmap

import "errors"

// Conditions under which the engine has nothing to draw. Build never returns them;
// they surface as Result.Reason.
var (
	ErrEmptySample         = errors.New("empty sample")
	ErrDegenerateRange     = errors.New("price range has zero width")
	ErrInsufficientCandles = errors.New("at least two candles are required")
	ErrNoEvents            = errors.New("no liquidation events with an entry time")
	ErrEmptyGrid           = errors.New("accumulated grid is empty")
	ErrInvalidOptions      = errors.New("invalid heatmap options")
)
