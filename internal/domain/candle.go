package domain

import "time"

// Candle represents a single OHLC sample of the price history.
type Candle struct {
	Time   int64   // Open time, unix seconds
	Open   float64 // Opening price
	High   float64 // Highest price
	Low    float64 // Lowest price
	Close  float64 // Closing price
	Volume float64 // Trading volume (0 when the source has none)
}

// OpenTime returns the candle open time as time.Time.
func (c Candle) OpenTime() time.Time {
	return time.Unix(c.Time, 0).UTC()
}

// Brackets reports whether price lies inside the candle's traded range.
func (c Candle) Brackets(price float64) bool {
	return c.Low <= price && c.High >= price
}
