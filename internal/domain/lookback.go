package domain

// Lookback is a bucketed history window and the candle interval used to sample it.
type Lookback struct {
	Days     int
	Interval string
}

// PickLookback snaps the requested number of days onto the supported windows.
// Short windows get fine candles, long windows coarse ones, which keeps the
// time axis to a few hundred columns.
func PickLookback(days int) Lookback {
	switch {
	case days <= 1:
		return Lookback{Days: 1, Interval: "30m"}
	case days <= 7:
		return Lookback{Days: 7, Interval: "4h"}
	case days <= 14:
		return Lookback{Days: 14, Interval: "4h"}
	case days <= 30:
		return Lookback{Days: 30, Interval: "4h"}
	case days <= 90:
		return Lookback{Days: 90, Interval: "1d"}
	case days <= 180:
		return Lookback{Days: 180, Interval: "1d"}
	default:
		return Lookback{Days: 365, Interval: "1d"}
	}
}
