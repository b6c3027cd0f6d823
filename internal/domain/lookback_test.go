package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickLookback(t *testing.T) {
	tests := []struct {
		days int
		want Lookback
	}{
		{0, Lookback{Days: 1, Interval: "30m"}},
		{1, Lookback{Days: 1, Interval: "30m"}},
		{2, Lookback{Days: 7, Interval: "4h"}},
		{7, Lookback{Days: 7, Interval: "4h"}},
		{10, Lookback{Days: 14, Interval: "4h"}},
		{30, Lookback{Days: 30, Interval: "4h"}},
		{31, Lookback{Days: 90, Interval: "1d"}},
		{180, Lookback{Days: 180, Interval: "1d"}},
		{181, Lookback{Days: 365, Interval: "1d"}},
		{1000, Lookback{Days: 365, Interval: "1d"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PickLookback(tt.days), "days=%d", tt.days)
	}
}

func TestCandleBrackets(t *testing.T) {
	c := Candle{Low: 99, High: 101}
	assert.True(t, c.Brackets(99))
	assert.True(t, c.Brackets(100))
	assert.True(t, c.Brackets(101))
	assert.False(t, c.Brackets(98.99))
	assert.False(t, c.Brackets(101.01))
}
