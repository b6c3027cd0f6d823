package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func i64(v int64) *int64 { return &v }

func TestSummaryCurrentPrice(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		want    *float64
	}{
		{"none", Summary{}, nil},
		{"close only", Summary{Close: f64(4)}, f64(4)},
		{"price beats close", Summary{Price: f64(3), Close: f64(4)}, f64(3)},
		{"snake beats price", Summary{CurrentPriceSnake: f64(2), Price: f64(3), Close: f64(4)}, f64(2)},
		{"camel beats all", Summary{CurrentPriceCamel: f64(1), CurrentPriceSnake: f64(2), Price: f64(3), Close: f64(4)}, f64(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.summary.CurrentPrice()
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestSummaryCurrentPrice_ReturnsCopy(t *testing.T) {
	s := Summary{Price: f64(100)}
	got := s.CurrentPrice()
	*got = 1
	assert.Equal(t, 100.0, *s.Price)
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		in   string
		want Side
		ok   bool
	}{
		{"long", SideLong, true},
		{"SELL", SideLong, true},
		{" short ", SideShort, true},
		{"buy", SideShort, true},
		{"flat", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSide(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLiquidationMapEvents(t *testing.T) {
	entry := i64(1714521600)
	m := &LiquidationMap{
		RawLiquidations: []RawLiquidation{
			{Price: 95, USD: 1000, Side: "sell", Status: "ACTIVE", EntryTime: entry},
			{Price: 105, USD: 2000, Side: "buy", Status: "PARTIAL"},
			{Price: 110, USD: 3000, Side: "sideways", Status: "ACTIVE", EntryTime: entry},
			{Price: 90, USD: 4000, Side: "long", Status: "GONE", EntryTime: entry},
		},
	}

	events := m.Events()
	require.Len(t, events, 2)

	assert.Equal(t, LiquidationEvent{Price: 95, NotionalUSD: 1000, Side: SideLong, Status: StatusActive, EntryTime: entry}, events[0])
	assert.Equal(t, SideShort, events[1].Side)
	assert.Equal(t, StatusPartial, events[1].Status)
	assert.False(t, events[1].HasEntryTime())

	// The event owns its entry time.
	*m.RawLiquidations[0].EntryTime = 0
	assert.Equal(t, int64(1714521600), *events[0].EntryTime)
}

func TestLiquidationMapCrossSection(t *testing.T) {
	m := &LiquidationMap{
		Bins: []Bin{
			{MidPrice: 95, Intensity: 40, USD: 1000, Status: StatusActive},
			{MidPrice: 100, Intensity: 10, USD: 50, Status: StatusCleared},
			{MidPrice: 105, Intensity: 90, USD: 2000, Status: StatusPartial},
		},
	}

	points := m.CrossSection(f64(100))
	require.Len(t, points, 2)
	assert.Equal(t, 95.0, points[0].Price)
	assert.False(t, points[0].AboveCurrentPrice)
	assert.Equal(t, 105.0, points[1].Price)
	assert.True(t, points[1].AboveCurrentPrice)
	assert.Equal(t, StatusPartial, points[1].Status)

	for _, p := range m.CrossSection(nil) {
		assert.False(t, p.AboveCurrentPrice)
	}
}

func TestLiquidationMapFetchedAt(t *testing.T) {
	want := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, want, (&LiquidationMap{Timestamp: want.Unix()}).FetchedAt())
	assert.Equal(t, want, (&LiquidationMap{Timestamp: want.UnixMilli()}).FetchedAt())
}

func TestLiquidationMapValidate(t *testing.T) {
	valid := func() *LiquidationMap {
		return &LiquidationMap{
			Direction:       Direction{Bias: BiasUp},
			Bins:            []Bin{{MidPrice: 100, Intensity: 100, USD: 1, Status: StatusActive}},
			RawLiquidations: []RawLiquidation{{Price: 100, USD: 1, Side: "buy", Status: "CLEARED"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(m *LiquidationMap)
		wantErr bool
	}{
		{"valid", func(m *LiquidationMap) {}, false},
		{"empty bias", func(m *LiquidationMap) { m.Direction.Bias = "" }, true},
		{"unknown bin status", func(m *LiquidationMap) { m.Bins[0].Status = "OPEN" }, true},
		{"intensity above 100", func(m *LiquidationMap) { m.Bins[0].Intensity = 100.5 }, true},
		{"negative intensity", func(m *LiquidationMap) { m.Bins[0].Intensity = -1 }, true},
		{"NaN intensity", func(m *LiquidationMap) { m.Bins[0].Intensity = math.NaN() }, true},
		{"negative bin usd", func(m *LiquidationMap) { m.Bins[0].USD = -1 }, true},
		{"unknown raw side", func(m *LiquidationMap) { m.RawLiquidations[0].Side = "up" }, true},
		{"unknown raw status", func(m *LiquidationMap) { m.RawLiquidations[0].Status = "active" }, true},
		{"negative raw price", func(m *LiquidationMap) { m.RawLiquidations[0].Price = -5 }, true},
		{"no bins", func(m *LiquidationMap) { m.Bins = nil; m.RawLiquidations = nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid()
			tt.mutate(m)
			err := m.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
