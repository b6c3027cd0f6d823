package analytics

import (
	"testing"
	"time"

	"liquidationMap/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolved(ts time.Time, bias domain.DirectionBias, at, later float64) *domain.Prediction {
	p := &domain.Prediction{Timestamp: ts, Symbol: "BTCUSDT", Bias: bias, PriceAtPrediction: at}
	if later > 0 {
		p.Resolve(later)
	}
	return p
}

func TestAccuracyStats_Empty(t *testing.T) {
	stats := AccuracyStats(nil)
	assert.Equal(t, 0, stats.TotalPredictions)
	assert.Equal(t, 0.0, stats.AccuracyPct)
	assert.NotNil(t, stats.ByBias)
	assert.NotNil(t, stats.Monthly)
}

func TestAccuracyStats(t *testing.T) {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)

	predictions := []*domain.Prediction{
		resolved(feb.Add(2*time.Hour), domain.BiasDown, 100, 99), // correct, -1%
		resolved(jan, domain.BiasUp, 100, 102),                   // correct, +2%
		resolved(jan.Add(time.Hour), domain.BiasUp, 100, 97),     // wrong, -3%
		resolved(feb, domain.BiasUnbiased, 100, 104),             // no verdict, +4%
		resolved(feb.Add(time.Hour), domain.BiasDown, 100, 95),   // correct, -5%
		resolved(feb.Add(3*time.Hour), domain.BiasUp, 100, 0),    // pending
		nil,
	}

	stats := AccuracyStats(predictions)

	assert.Equal(t, 6, stats.TotalPredictions)
	assert.Equal(t, 5, stats.Completed)
	assert.Equal(t, 4, stats.Scored)
	assert.Equal(t, 3, stats.Correct)
	assert.InDelta(t, 75.0, stats.AccuracyPct, 1e-9)
	assert.InDelta(t, (2.0+3+4+5+1)/5, stats.AvgMovePct, 1e-9)

	// Chronological verdicts: correct, wrong, correct, correct
	assert.Equal(t, 2, stats.MaxConsecutiveCorrect)
	assert.Equal(t, 1, stats.MaxConsecutiveWrong)

	up := stats.ByBias[domain.BiasUp]
	assert.Equal(t, BiasStats{Total: 3, Scored: 2, Correct: 1, AccuracyPct: 50}, up)
	down := stats.ByBias[domain.BiasDown]
	assert.Equal(t, BiasStats{Total: 2, Scored: 2, Correct: 2, AccuracyPct: 100}, down)
	assert.Equal(t, 1, stats.ByBias[domain.BiasUnbiased].Total)
	assert.Equal(t, 0, stats.ByBias[domain.BiasUnbiased].Scored)

	require.Len(t, stats.Monthly, 2)
	assert.Equal(t, time.January, stats.Monthly[0].Month.Month())
	assert.InDelta(t, 50.0, stats.Monthly[0].AccuracyPct, 1e-9)
	assert.Equal(t, time.February, stats.Monthly[1].Month.Month())
	assert.InDelta(t, 100.0, stats.Monthly[1].AccuracyPct, 1e-9)

	// Input order untouched
	assert.Equal(t, domain.BiasDown, predictions[0].Bias)
}

func TestAccuracyStats_MonthlyBucketsInUTC(t *testing.T) {
	sydney := time.FixedZone("AEST", 10*3600)
	newYork := time.FixedZone("EST", -5*3600)

	predictions := []*domain.Prediction{
		// 2024-01-31T19:00Z
		resolved(time.Date(2024, 2, 1, 5, 0, 0, 0, sydney), domain.BiasUp, 100, 101),
		// 2024-02-01T03:00Z
		resolved(time.Date(2024, 1, 31, 22, 0, 0, 0, newYork), domain.BiasUp, 100, 99),
	}

	stats := AccuracyStats(predictions)
	require.Len(t, stats.Monthly, 2)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), stats.Monthly[0].Month)
	assert.Equal(t, 1, stats.Monthly[0].Correct)
	assert.Equal(t, 100.0, stats.Monthly[0].AccuracyPct)

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), stats.Monthly[1].Month)
	assert.Equal(t, 0, stats.Monthly[1].Correct)
	assert.Equal(t, 0.0, stats.Monthly[1].AccuracyPct)
}
