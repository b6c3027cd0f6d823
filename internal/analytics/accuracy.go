// Package analytics summarizes how well liquidation-map direction calls played out.
package analytics

import (
	"math"
	"sort"
	"time"

	"liquidationMap/internal/domain"
)

// Stats holds accuracy metrics over a set of predictions.
type Stats struct {
	TotalPredictions int     `json:"total_predictions"`
	Completed        int     `json:"completed"`
	Scored           int     `json:"scored"` // Completed with a verdict (UNBIASED calls have none)
	Correct          int     `json:"correct"`
	AccuracyPct      float64 `json:"accuracy_pct"`
	AvgMovePct       float64 `json:"avg_move_pct"` // Mean absolute price change of completed predictions

	MaxConsecutiveCorrect int `json:"max_consecutive_correct"`
	MaxConsecutiveWrong   int `json:"max_consecutive_wrong"`

	ByBias  map[domain.DirectionBias]BiasStats `json:"by_bias"`
	Monthly []MonthlyAccuracy                  `json:"monthly"`
}

// BiasStats is the per-bias breakdown.
type BiasStats struct {
	Total       int     `json:"total"`
	Scored      int     `json:"scored"`
	Correct     int     `json:"correct"`
	AccuracyPct float64 `json:"accuracy_pct"`
}

// MonthlyAccuracy is the accuracy for one calendar month (UTC).
type MonthlyAccuracy struct {
	Month       time.Time `json:"month"`
	Scored      int       `json:"scored"`
	Correct     int       `json:"correct"`
	AccuracyPct float64   `json:"accuracy_pct"`
}

// AccuracyStats calculates accuracy metrics. The input slice is not reordered.
func AccuracyStats(predictions []*domain.Prediction) *Stats {
	stats := &Stats{
		ByBias:  make(map[domain.DirectionBias]BiasStats),
		Monthly: make([]MonthlyAccuracy, 0),
	}
	if len(predictions) == 0 {
		return stats
	}

	// Streaks need chronological order.
	ordered := make([]*domain.Prediction, 0, len(predictions))
	for _, p := range predictions {
		if p != nil {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	monthly := make(map[time.Time]*MonthlyAccuracy)
	var sumMove float64
	var moves int
	var correctRun, wrongRun int

	for _, p := range ordered {
		stats.TotalPredictions++
		bs := stats.ByBias[p.Bias]
		bs.Total++

		if p.IsCompleted() {
			stats.Completed++
			if p.PriceChangePct != nil {
				sumMove += math.Abs(*p.PriceChangePct)
				moves++
			}
		}

		if p.DirectionCorrect != nil {
			stats.Scored++
			bs.Scored++

			ts := p.Timestamp.UTC()
			month := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
			m, ok := monthly[month]
			if !ok {
				m = &MonthlyAccuracy{Month: month}
				monthly[month] = m
			}
			m.Scored++

			if *p.DirectionCorrect {
				stats.Correct++
				bs.Correct++
				m.Correct++
				correctRun++
				wrongRun = 0
			} else {
				wrongRun++
				correctRun = 0
			}
			if correctRun > stats.MaxConsecutiveCorrect {
				stats.MaxConsecutiveCorrect = correctRun
			}
			if wrongRun > stats.MaxConsecutiveWrong {
				stats.MaxConsecutiveWrong = wrongRun
			}
		}
		stats.ByBias[p.Bias] = bs
	}

	stats.AccuracyPct = pct(stats.Correct, stats.Scored)
	if moves > 0 {
		stats.AvgMovePct = sumMove / float64(moves)
	}
	for bias, bs := range stats.ByBias {
		bs.AccuracyPct = pct(bs.Correct, bs.Scored)
		stats.ByBias[bias] = bs
	}
	for _, m := range monthly {
		m.AccuracyPct = pct(m.Correct, m.Scored)
		stats.Monthly = append(stats.Monthly, *m)
	}
	sort.Slice(stats.Monthly, func(i, j int) bool {
		return stats.Monthly[i].Month.Before(stats.Monthly[j].Month)
	})

	return stats
}

func pct(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}
