package api

import (
	"time"

	"liquidationMap/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusResponse is the upstream status passthrough
type StatusResponse struct {
	Status      string     `json:"status"`
	Symbol      string     `json:"symbol"`
	HasHeatmap  bool       `json:"has_heatmap"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}

// CrossSectionResponse is the cross-sectional view of the last liquidation map
type CrossSectionResponse struct {
	Symbol       string                     `json:"symbol"`
	CurrentPrice *float64                   `json:"current_price"`
	Points       []domain.CrossSectionPoint `json:"points"`
}

// PredictionView is one prediction as served by the API
type PredictionView struct {
	ID                int64                `json:"id"`
	Timestamp         time.Time            `json:"timestamp"`
	Symbol            string               `json:"symbol"`
	Timeframe         string               `json:"timeframe"`
	Bias              domain.DirectionBias `json:"bias"`
	UpwardMag         float64              `json:"upward_mag"`
	DownwardMag       float64              `json:"downward_mag"`
	PriceAtPrediction float64              `json:"price_at_prediction"`
	PriceLater        *float64             `json:"price_later"`
	PriceChangePct    *float64             `json:"price_change_pct"`
	DirectionCorrect  *bool                `json:"direction_correct"`
}

// PredictionsResponse lists recent predictions, newest first
type PredictionsResponse struct {
	Symbol      string           `json:"symbol"`
	Count       int              `json:"count"`
	Predictions []PredictionView `json:"predictions"`
}

func newPredictionView(p *domain.Prediction) PredictionView {
	return PredictionView{
		ID:                p.ID,
		Timestamp:         p.Timestamp,
		Symbol:            p.Symbol,
		Timeframe:         p.Timeframe,
		Bias:              p.Bias,
		UpwardMag:         p.UpwardMag,
		DownwardMag:       p.DownwardMag,
		PriceAtPrediction: p.PriceAtPrediction,
		PriceLater:        p.PriceLater,
		PriceChangePct:    p.PriceChangePct,
		DirectionCorrect:  p.DirectionCorrect,
	}
}

// SnapshotView is the metadata of one past render
type SnapshotView struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LookbackDays int       `json:"lookback_days"`
	Interval     string    `json:"interval"`
	PriceMin     float64   `json:"price_min"`
	PriceMax     float64   `json:"price_max"`
	TimeBins     int       `json:"time_bins"`
	CellCount    int       `json:"cell_count"`
	EventCount   int       `json:"event_count"`
	Renderable   bool      `json:"renderable"`
	Reason       string    `json:"reason,omitempty"`
}

// SnapshotsResponse lists recent renders, newest first
type SnapshotsResponse struct {
	Symbol    string         `json:"symbol"`
	Count     int            `json:"count"`
	Snapshots []SnapshotView `json:"snapshots"`
}

func newSnapshotView(s *domain.HeatmapSnapshot) SnapshotView {
	return SnapshotView{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		LookbackDays: s.LookbackDays,
		Interval:     s.Interval,
		PriceMin:     s.PriceMin,
		PriceMax:     s.PriceMax,
		TimeBins:     s.TimeBins,
		CellCount:    s.CellCount,
		EventCount:   s.EventCount,
		Renderable:   s.Renderable,
		Reason:       s.Reason,
	}
}

func errorBody(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}
