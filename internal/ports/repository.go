package ports

import (
	"context"
	"time"

	"liquidationMap/internal/domain"
)

// PredictionRepository defines the interface for storing and retrieving directional predictions.
type PredictionRepository interface {
	// CreatePrediction saves a new prediction and returns its assigned ID.
	CreatePrediction(ctx context.Context, p *domain.Prediction) (int64, error)
	// UpdateOutcome stores the evaluated outcome of a prediction.
	UpdateOutcome(ctx context.Context, p *domain.Prediction) error
	// FindPending retrieves unevaluated predictions made at or before the cutoff.
	FindPending(ctx context.Context, symbol string, before time.Time) ([]*domain.Prediction, error)
	// FindRecent retrieves the most recent predictions for a symbol, newest first.
	FindRecent(ctx context.Context, symbol string, limit int) ([]*domain.Prediction, error)
}

// SnapshotRepository defines the interface for storing heatmap render metadata.
type SnapshotRepository interface {
	// SaveSnapshot persists one render's metadata.
	SaveSnapshot(ctx context.Context, s *domain.HeatmapSnapshot) error
	// LatestSnapshots retrieves the most recent snapshots for a symbol, newest first.
	LatestSnapshots(ctx context.Context, symbol string, limit int) ([]*domain.HeatmapSnapshot, error)
}
