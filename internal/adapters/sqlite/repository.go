package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"liquidationMap/internal/domain"
	"liquidationMap/internal/ports"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.PredictionRepository and ports.SnapshotRepository interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/liquidation_map.db" // Default path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Single writer; the driver serializes access anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
// Times are stored as unix milliseconds so range filters compare numerically.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp_ms INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		bias TEXT NOT NULL,
		upward_mag REAL NOT NULL,
		downward_mag REAL NOT NULL,
		price_at_prediction REAL NOT NULL,
		price_1h_later REAL DEFAULT NULL,
		price_change_pct REAL DEFAULT NULL,
		direction_correct INTEGER DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS heatmap_snapshots (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		lookback_days INTEGER NOT NULL,
		interval TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL,
		price_min REAL NOT NULL,
		price_max REAL NOT NULL,
		time_bins INTEGER NOT NULL,
		cell_count INTEGER NOT NULL,
		event_count INTEGER NOT NULL,
		renderable INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_predictions_symbol_timestamp ON predictions (symbol, timestamp_ms);
	CREATE INDEX IF NOT EXISTS idx_snapshots_symbol_created ON heatmap_snapshots (symbol, created_at_ms);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- PredictionRepository Implementation ---

// CreatePrediction saves a new prediction and returns its assigned ID.
func (r *Repository) CreatePrediction(ctx context.Context, p *domain.Prediction) (int64, error) {
	const query = `
	INSERT INTO predictions (timestamp_ms, symbol, timeframe, bias, upward_mag, downward_mag,
	                         price_at_prediction, price_1h_later, price_change_pct, direction_correct)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		p.Timestamp.UnixMilli(), p.Symbol, p.Timeframe, string(p.Bias), p.UpwardMag, p.DownwardMag,
		p.PriceAtPrediction, nullFloat(p.PriceLater), nullFloat(p.PriceChangePct), nullBool(p.DirectionCorrect))
	if err != nil {
		return 0, fmt.Errorf("failed to insert prediction for symbol %s: %w: %w", p.Symbol, ports.ErrQueryFailed, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for prediction %s: %w", p.Symbol, err)
	}
	p.ID = id
	r.logger.Debug(ctx, "Prediction created", map[string]interface{}{"predictionID": id, "symbol": p.Symbol, "bias": p.Bias})
	return id, nil
}

// UpdateOutcome stores the evaluated outcome of a prediction.
func (r *Repository) UpdateOutcome(ctx context.Context, p *domain.Prediction) error {
	const query = `
	UPDATE predictions
	SET price_1h_later = ?, price_change_pct = ?, direction_correct = ?
	WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		nullFloat(p.PriceLater), nullFloat(p.PriceChangePct), nullBool(p.DirectionCorrect), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update prediction ID %d: %w: %w", p.ID, ports.ErrUpdateFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for prediction ID %d: %w", p.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("prediction ID %d not found for update: %w", p.ID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Prediction outcome stored", map[string]interface{}{"predictionID": p.ID, "symbol": p.Symbol})
	return nil
}

const predictionColumns = `
	SELECT id, timestamp_ms, symbol, timeframe, bias, upward_mag, downward_mag,
	       price_at_prediction, price_1h_later, price_change_pct, direction_correct
	FROM predictions`

// FindPending retrieves unevaluated predictions made at or before the cutoff, oldest first.
func (r *Repository) FindPending(ctx context.Context, symbol string, before time.Time) ([]*domain.Prediction, error) {
	const query = predictionColumns + `
	WHERE symbol = ? AND price_1h_later IS NULL AND timestamp_ms <= ?
	ORDER BY timestamp_ms ASC`

	rows, err := r.db.QueryContext(ctx, query, symbol, before.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query pending predictions for symbol %s: %w: %w", symbol, ports.ErrQueryFailed, err)
	}
	defer rows.Close()
	return collectPredictions(rows)
}

// FindRecent retrieves the most recent predictions for a symbol, newest first.
// An empty symbol matches all symbols.
func (r *Repository) FindRecent(ctx context.Context, symbol string, limit int) ([]*domain.Prediction, error) {
	const query = predictionColumns + `
	WHERE (? = '' OR symbol = ?)
	ORDER BY timestamp_ms DESC, id DESC LIMIT ?`

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := r.db.QueryContext(ctx, query, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions for symbol %s: %w: %w", symbol, ports.ErrQueryFailed, err)
	}
	defer rows.Close()
	return collectPredictions(rows)
}

// --- SnapshotRepository Implementation ---

// SaveSnapshot persists one render's metadata, assigning an ID when missing.
func (r *Repository) SaveSnapshot(ctx context.Context, s *domain.HeatmapSnapshot) error {
	const query = `
	INSERT INTO heatmap_snapshots (id, symbol, lookback_days, interval, created_at_ms, price_min, price_max,
	                               time_bins, cell_count, event_count, renderable, reason)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Symbol, s.LookbackDays, s.Interval, s.CreatedAt.UnixMilli(), s.PriceMin, s.PriceMax,
		s.TimeBins, s.CellCount, s.EventCount, s.Renderable, s.Reason)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("snapshot %s: %w", s.ID, ports.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert snapshot for symbol %s: %w: %w", s.Symbol, ports.ErrQueryFailed, err)
	}
	r.logger.Debug(ctx, "Heatmap snapshot saved", map[string]interface{}{"snapshotID": s.ID, "symbol": s.Symbol, "cells": s.CellCount})
	return nil
}

// LatestSnapshots retrieves the most recent snapshots for a symbol, newest first.
func (r *Repository) LatestSnapshots(ctx context.Context, symbol string, limit int) ([]*domain.HeatmapSnapshot, error) {
	const query = `
	SELECT id, symbol, lookback_days, interval, created_at_ms, price_min, price_max,
	       time_bins, cell_count, event_count, renderable, reason
	FROM heatmap_snapshots
	WHERE symbol = ? ORDER BY created_at_ms DESC LIMIT ?`

	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots for symbol %s: %w: %w", symbol, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	snapshots := make([]*domain.HeatmapSnapshot, 0)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return snapshots, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func collectPredictions(rows *sql.Rows) ([]*domain.Prediction, error) {
	predictions := make([]*domain.Prediction, 0)
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prediction rows: %w", err)
	}
	return predictions, nil
}

// scanPrediction scans a row into a domain.Prediction struct.
func scanPrediction(s scanner) (*domain.Prediction, error) {
	p := &domain.Prediction{}
	var (
		tsMs       int64
		bias       string
		priceLater sql.NullFloat64
		changePct  sql.NullFloat64
		correct    sql.NullBool
	)
	err := s.Scan(&p.ID, &tsMs, &p.Symbol, &p.Timeframe, &bias, &p.UpwardMag, &p.DownwardMag,
		&p.PriceAtPrediction, &priceLater, &changePct, &correct)
	if err != nil {
		return nil, err
	}
	p.Timestamp = time.UnixMilli(tsMs).UTC()
	p.Bias = domain.DirectionBias(strings.ToUpper(bias))
	if priceLater.Valid {
		p.PriceLater = &priceLater.Float64
	}
	if changePct.Valid {
		p.PriceChangePct = &changePct.Float64
	}
	if correct.Valid {
		p.DirectionCorrect = &correct.Bool
	}
	return p, nil
}

// scanSnapshot scans a row into a domain.HeatmapSnapshot struct.
func scanSnapshot(s scanner) (*domain.HeatmapSnapshot, error) {
	snap := &domain.HeatmapSnapshot{}
	var createdMs int64
	err := s.Scan(&snap.ID, &snap.Symbol, &snap.LookbackDays, &snap.Interval, &createdMs, &snap.PriceMin, &snap.PriceMax,
		&snap.TimeBins, &snap.CellCount, &snap.EventCount, &snap.Renderable, &snap.Reason)
	if err != nil {
		return nil, err
	}
	snap.CreatedAt = time.UnixMilli(createdMs).UTC()
	return snap, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}
