// Package api serves the published heatmap, the cross-section view and the
// prediction history over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"liquidationMap/internal/app"
	"liquidationMap/internal/domain"
	"liquidationMap/internal/metrics"
	"liquidationMap/internal/ports"
)

const shutdownTimeout = 10 * time.Second

// HeatmapReader is the read side of the heatmap service.
type HeatmapReader interface {
	Current() (*app.Heatmap, bool)
	CrossSection() ([]domain.CrossSectionPoint, *float64, bool)
	UpstreamStatus(ctx context.Context) string
}

// Config holds the HTTP server settings.
type Config struct {
	Port           int
	Env            string   // "production" switches gin to release mode
	AllowedOrigins []string // CORS origins, "*" allows any
	Symbol         string
}

// Server is the HTTP front of the heatmap service.
type Server struct {
	heatmaps HeatmapReader
	repo     ports.PredictionRepository
	snaps    ports.SnapshotRepository
	logger   ports.Logger
	symbol   string
	handler  http.Handler
	http     *http.Server
}

// NewServer builds the router, wraps it in CORS and prepares the listener.
func NewServer(cfg Config, heatmaps HeatmapReader, repo ports.PredictionRepository, snaps ports.SnapshotRepository, m *metrics.Metrics, logger ports.Logger) (*Server, error) {
	if heatmaps == nil || repo == nil || snaps == nil || m == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for api server")
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{heatmaps: heatmaps, repo: repo, snaps: snaps, logger: logger, symbol: cfg.Symbol}

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.Use(ErrorHandler())

	router.GET("/health", s.health)
	router.GET("/api/status", s.status)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/heatmap", s.heatmap)
		v1.GET("/cross-section", s.crossSection)
		v1.GET("/predictions", s.predictions)
		v1.GET("/predictions/stats", s.predictionStats)
		v1.GET("/snapshots", s.snapshots)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "Not found"))
	})

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.handler = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}).Handler(router)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the CORS-wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting API server", map[string]interface{}{"addr": s.http.Addr})
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	s.logger.Info(ctx, "API server stopped")
	return nil
}
