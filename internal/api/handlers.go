package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"liquidationMap/internal/analytics"
)

const (
	defaultPredictionLimit = 50
	maxPredictionLimit     = 500
	defaultSnapshotLimit   = 50
	maxSnapshotLimit       = 500
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// status handles GET /api/status
func (s *Server) status(c *gin.Context) {
	resp := StatusResponse{
		Status: s.heatmaps.UpstreamStatus(c.Request.Context()),
		Symbol: s.symbol,
	}
	if h, ok := s.heatmaps.Current(); ok {
		generated := h.GeneratedAt
		resp.HasHeatmap = true
		resp.GeneratedAt = &generated
	}
	c.JSON(http.StatusOK, resp)
}

// heatmap handles GET /api/v1/heatmap
func (s *Server) heatmap(c *gin.Context) {
	h, ok := s.heatmaps.Current()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, errorBody("NOT_READY", "heatmap has not been generated yet"))
		return
	}
	c.JSON(http.StatusOK, h)
}

// crossSection handles GET /api/v1/cross-section
func (s *Server) crossSection(c *gin.Context) {
	points, price, ok := s.heatmaps.CrossSection()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, errorBody("NOT_READY", "liquidation map has not been fetched yet"))
		return
	}
	c.JSON(http.StatusOK, CrossSectionResponse{Symbol: s.symbol, CurrentPrice: price, Points: points})
}

// queryLimit reads ?limit, defaulting to defaultLimit and capped at maxLimit.
// It writes a 400 and returns false when the value is not a positive integer.
func queryLimit(c *gin.Context, defaultLimit, maxLimit int) (int, bool) {
	limit := defaultLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "limit must be a positive integer"))
			return 0, false
		}
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, true
}

// predictions handles GET /api/v1/predictions?limit=N
func (s *Server) predictions(c *gin.Context) {
	limit, ok := queryLimit(c, defaultPredictionLimit, maxPredictionLimit)
	if !ok {
		return
	}

	preds, err := s.repo.FindRecent(c.Request.Context(), s.symbol, limit)
	if err != nil {
		s.logger.Error(c.Request.Context(), err, "Failed to load predictions")
		c.JSON(http.StatusInternalServerError, errorBody("STORAGE_ERROR", "failed to load predictions"))
		return
	}

	views := make([]PredictionView, 0, len(preds))
	for _, p := range preds {
		views = append(views, newPredictionView(p))
	}
	c.JSON(http.StatusOK, PredictionsResponse{Symbol: s.symbol, Count: len(views), Predictions: views})
}

// predictionStats handles GET /api/v1/predictions/stats
func (s *Server) predictionStats(c *gin.Context) {
	preds, err := s.repo.FindRecent(c.Request.Context(), s.symbol, 0)
	if err != nil {
		s.logger.Error(c.Request.Context(), err, "Failed to load predictions")
		c.JSON(http.StatusInternalServerError, errorBody("STORAGE_ERROR", "failed to load predictions"))
		return
	}
	c.JSON(http.StatusOK, analytics.AccuracyStats(preds))
}

// snapshots handles GET /api/v1/snapshots?limit=N
func (s *Server) snapshots(c *gin.Context) {
	limit, ok := queryLimit(c, defaultSnapshotLimit, maxSnapshotLimit)
	if !ok {
		return
	}

	snaps, err := s.snaps.LatestSnapshots(c.Request.Context(), s.symbol, limit)
	if err != nil {
		s.logger.Error(c.Request.Context(), err, "Failed to load heatmap snapshots")
		c.JSON(http.StatusInternalServerError, errorBody("STORAGE_ERROR", "failed to load heatmap snapshots"))
		return
	}

	views := make([]SnapshotView, 0, len(snaps))
	for _, snap := range snaps {
		views = append(views, newSnapshotView(snap))
	}
	c.JSON(http.StatusOK, SnapshotsResponse{Symbol: s.symbol, Count: len(views), Snapshots: views})
}
