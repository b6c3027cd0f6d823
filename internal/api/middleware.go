package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"liquidationMap/internal/ports"
)

// ErrorHandler middleware handles panics and errors
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if msg, ok := recovered.(string); ok {
			c.JSON(http.StatusInternalServerError, errorBody("INTERNAL_ERROR", msg))
		} else {
			c.JSON(http.StatusInternalServerError, errorBody("INTERNAL_ERROR", "An unexpected error occurred"))
		}
		c.Abort()
	})
}

// RequestLogger logs every request through the application logger.
func RequestLogger(logger ports.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn(c.Request.Context(), "HTTP request failed", fields)
			return
		}
		logger.Debug(c.Request.Context(), "HTTP request", fields)
	}
}
