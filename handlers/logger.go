package handlers

import (
	"courtcal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger retrieves the request-scoped logger stored by middleware.RequestLogger.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get("logger"); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return utils.GetLogger()
}

// actor names who performed a change: the X-Actor header, else the fallback.
func actor(c *gin.Context, fallback string) string {
	if a := c.GetHeader("X-Actor"); a != "" {
		return a
	}
	return fallback
}
