package handlers

import (
	"net/http"

	"courtcal/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the last dependency snapshot; 503 when something is down.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.CheckedAt.IsZero() && !status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "message": "Hi, I'm courtcal"})
}
