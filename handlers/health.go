package handlers

import (
	"net/http"

	"teemarker/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the last dependency probe. It answers 503 when a
// dependency was down.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	code, state := http.StatusOK, "ok"
	if !status.CheckedAt.IsZero() && !status.Healthy() {
		code, state = http.StatusServiceUnavailable, "degraded"
	}
	c.JSON(code, gin.H{"status": state, "message": "Hi, I'm Teemarker", "dependencies": status})
}
