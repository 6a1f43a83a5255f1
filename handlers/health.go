package handlers

import (
	"net/http"
	"time"

	"sonora/config"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HealthCheck returns the health status of the service.
// A second instance checks this to recognize the primary.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   config.AppName,
		"version":   config.Version,
		"timestamp": time.Now().Unix(),
	})
}
