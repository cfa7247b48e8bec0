package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vimoda/web3-oauth-api/internal/services"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	healthService *services.HealthService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(healthService *services.HealthService) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// GetHealth returns the basic health status
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetLiveness returns a simple liveness check
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetReadiness reports whether the developer store and at least one ledger
// connection are reachable
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	ctx := c.Request.Context()

	dbCheck := h.healthService.CheckDeveloperStore(ctx)
	ledgerChecks := h.healthService.CheckLedger(ctx)

	statusCode := http.StatusOK
	status := "ready"
	if !h.healthService.IsReady(ctx) {
		statusCode = http.StatusServiceUnavailable
		status = "not ready"
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services": gin.H{
			"mongodb": dbCheck,
			"ledger":  ledgerChecks,
		},
	})
}
