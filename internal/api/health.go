package api

import (
	"net/http"
	"time"

	"whatsapp-intake/backend/pkg/health"

	"github.com/gin-gonic/gin"
)

// HealthController exposes the health checker over HTTP
type HealthController struct {
	checker *health.Checker
	started time.Time
	version string
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status     string                       `json:"status"`
	Timestamp  time.Time                    `json:"timestamp"`
	Version    string                       `json:"version"`
	Uptime     string                       `json:"uptime"`
	Components map[string]*health.Component `json:"components"`
}

// NewHealthController creates a new health controller
func NewHealthController(checker *health.Checker, version string) *HealthController {
	return &HealthController{checker: checker, started: time.Now(), version: version}
}

// Health runs every check and answers 200 when all critical components are up
func (h *HealthController) Health(c *gin.Context) {
	report := h.checker.Run(c.Request.Context())

	response := HealthResponse{
		Status:     "ok",
		Timestamp:  report.Timestamp,
		Version:    h.version,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Components: report.Components,
	}

	status := http.StatusOK
	if !report.Healthy {
		response.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response)
}

// RegisterHealthRoutes registers health check related routes
func (h *HealthController) RegisterHealthRoutes(router gin.IRouter) {
	router.GET("/health", h.Health)
}
