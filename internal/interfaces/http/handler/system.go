package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verticore/backend/internal/interfaces/http/dto"
)

// SystemHandler handles health and system information endpoints
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	checks    []ReadinessCheck
}

// ReadinessCheck probes one dependency of the service
type ReadinessCheck struct {
	Name  string
	Probe func() error
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(checks ...ReadinessCheck) *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
		checks:    checks,
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/info", h.GetSystemInfo)
		system.GET("/health", h.Health)
		system.GET("/ready", h.Ready)
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns basic system information including version and uptime
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      "Verticore API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Health reports process liveness
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{"status": "ok", "timestamp": time.Now().Format(time.RFC3339)})
}

// Ready reports whether all dependencies are reachable
func (h *SystemHandler) Ready(c *gin.Context) {
	status := make(map[string]string, len(h.checks))
	ready := true
	for _, check := range h.checks {
		if err := check.Probe(); err != nil {
			status[check.Name] = err.Error()
			ready = false
			continue
		}
		status[check.Name] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse("ERR_NOT_READY", "One or more dependencies are unavailable"))
		return
	}
	h.Success(c, status)
}
