package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sidana21/BinaryTradeX/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// BackendStatus is the view of the supervised backend the status endpoint needs.
type BackendStatus interface {
	Ready() bool
	Exited() <-chan struct{}
	ExitErr() error
}

// HealthHandler serves the bridge's own status endpoint.
type HealthHandler struct {
	cfg     *config.Config
	version Version
	backend BackendStatus
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version, backend BackendStatus) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, backend: backend}
}

// Status returns bridge status information, including the supervised
// backend's readiness and liveness.
func (h *HealthHandler) Status(c echo.Context) error {
	running := true
	select {
	case <-h.backend.Exited():
		running = false
	default:
	}

	body := map[string]any{
		"status":          "ok",
		"version":         string(h.version),
		"backend_addr":    h.cfg.Backend.Addr(),
		"backend_ready":   h.backend.Ready(),
		"backend_running": running,
	}
	if err := h.backend.ExitErr(); err != nil {
		body["backend_exit_error"] = err.Error()
	}

	return c.JSON(http.StatusOK, body)
}
