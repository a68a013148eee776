package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sidana21/BinaryTradeX/internal/config"
	"github.com/sidana21/BinaryTradeX/internal/metrics"
	"github.com/sidana21/BinaryTradeX/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance. Beyond the
// designated upgrade path and the bridge's own reserved routes, every method
// on every path is forwarded to the backend.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, forward *ForwardHandler, ws *WSHandler, health *HealthHandler, m *metrics.Metrics) {
	e.GET("/proxy/status", health.Status)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(
			promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
		))
	}

	e.Any(cfg.WebSocket.Path, ws.Handle)

	// Hop-by-hop stripping applies only to forwarded routes; the upgrade
	// path needs its Connection header intact for the handshake.
	e.Any("/*", forward.Handle, middleware.StripHopByHop())
}
