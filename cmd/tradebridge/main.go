// Command tradebridge is the front controller: it launches and supervises the
// trading backend process, forwards HTTP traffic to it on an internal port,
// and bridges WebSocket upgrade sessions.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/sidana21/BinaryTradeX/internal/client"
	"github.com/sidana21/BinaryTradeX/internal/config"
	"github.com/sidana21/BinaryTradeX/internal/handler"
	"github.com/sidana21/BinaryTradeX/internal/metrics"
	"github.com/sidana21/BinaryTradeX/internal/middleware"
	"github.com/sidana21/BinaryTradeX/internal/service"
	"github.com/sidana21/BinaryTradeX/internal/supervisor"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("tradebridge"),
		kong.Description("Supervising reverse proxy for the trading backend."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		// The readiness wait alone may take up to backend.ready_timeout_seconds.
		fx.StartTimeout(2*time.Minute),
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			func(b *supervisor.Backend) handler.BackendStatus { return b },
			config.Load,
			newLogger,
			newEcho,
			metrics.New,
			supervisor.NewBackend,
			client.NewBackendClient,
			service.NewForwardService,
			handler.NewForwardHandler,
			handler.NewWSHandler,
			handler.NewHealthHandler,
		),
		fx.Invoke(handler.RegisterRoutes, warnConfigPermissions, startBackend, startServer),
	).Run()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h)
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Inbound timeouts to mitigate slow-client attacks.
	e.Server.ReadTimeout = 30 * time.Second
	// WriteTimeout is disabled (0): upgraded WebSocket sessions and streamed
	// responses live arbitrarily long. Protection comes from the backend
	// client timeout, ReadTimeout, and IdleTimeout.
	e.Server.WriteTimeout = 0
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.MetricsMiddleware(m))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))

	return e
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

// startBackend spawns the backend process and blocks startup on the bounded
// readiness wait. A spawn failure aborts startup (non-zero exit); a readiness
// timeout is only a warning and serving proceeds.
func startBackend(lc fx.Lifecycle, b *supervisor.Backend, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := b.Start(); err != nil {
				return err
			}
			logger.Info("waiting for backend readiness",
				"timeout_seconds", cfg.Backend.ReadyTimeoutSecs,
			)
			if !b.WaitReady() {
				logger.Warn("backend not ready after timeout, serving anyway",
					"timeout_seconds", cfg.Backend.ReadyTimeoutSecs,
				)
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			return b.Stop()
		},
	})
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server",
				"addr", addr,
				"backend_addr", cfg.Backend.Addr(),
			)
			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
