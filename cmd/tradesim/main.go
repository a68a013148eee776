// Command tradesim is the simulated trading backend supervised by
// tradebridge. It serves the trading REST surface with generated data and a
// WebSocket price-tick stream, and prints the readiness phrase once its
// listener is bound.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/sidana21/BinaryTradeX/internal/sim"
)

// CLI holds command-line arguments parsed by Kong. The supervisor hands the
// internal port down via the PORT environment variable.
type CLI struct {
	Host           string  `kong:"help='Listen host.',default='127.0.0.1',env='HOST'"`
	Port           int     `kong:"short='p',help='Listen port.',default='5001',env='PORT'"`
	TicksPerSecond float64 `kong:"help='Price ticks per second on the WebSocket stream.',default='2',env='TICKS_PER_SECOND'"`
	LogLevel       string  `kong:"help='Log level: debug|info|warn|error.',default='info',env='LOG_LEVEL'"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("tradesim"),
		kong.Description("Simulated trading backend."),
	)

	level := slog.LevelInfo
	switch strings.ToLower(cli.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())

	ticker := sim.NewTicker(logger, cli.TicksPerSecond)
	sim.RegisterRoutes(e, sim.NewHandler(logger, ticker))

	addr := fmt.Sprintf("%s:%d", cli.Host, cli.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("bind failed", "addr", addr, "err", err)
		os.Exit(1)
	}

	// The supervisor watches for this exact phrase on stdout.
	fmt.Printf("tradesim serving on port %d\n", cli.Port)

	go func() {
		if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
