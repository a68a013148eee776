package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sidana21/BinaryTradeX/internal/config"
	"github.com/sidana21/BinaryTradeX/internal/metrics"
)

// WSHandler bridges WebSocket sessions between external clients and the
// backend. Each session pairs one inbound upgraded connection with one
// outbound connection to the backend's WebSocket endpoint and relays
// messages opaquely in both directions until either side closes.
type WSHandler struct {
	logger     *slog.Logger
	metrics    *metrics.Metrics
	upgrader   websocket.Upgrader
	dialer     *websocket.Dialer
	backendURL string
}

// NewWSHandler creates a WSHandler targeting the configured backend endpoint.
// The metrics parameter is optional; pass nil to disable session metrics.
func NewWSHandler(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *WSHandler {
	u := url.URL{
		Scheme: "ws",
		Host:   cfg.Backend.Addr(),
		Path:   cfg.WebSocket.BackendPath,
	}

	return &WSHandler{
		logger:  logger.With("component", "ws_bridge"),
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The bridge relays for arbitrary clients; origin policy is
			// the backend's concern.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: time.Duration(cfg.WebSocket.HandshakeTimeoutSecs) * time.Second,
		},
		backendURL: u.String(),
	}
}

// Handle serves the designated upgrade path. Non-upgrade requests get 426
// with an Upgrade header naming the expected protocol.
func (h *WSHandler) Handle(c echo.Context) error {
	req := c.Request()

	if !websocket.IsWebSocketUpgrade(req) {
		c.Response().Header().Set("Upgrade", "websocket")
		return c.String(http.StatusUpgradeRequired, "WebSocket upgrade required")
	}

	inbound, err := h.upgrader.Upgrade(c.Response(), req, nil)
	if err != nil {
		// Upgrade writes its own error response.
		h.logger.Warn("websocket upgrade failed", "err", err)
		return nil
	}
	defer func() { _ = inbound.Close() }()

	outbound, resp, err := h.dialer.Dial(h.backendURL, nil)
	if err != nil {
		// The inbound handshake already completed, so there is no response
		// to send; closing the inbound connection ends the session.
		h.logger.Error("dial backend websocket", "url", h.backendURL, "err", err)
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil
	}
	defer func() { _ = outbound.Close() }()

	if h.metrics != nil {
		h.metrics.WSSessionsActive.Inc()
		defer h.metrics.WSSessionsActive.Dec()
	}
	h.logger.Debug("websocket session opened", "remote", req.RemoteAddr)

	done := make(chan struct{}, 2)
	go h.pump(inbound, outbound, metrics.DirectionInbound, done)
	go h.pump(outbound, inbound, metrics.DirectionOutbound, done)

	// The session is over when either loop exits. Force-close both
	// connections so the surviving loop's read fails promptly, then wait
	// for it. Closing a connection already closed by its peer is harmless.
	<-done
	_ = inbound.Close()
	_ = outbound.Close()
	<-done

	h.logger.Debug("websocket session closed", "remote", req.RemoteAddr)
	return nil
}

// pump relays messages from src to dst until a receive or send fails.
// Teardown is a normal, expected event, not an error to surface; message
// payloads and boundaries pass through untouched.
func (h *WSHandler) pump(src, dst *websocket.Conn, direction string, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	for {
		msgType, msg, err := src.ReadMessage()
		if err != nil {
			return
		}
		if err := dst.WriteMessage(msgType, msg); err != nil {
			return
		}
		if h.metrics != nil {
			h.metrics.WSMessagesTotal.WithLabelValues(direction).Inc()
		}
	}
}
