package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sidana21/BinaryTradeX/internal/model"
	"github.com/sidana21/BinaryTradeX/internal/service"
)

// ForwardHandler relays requests to the supervised backend.
type ForwardHandler struct {
	service *service.ForwardService
	logger  *slog.Logger
}

// NewForwardHandler creates a ForwardHandler.
func NewForwardHandler(svc *service.ForwardService, logger *slog.Logger) *ForwardHandler {
	return &ForwardHandler{
		service: svc,
		logger:  logger.With("component", "forward_handler"),
	}
}

// Handle forwards the request to the backend and streams the response back.
// Any transport-level failure reaching the backend surfaces as a fixed 502
// with a short diagnostic body; the failure never affects other requests.
func (h *ForwardHandler) Handle(c echo.Context) error {
	req := c.Request()

	pr := &model.ProxyRequest{
		Ctx:      req.Context(),
		Method:   req.Method,
		Path:     req.URL.Path,
		RawPath:  req.URL.RawPath,
		RawQuery: req.URL.RawQuery,
		Header:   req.Header,
		Body:     req.Body,
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		h.logger.Error("forwarding failed",
			"err", err,
			"method", req.Method,
			"path", req.URL.Path,
		)
		return c.String(http.StatusBadGateway, "Proxy error: "+err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	// Copy filtered response headers
	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// The status line is already on the wire, so a copy failure can only
	// truncate the body. Log it; there is nothing else to send.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}
