// Package service implements the core forwarding logic.
package service

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sidana21/BinaryTradeX/internal/client"
	"github.com/sidana21/BinaryTradeX/internal/config"
	"github.com/sidana21/BinaryTradeX/internal/model"
)

// excludedResponseHeaders are never copied from the backend response to the
// client response. They are hop-by-hop or recomputed by the serving layer;
// copying a stale Content-Length alongside a changed body, or Transfer-Encoding
// when the transport re-chunks, corrupts the response.
var excludedResponseHeaders = map[string]bool{
	"Content-Encoding":  true,
	"Content-Length":    true,
	"Transfer-Encoding": true,
	"Connection":        true,
}

// ForwardService maps every inbound request to an equivalent outbound request
// against the supervised backend. One attempt per request; no retries.
type ForwardService struct {
	client  *client.BackendClient
	cfg     *config.Config
	logger  *slog.Logger
	baseURL *url.URL
}

// NewForwardService creates a ForwardService targeting the configured backend.
func NewForwardService(c *client.BackendClient, cfg *config.Config, logger *slog.Logger) *ForwardService {
	return &ForwardService{
		client: c,
		cfg:    cfg,
		logger: logger.With("component", "forward_service"),
		baseURL: &url.URL{
			Scheme: "http",
			Host:   cfg.Backend.Addr(),
		},
	}
}

// Forward sends a ProxyRequest to the backend and returns the response.
// The caller is responsible for closing the response body.
//
// Method, body and cookies pass through unchanged, and the path and query
// keep their original escaping, including encoded separators and key order.
// The inbound Host header is dropped so the outbound call uses the backend's
// own host. The response keeps the backend's status and headers minus the
// excluded set, with the body relayed byte-for-byte.
func (s *ForwardService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	backendURL := s.buildBackendURL(pr.Path, pr.RawPath, pr.RawQuery)
	header := s.copyRequestHeaders(pr.Header)

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"path", pr.Path,
	)

	resp, err := s.client.DoStream(pr.Ctx, pr.Method, backendURL, header, pr.Body)
	if err != nil {
		return nil, fmt.Errorf("forward to backend: %w", err)
	}

	resp.Header = s.filterResponseHeaders(resp.Header)
	return resp, nil
}

// buildBackendURL composes the outbound URL from the inbound request's parts.
// rawPath and rawQuery are used as-is; re-encoding them would destroy escaped
// separators and reorder query keys.
func (s *ForwardService) buildBackendURL(path, rawPath, rawQuery string) string {
	u := *s.baseURL
	u.Path = path
	u.RawPath = rawPath
	u.RawQuery = rawQuery
	return u.String()
}

// copyRequestHeaders clones the inbound headers minus Host. Cookies ride
// along unchanged in the Cookie header.
func (s *ForwardService) copyRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		if http.CanonicalHeaderKey(key) == "Host" {
			continue
		}
		dst[http.CanonicalHeaderKey(key)] = append([]string(nil), vals...)
	}
	return dst
}

func (s *ForwardService) filterResponseHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		if excludedResponseHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		dst[key] = vals
	}
	return dst
}
