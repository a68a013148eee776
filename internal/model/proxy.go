// Package model defines shared types for the bridge.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest represents a client request to be forwarded to the backend.
// RawPath and RawQuery carry the original escaped forms so the outbound call
// reproduces the inbound request line byte-for-byte; RawPath is empty when
// the default escaping of Path is already the original form.
type ProxyRequest struct {
	Ctx      context.Context
	Method   string
	Path     string
	RawPath  string
	RawQuery string
	Header   http.Header
	Body     io.ReadCloser
}

// ProxyResponse represents the backend response to be streamed back.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
