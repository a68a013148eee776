// Package metrics provides Prometheus metrics for the bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sidana21/BinaryTradeX/internal/config"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Metrics holds all Prometheus metric collectors for the bridge.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	BackendDuration  *prometheus.HistogramVec
	BackendResponses *prometheus.CounterVec
	BackendReady     prometheus.Gauge

	WSSessionsActive prometheus.Gauge
	WSMessagesTotal  *prometheus.CounterVec

	reserved []string
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New(cfg *config.Config) *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,
		reserved: reservedRoutes(cfg),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebridge_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "route"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradebridge_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "route"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebridge_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradebridge_backend_request_duration_seconds",
			Help:    "Backend call latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method"}),

		BackendResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebridge_backend_responses_total",
			Help: "Total backend responses by method and status code.",
		}, []string{"method", "status_code"}),

		BackendReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebridge_backend_ready",
			Help: "Whether the supervised backend has signaled readiness (0 or 1).",
		}),

		WSSessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradebridge_ws_sessions_active",
			Help: "Number of WebSocket bridge sessions currently open.",
		}),

		WSMessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradebridge_ws_messages_total",
			Help: "Total WebSocket messages relayed by direction.",
		}, []string{"direction"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.BackendDuration,
		m.BackendResponses,
		m.BackendReady,
		m.WSSessionsActive,
		m.WSMessagesTotal,
	)

	return m
}

// WS message direction labels.
const (
	DirectionInbound  = "inbound"  // client -> backend
	DirectionOutbound = "outbound" // backend -> client
)

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// reservedRoutes lists the routes the bridge serves itself rather than
// forwarding, as configured.
func reservedRoutes(cfg *config.Config) []string {
	routes := []string{"/proxy/status"}
	if cfg.WebSocket.Path != "" {
		routes = append(routes, cfg.WebSocket.Path)
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Path != "" {
		routes = append(routes, cfg.Metrics.Path)
	}
	return routes
}

// NormalizeRoute returns a bounded route label for Prometheus metrics.
// Every path that is not a reserved route is forwarded to the backend, so all
// such paths collapse into a single "forward" label.
func (m *Metrics) NormalizeRoute(path string) string {
	for _, r := range m.reserved {
		if path == r {
			return r
		}
	}
	return "forward"
}
