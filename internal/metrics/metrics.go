// Package metrics holds the Prometheus collectors of the server.
//
// A nil *Metrics is valid and records nothing, so components can take an
// optional metrics sink without guarding every call site.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "text_analyzer"

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeToolError = "tool_error"
)

// Metrics groups the server collectors. Create it with New.
type Metrics struct {
	// RPCRequestsTotal counts JSON-RPC requests by method and outcome
	RPCRequestsTotal *prometheus.CounterVec

	// RPCDuration measures JSON-RPC request handling time in seconds
	RPCDuration *prometheus.HistogramVec

	// ToolCallsTotal counts tool invocations by tool and outcome
	ToolCallsTotal *prometheus.CounterVec

	// ToolDuration measures tool execution time in seconds
	ToolDuration *prometheus.HistogramVec

	// HTTPRequestsTotal counts HTTP requests by method and status
	HTTPRequestsTotal *prometheus.CounterVec

	// ActiveSessions tracks initialized sessions currently held in memory
	ActiveSessions prometheus.Gauge

	// RateLimitedTotal counts requests rejected by the rate limiter
	RateLimitedTotal prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RPCRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_requests_total",
				Help:      "Total number of JSON-RPC requests",
			},
			[]string{"method", "outcome"},
		),
		RPCDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_request_duration_seconds",
				Help:      "JSON-RPC request handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ToolCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls",
			},
			[]string{"tool", "outcome"},
		),
		ToolDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Tool call duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"tool"},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		ActiveSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Number of initialized sessions",
			},
		),
		RateLimitedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
		),
	}
}

// ObserveRPC records one handled JSON-RPC request.
func (m *Metrics) ObserveRPC(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RPCRequestsTotal.WithLabelValues(method, outcome).Inc()
	m.RPCDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveToolCall records one tool invocation. Outcome is OutcomeToolError
// when the tool returned an isError result.
func (m *Metrics) ObserveToolCall(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveHTTP records one HTTP request with its final status code.
func (m *Metrics) ObserveHTTP(method string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// SessionOpened and SessionClosed keep ActiveSessions current.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

// RateLimited counts a request rejected with 429.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}
