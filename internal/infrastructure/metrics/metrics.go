// Package metrics registers the process-wide Prometheus collectors for
// the session server: one package-level init(), package-level vars,
// small Record* helper functions instead of scattering label logic at
// call sites.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestsTotal counts MCP surface requests (list_functions,
	// get_function_details, execute).
	RequestsTotal *prometheus.CounterVec

	// ExecutionsTotal counts sandbox executions by outcome.
	ExecutionsTotal *prometheus.CounterVec

	// ExecutionDuration observes wall-clock sandbox execution time.
	ExecutionDuration *prometheus.HistogramVec

	// ToolDispatchTotal counts host-op dispatches (MCP tool calls and
	// callback invocations) from inside the sandbox.
	ToolDispatchTotal *prometheus.CounterVec

	// CircuitBreakerState gauges an MCP connection's breaker state:
	// 0=closed, 0.5=half-open, 1=open.
	CircuitBreakerState *prometheus.GaugeVec

	// BridgeSessions gauges the number of live /local-tools websocket
	// sessions.
	BridgeSessions prometheus.Gauge
)

func init() {
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "codemode",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total number of MCP surface requests",
		},
		[]string{"method", "status"},
	)

	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "codemode",
			Subsystem: "sandbox",
			Name:      "executions_total",
			Help:      "Total number of sandbox executions",
		},
		[]string{"outcome"},
	)

	ExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "codemode",
			Subsystem: "sandbox",
			Name:      "execution_duration_seconds",
			Help:      "Sandbox execution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	ToolDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "codemode",
			Subsystem: "dispatch",
			Name:      "tool_calls_total",
			Help:      "Total host-op dispatches from inside the sandbox",
		},
		[]string{"kind", "target", "status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "codemode",
			Subsystem: "mcp",
			Name:      "circuit_breaker_state",
			Help:      "MCP connection circuit breaker state (0=closed, 0.5=half-open, 1=open)",
		},
		[]string{"server"},
	)

	BridgeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "codemode",
		Subsystem: "bridge",
		Name:      "sessions",
		Help:      "Number of live local-tools bridge sessions",
	})

	prometheus.MustRegister(
		RequestsTotal,
		ExecutionsTotal,
		ExecutionDuration,
		ToolDispatchTotal,
		CircuitBreakerState,
		BridgeSessions,
	)
}

// RecordRequest records one MCP surface request.
func RecordRequest(method, status string) {
	RequestsTotal.WithLabelValues(method, status).Inc()
}

// RecordExecution records one sandbox execution's outcome and duration.
func RecordExecution(outcome string, durationSec float64) {
	ExecutionsTotal.WithLabelValues(outcome).Inc()
	ExecutionDuration.WithLabelValues(outcome).Observe(durationSec)
}

// RecordToolDispatch records one host-op dispatch from the sandbox.
func RecordToolDispatch(kind, target, status string) {
	ToolDispatchTotal.WithLabelValues(kind, target, status).Inc()
}

// SetCircuitBreakerState sets the gauge for one MCP connection.
func SetCircuitBreakerState(server, state string) {
	var val float64
	switch state {
	case "closed":
		val = 0.0
	case "half-open":
		val = 0.5
	case "open":
		val = 1.0
	}
	CircuitBreakerState.WithLabelValues(server).Set(val)
}
