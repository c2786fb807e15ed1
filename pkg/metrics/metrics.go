// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LLMCompletionDuration tracks completion request duration.
	LLMCompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "LLM completion request duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// SessionsActive tracks live dialogue sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dialogue_sessions_active",
			Help: "Number of live dialogue sessions",
		},
	)

	// TurnsTotal tracks dialogue turns by outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_turns_total",
			Help: "Total dialogue turns",
		},
		[]string{"outcome"},
	)

	// ToolCallsTotal tracks dispatched tool calls.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_calls_total",
			Help: "Total tool calls dispatched",
		},
		[]string{"tool", "status"},
	)

	// SearchesTotal tracks restaurant searches by status.
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_searches_total",
			Help: "Total restaurant searches",
		},
		[]string{"status"},
	)

	// ReservationsTotal tracks reservation attempts by outcome.
	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_total",
			Help: "Total reservation attempts",
		},
		[]string{"outcome"},
	)

	// OrdersCommitted tracks the size of the order table.
	OrdersCommitted = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orders_committed",
			Help: "Number of committed orders",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCompletion records metrics for an LLM completion.
func RecordCompletion(provider, model, status string, duration float64, tokensIn, tokensOut int) {
	LLMCompletionDuration.WithLabelValues(provider, status).Observe(duration)
	if model == "" {
		return
	}
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordTurn records the outcome of a dialogue turn.
func RecordTurn(outcome string) {
	TurnsTotal.WithLabelValues(outcome).Inc()
}

// RecordToolCall records a dispatched tool call.
func RecordToolCall(tool, status string) {
	ToolCallsTotal.WithLabelValues(tool, status).Inc()
}

// RecordReservation records a reservation attempt outcome.
func RecordReservation(outcome string) {
	ReservationsTotal.WithLabelValues(outcome).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
