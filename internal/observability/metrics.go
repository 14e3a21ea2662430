package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the gateway's Prometheus metrics set, grounded on the
// teacher's observability.Metrics (promauto-registered Counter/Gauge/
// HistogramVec fields), scaled to what the chat orchestration core
// exercises: turns, polls, think-tool calls, and JSON-RPC errors.
type Metrics struct {
	// ChatTurns counts orchestrator turns by outcome (continue|done|max_turns|error).
	ChatTurns *prometheus.CounterVec

	// PollAttempts counts Response Poller retrieve() calls by outcome (terminal|non_terminal|error|semaphore_timeout).
	PollAttempts *prometheus.CounterVec

	// PollSemaphoreInUse gauges the poll-concurrency semaphore's current occupancy.
	PollSemaphoreInUse prometheus.Gauge

	// ThinkCalls counts think-tool results by outcome (ok|error), one per
	// ThinkLogEntry; a dispatch that fails in transport records no entry.
	ThinkCalls *prometheus.CounterVec

	// RPCErrors counts JSON-RPC level errors by code.
	RPCErrors *prometheus.CounterVec
}

// NewMetrics registers the gateway's metrics against reg. Pass
// prometheus.DefaultRegisterer in production; tests should pass a fresh
// prometheus.NewRegistry() to avoid duplicate-registration panics across
// test cases in the same process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChatTurns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpgw_chat_turns_total",
			Help: "Chat orchestrator turns by outcome.",
		}, []string{"outcome"}),
		PollAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpgw_poll_attempts_total",
			Help: "Response Poller retrieve() attempts by outcome.",
		}, []string{"outcome"}),
		PollSemaphoreInUse: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mcpgw_poll_semaphore_in_use",
			Help: "Current occupancy of the poll-concurrency semaphore.",
		}),
		ThinkCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpgw_think_calls_total",
			Help: "Think-tool dispatches by outcome.",
		}, []string{"outcome"}),
		RPCErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpgw_rpc_errors_total",
			Help: "JSON-RPC level errors by code.",
		}, []string{"code"}),
	}
}
