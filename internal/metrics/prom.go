package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	externalCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simplechat_external_calls_total",
		Help: "Calls made to the external chat or image API, by provider, kind and outcome.",
	}, []string{"provider", "kind", "outcome"})

	externalLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simplechat_external_call_seconds",
		Help:    "Latency of calls to the external chat or image API.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"provider", "kind"})

	toolDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simplechat_tool_dispatches_total",
		Help: "Tool dispatches by tool name and outcome.",
	}, []string{"tool", "outcome"})

	responses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simplechat_responses_total",
		Help: "Responses returned to callers, by operation and success.",
	}, []string{"operation", "outcome"})
)

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// ObserveExternalCall records one call to the external API started at start.
func ObserveExternalCall(provider, kind string, start time.Time, err error) {
	externalCalls.WithLabelValues(provider, kind, outcome(err)).Inc()
	externalLatency.WithLabelValues(provider, kind).Observe(time.Since(start).Seconds())
}

// ObserveToolDispatch records one tool dispatch.
func ObserveToolDispatch(tool string, err error) {
	toolDispatches.WithLabelValues(tool, outcome(err)).Inc()
}

// ObserveResponse records a response handed back to a caller.
func ObserveResponse(operation string, success bool) {
	o := OutcomeOK
	if !success {
		o = OutcomeError
	}
	responses.WithLabelValues(operation, o).Inc()
}
