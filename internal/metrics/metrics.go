// Package metrics records per-tool call counters and latencies.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quarry",
			Name:      "tool_call_duration_seconds",
			Help:      "Tool call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"tool", "status"},
	)

	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quarry",
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls",
		},
		[]string{"tool", "status"},
	)

	cacheRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quarry",
			Name:      "namespace_cache_refresh_total",
			Help:      "Namespace cache reads by outcome",
		},
		[]string{"outcome"}, // hit, miss
	)
)

// Register registers all collectors explicitly (no init()).
func Register() {
	prometheus.MustRegister(toolCallDuration)
	prometheus.MustRegister(toolCallsTotal)
	prometheus.MustRegister(cacheRefreshTotal)
}

// ObserveToolCall records one tool invocation.
func ObserveToolCall(tool string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	toolCallDuration.WithLabelValues(tool, status).Observe(time.Since(start).Seconds())
	toolCallsTotal.WithLabelValues(tool, status).Inc()
}

// ObserveCacheRead records a namespace cache read outcome.
func ObserveCacheRead(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	cacheRefreshTotal.WithLabelValues(outcome).Inc()
}
