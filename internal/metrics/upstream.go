// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ls_upstream_requests_total",
		Help: "Upstream request attempts by service, method and result",
	}, []string{"service", "method", "result"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ls_upstream_request_duration_seconds",
		Help:    "Upstream request attempt latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "method"})
)

// RecordUpstreamAttempt records one request attempt against the chain node or the indexer.
// result is "ok", "retry" or "error".
func RecordUpstreamAttempt(service, method, result string, seconds float64) {
	upstreamRequests.WithLabelValues(service, labelOrUnknown(method), result).Inc()
	upstreamDuration.WithLabelValues(service, labelOrUnknown(method)).Observe(seconds)
}
