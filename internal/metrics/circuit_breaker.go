// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ls_upstream_breaker_state",
		Help: "Upstream circuit breaker state (1 for the active state)",
	}, []string{"upstream", "state"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ls_upstream_breaker_trips_total",
		Help: "Upstream circuit breaker transitions to open",
	}, []string{"upstream", "reason"})
)

// breakerStates mirrors resilience.State.
var breakerStates = [...]string{"closed", "half-open", "open"}

// SetCircuitBreakerState marks state as the active breaker state of upstream.
func SetCircuitBreakerState(upstream, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		breakerState.WithLabelValues(upstream, s).Set(v)
	}
}

// RecordCircuitBreakerTrip counts a transition to open.
func RecordCircuitBreakerTrip(upstream, reason string) {
	breakerTrips.WithLabelValues(upstream, labelOrUnknown(reason)).Inc()
}
