// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ls_login_total",
		Help: "Login attempts by provider kind and outcome",
	}, []string{"provider", "outcome"})

	deepLinksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ls_deeplinks_total",
		Help: "Deep links received by kind (registration, logout, empty, unparsed)",
	}, []string{"kind"})

	storageSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ls_session_storage_sweeps_total",
		Help: "Total number of session storage sweeps",
	})

	sessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ls_session_transitions_total",
		Help: "Session handshake state transitions",
	}, []string{"from", "to"})
)

// RecordLogin records the outcome of a login attempt.
func RecordLogin(provider, outcome string) {
	loginOutcomes.WithLabelValues(labelOrUnknown(provider), labelOrUnknown(outcome)).Inc()
}

// IncDeepLink counts a received deep link.
func IncDeepLink(kind string) {
	deepLinksReceived.WithLabelValues(labelOrUnknown(kind)).Inc()
}

// IncStorageSweep counts a session storage sweep.
func IncStorageSweep() {
	storageSweeps.Inc()
}

// RecordSessionTransition counts a handshake state change.
func RecordSessionTransition(from, to string) {
	sessionTransitions.WithLabelValues(labelOrUnknown(from), labelOrUnknown(to)).Inc()
}
