// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by the confirmation and reconciliation counters.
const (
	OutcomeConfirmed = "confirmed"
	OutcomeReverted  = "reverted"
	OutcomeExhausted = "exhausted"
	OutcomeCanceled  = "canceled"
	OutcomeError     = "error"
	OutcomeSkipped   = "skipped"
)

var (
	transactionsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ls_transactions_submitted_total",
		Help: "Total number of multicall transactions submitted, by leading entrypoint",
	}, []string{"entrypoint"})

	transactionsReverted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ls_transactions_reverted_total",
		Help: "Total number of transactions whose execution reverted",
	}, []string{"entrypoint"})

	confirmationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ls_confirmation_wait_total",
		Help: "Confirmation waits by finality target and outcome",
	}, []string{"target", "outcome"})

	confirmationAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ls_confirmation_attempts",
		Help:    "Number of status reads needed before a confirmation wait finished",
		Buckets: []float64{1, 2, 3, 4, 6, 8, 10, 12},
	}, []string{"target"})

	reconciliationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ls_reconciliation_total",
		Help: "Indexer reconciliation waits by outcome",
	}, []string{"outcome"})

	actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ls_action_duration_seconds",
		Help:    "Wall time of a complete action round trip",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
	}, []string{"outcome"})
)

// IncTransactionSubmitted counts a submitted multicall.
func IncTransactionSubmitted(entrypoint string) {
	transactionsSubmitted.WithLabelValues(labelOrUnknown(entrypoint)).Inc()
}

// IncTransactionReverted counts a reverted multicall.
func IncTransactionReverted(entrypoint string) {
	transactionsReverted.WithLabelValues(labelOrUnknown(entrypoint)).Inc()
}

// RecordConfirmation records how a confirmation wait for the given target ended.
func RecordConfirmation(target, outcome string, attempts int) {
	target = labelOrUnknown(target)
	confirmationOutcomes.WithLabelValues(target, labelOrUnknown(outcome)).Inc()
	if attempts > 0 {
		confirmationAttempts.WithLabelValues(target).Observe(float64(attempts))
	}
}

// RecordReconciliation records the result of an indexer reconciliation wait.
func RecordReconciliation(outcome string) {
	reconciliationOutcomes.WithLabelValues(labelOrUnknown(outcome)).Inc()
}

// ObserveActionDuration records the duration of an action in seconds.
func ObserveActionDuration(outcome string, seconds float64) {
	actionDuration.WithLabelValues(labelOrUnknown(outcome)).Observe(seconds)
}

func labelOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
