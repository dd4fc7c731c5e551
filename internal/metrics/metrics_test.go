// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getCounterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, vec.WithLabelValues(labels...).Write(metric))
	return metric.GetCounter().GetValue()
}

func TestIncBusDropReason_NormalizesEmptyLabels(t *testing.T) {
	before := getCounterVecValue(t, BusDroppedTotal, "unknown", "unknown")
	IncBusDropReason("", "")
	assert.Equal(t, before+1, getCounterVecValue(t, BusDroppedTotal, "unknown", "unknown"))
}

func TestRecordConfirmation(t *testing.T) {
	before := getCounterVecValue(t, confirmationOutcomes, "pre_confirmed", OutcomeExhausted)
	RecordConfirmation("pre_confirmed", OutcomeExhausted, 6)
	assert.Equal(t, before+1, getCounterVecValue(t, confirmationOutcomes, "pre_confirmed", OutcomeExhausted))
}

func TestTransactionCounters_UnknownEntrypoint(t *testing.T) {
	before := getCounterVecValue(t, transactionsReverted, "unknown")
	IncTransactionReverted("")
	assert.Equal(t, before+1, getCounterVecValue(t, transactionsReverted, "unknown"))
}

func TestSetCircuitBreakerState_OneHot(t *testing.T) {
	SetCircuitBreakerState("torii", "open")

	for _, s := range breakerStates {
		metric := &dto.Metric{}
		require.NoError(t, breakerState.WithLabelValues("torii", s).Write(metric))
		want := 0.0
		if s == "open" {
			want = 1.0
		}
		assert.Equal(t, want, metric.GetGauge().GetValue(), s)
	}
}

func TestRecordCircuitBreakerTrip_EmptyReason(t *testing.T) {
	before := getCounterVecValue(t, breakerTrips, "starknet", "unknown")
	RecordCircuitBreakerTrip("starknet", "")
	assert.Equal(t, before+1, getCounterVecValue(t, breakerTrips, "starknet", "unknown"))
}

func TestPromhttpExposure(t *testing.T) {
	IncDeepLink("logout")

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), "ls_deeplinks_total"))
}

func TestRecordUpstreamAttempt(t *testing.T) {
	before := getCounterVecValue(t, upstreamRequests, "starknet", "starknet_call", "retry")
	RecordUpstreamAttempt("starknet", "starknet_call", "retry", 0.01)
	assert.Equal(t, before+1, getCounterVecValue(t, upstreamRequests, "starknet", "starknet_call", "retry"))
}
