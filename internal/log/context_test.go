// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHelpers_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	ctx := ContextWithAttemptID(nil, "a-1")
	assert.Equal(t, "a-1", AttemptIDFromContext(ctx))
	//nolint:staticcheck
	assert.Equal(t, "", TxHashFromContext(nil))
}

func TestWithContext_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := ContextWithAttemptID(context.Background(), "attempt-7")
	ctx = ContextWithTxHash(ctx, "0xabc")

	l := WithContext(ctx, base)
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "attempt-7", entry[FieldAttemptID])
	assert.Equal(t, "0xabc", entry[FieldTxHash])
	_, hasCorrelation := entry[FieldCorrelationID]
	assert.False(t, hasCorrelation)
}

func TestWithContext_NoFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	l := WithContext(context.Background(), base)
	l.Info().Msg("plain")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Len(t, entry, 2) // level + message
}
