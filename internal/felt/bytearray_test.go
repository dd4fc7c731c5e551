// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package felt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeByteArray_Short(t *testing.T) {
	assert.Equal(t, []string{"0x0", "0x616263", "0x3"}, EncodeByteArray("abc"))
	assert.Equal(t, []string{"0x0", "0x0", "0x0"}, EncodeByteArray(""))
}

func TestByteArray_RoundTripAcrossWordBoundary(t *testing.T) {
	for _, s := range []string{"", "a", strings.Repeat("x", 31), strings.Repeat("y", 45), "ipfs://bafy" + strings.Repeat("z", 70)} {
		words := EncodeByteArray(s)
		got, err := DecodeByteArray(words)
		require.NoError(t, err, s)
		assert.Equal(t, s, got)
	}
}

func TestByteArray_FullWordHasOneWordAndEmptyPending(t *testing.T) {
	words := EncodeByteArray(strings.Repeat("x", 31))
	require.Len(t, words, 4)
	assert.Equal(t, "0x1", words[0])
	assert.Equal(t, "0x0", words[3])
}

func TestDecodeByteArray_Malformed(t *testing.T) {
	_, err := DecodeByteArray([]string{"0x1", "0x0"})
	assert.ErrorIs(t, err, ErrInvalidFelt)

	_, err = DecodeByteArray([]string{"0x2", "0x61", "0x0", "0x0"})
	assert.ErrorIs(t, err, ErrInvalidFelt)
}

func TestDecodeByteArray_LeadingZeroBytesInPending(t *testing.T) {
	got, err := DecodeByteArray([]string{"0x0", "0x0041", "0x2"})
	require.NoError(t, err)
	assert.Equal(t, "\x00A", got)
}
