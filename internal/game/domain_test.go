// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package game

import (
	"strings"
	"testing"

	"github.com/ManuGH/lootsurvivor/internal/felt"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Sir Loot  ", "Sir Loot"},
		{"", DefaultPlayerName},
		{"   ", DefaultPlayerName},
		{strings.Repeat("a", 40), strings.Repeat("a", 31)},
		{"Zoë", DefaultPlayerName},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlayerName(tt.in), "input %q", tt.in)
	}
}

func TestNameFelt(t *testing.T) {
	got, err := felt.DecodeShortString(NameFelt(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultPlayerName, got)
}

func TestBeastNames(t *testing.T) {
	assert.Equal(t, uint8(18), PrefixID("Demon"))
	assert.Equal(t, uint8(6), SuffixID("Grasp"))
	assert.Equal(t, "Shimmering", PrefixName(69))
	assert.Equal(t, "Moon", SuffixName(18))
	assert.Equal(t, "", PrefixName(200))
	assert.Zero(t, PrefixID(""))
}

func TestIsJackpot(t *testing.T) {
	assert.True(t, IsJackpot(Beast{ID: 29, SpecialPrefix: "Demon", SpecialSuffix: "Grasp"}))
	assert.True(t, IsJackpot(Beast{ID: 1, SpecialPrefix: "Pain", SpecialSuffix: "Whisper"}))
	assert.True(t, IsJackpot(Beast{ID: 53, SpecialPrefix: "Torment", SpecialSuffix: "Bane"}))
	assert.False(t, IsJackpot(Beast{ID: 29, SpecialPrefix: "Demon", SpecialSuffix: "Bane"}))
}

func metadataEvent(tokenHex string) starknet.Event {
	data := make([]string, 14)
	for i := range data {
		data[i] = "0x0"
	}
	data[1] = tokenHex
	return starknet.Event{Data: data}
}

func TestMintedTokenID(t *testing.T) {
	r := &starknet.Receipt{Events: []starknet.Event{
		{Data: []string{"0x1", "0x2"}},
		metadataEvent("0x2a"),
		metadataEvent("0x2b"),
	}}
	id, err := MintedTokenID(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	ids, err := MintedTokenIDs(r)
	require.NoError(t, err)
	assert.Equal(t, []uint64{42, 43}, ids)

	_, err = MintedTokenID(&starknet.Receipt{})
	assert.ErrorIs(t, err, ErrTokenEventMissing)
}

func TestClaimedBeastTokenID(t *testing.T) {
	r := &starknet.Receipt{Events: []starknet.Event{
		{Data: []string{"0x0"}},
		{Data: []string{"0x0", "0x0", "0x10"}},
		{Data: []string{"0x0"}},
	}}
	id, err := ClaimedBeastTokenID(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), id)

	_, err = ClaimedBeastTokenID(&starknet.Receipt{Events: []starknet.Event{{}}})
	assert.ErrorIs(t, err, ErrTokenEventMissing)
}
