// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package game

import (
	"strings"

	"github.com/ManuGH/lootsurvivor/internal/felt"
)

// DefaultPlayerName is used when no valid name is available.
const DefaultPlayerName = "Adventurer"

// PlayerName trims raw, truncates it to one short string and falls back
// to DefaultPlayerName when the result is empty or cannot be encoded.
func PlayerName(raw string) string {
	name := strings.TrimSpace(raw)
	if len(name) > felt.MaxShortStringLen {
		name = strings.TrimSpace(name[:felt.MaxShortStringLen])
	}
	if name == "" {
		return DefaultPlayerName
	}
	if _, err := felt.EncodeShortString(name); err != nil {
		return DefaultPlayerName
	}
	return name
}

// NameFelt encodes a resolved player name.
func NameFelt(name string) string {
	v, err := felt.EncodeShortString(PlayerName(name))
	if err != nil {
		v, _ = felt.EncodeShortString(DefaultPlayerName)
	}
	return v
}
