// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package game

import (
	"errors"
	"fmt"

	"github.com/ManuGH/lootsurvivor/internal/felt"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
)

// ErrTokenEventMissing is returned when a receipt lacks the event carrying a token id.
var ErrTokenEventMissing = errors.New("token event missing from receipt")

// tokenMetadataWords is the data length of the token metadata event emitted on mint.
const tokenMetadataWords = 14

// MintedTokenID returns the game token id from the metadata event of a
// buy_game or mint_game receipt.
func MintedTokenID(r *starknet.Receipt) (uint64, error) {
	if r != nil {
		for _, ev := range r.Events {
			if len(ev.Data) == tokenMetadataWords {
				return felt.ParseUint64(ev.Data[1])
			}
		}
	}
	return 0, ErrTokenEventMissing
}

// MintedTokenIDs returns the token id of every metadata event in order.
func MintedTokenIDs(r *starknet.Receipt) ([]uint64, error) {
	var ids []uint64
	if r == nil {
		return nil, ErrTokenEventMissing
	}
	for _, ev := range r.Events {
		if len(ev.Data) != tokenMetadataWords {
			continue
		}
		id, err := felt.ParseUint64(ev.Data[1])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, ErrTokenEventMissing
	}
	return ids, nil
}

// ClaimedBeastTokenID returns the beast token id of a claim_beast receipt:
// the third data word of the second to last event.
func ClaimedBeastTokenID(r *starknet.Receipt) (uint64, error) {
	if r == nil || len(r.Events) < 2 {
		return 0, ErrTokenEventMissing
	}
	ev := r.Events[len(r.Events)-2]
	if len(ev.Data) < 3 {
		return 0, fmt.Errorf("%w: claim event has %d data words", ErrTokenEventMissing, len(ev.Data))
	}
	return felt.ParseUint64(ev.Data[2])
}
