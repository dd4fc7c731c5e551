// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package starknet

import (
	"context"
	"fmt"

	"github.com/ManuGH/lootsurvivor/internal/felt"
)

// TokenURI reads the metadata URI of an ERC-721 token. The token id is
// passed as a u256 (low, high).
func (c *Client) TokenURI(ctx context.Context, contract string, tokenID uint64) (string, error) {
	out, err := c.Call(ctx, Call{
		ContractAddress: contract,
		Entrypoint:      "token_uri",
		Calldata:        []string{felt.Uint64ToHex(tokenID), "0x0"},
	})
	if err != nil {
		return "", err
	}
	uri, err := felt.DecodeByteArray(out)
	if err != nil {
		return "", fmt.Errorf("token %d uri: %w", tokenID, err)
	}
	return uri, nil
}
