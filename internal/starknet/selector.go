// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package starknet

import (
	"math/big"

	"github.com/ManuGH/lootsurvivor/internal/felt"
	"golang.org/x/crypto/sha3"
)

var selectorMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1))

// Selector returns the entry point selector for name: keccak256 truncated to 250 bits.
func Selector(name string) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(name))
	n := new(big.Int).SetBytes(h.Sum(nil))
	return felt.ToHex(n.And(n, selectorMask))
}
