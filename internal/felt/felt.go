// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package felt encodes Cairo short strings and field element hex values.
package felt

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// MaxShortStringLen is the number of bytes that fit in one field element.
const MaxShortStringLen = 31

// Prime is the Starknet field modulus, 2^251 + 17*2^192 + 1.
var Prime, _ = new(big.Int).SetString("800000000000011000000000000000000000000000000000000000000000001", 16)

// InField reports whether n is a canonical field element.
func InField(n *big.Int) bool {
	return n != nil && n.Sign() >= 0 && n.Cmp(Prime) < 0
}

var (
	ErrNotASCII    = errors.New("short string must be ASCII")
	ErrTooLong     = errors.New("short string exceeds 31 characters")
	ErrInvalidFelt = errors.New("invalid felt")
)

// EncodeShortString packs an ASCII string of at most 31 bytes into a felt
// hex string. The empty string encodes to "0x0".
func EncodeShortString(s string) (string, error) {
	if s == "" {
		return "0x0", nil
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return "", fmt.Errorf("%w: %q", ErrNotASCII, s)
		}
	}
	if len(s) > MaxShortStringLen {
		return "", fmt.Errorf("%w: %d", ErrTooLong, len(s))
	}
	return "0x" + hex.EncodeToString([]byte(s)), nil
}

// DecodeShortString unpacks a felt hex string produced by EncodeShortString.
// Zero decodes to the empty string.
func DecodeShortString(v string) (string, error) {
	n, err := Parse(v)
	if err != nil {
		return "", err
	}
	if n.Sign() == 0 {
		return "", nil
	}
	return string(n.Bytes()), nil
}

// Parse accepts a 0x-prefixed hex or a decimal felt.
func Parse(v string) (*big.Int, error) {
	s := strings.TrimSpace(v)
	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) == 2 {
			return n, nil
		}
		_, ok = n.SetString(s[2:], 16)
	} else {
		_, ok = n.SetString(s, 10)
	}
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFelt, v)
	}
	return n, nil
}

// ToHex renders n as a minimal 0x-prefixed hex string.
func ToHex(n *big.Int) string {
	if n == nil || n.Sign() == 0 {
		return "0x0"
	}
	return "0x" + n.Text(16)
}

// Uint64ToHex renders v as a minimal 0x-prefixed hex string.
func Uint64ToHex(v uint64) string {
	return ToHex(new(big.Int).SetUint64(v))
}

// ParseUint64 parses a felt that is expected to fit in 64 bits.
func ParseUint64(v string) (uint64, error) {
	n, err := Parse(v)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: %q overflows uint64", ErrInvalidFelt, v)
	}
	return n.Uint64(), nil
}

// Normalize lowercases and strips leading zeros so that addresses compare equal.
func Normalize(addr string) string {
	n, err := Parse(addr)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(addr))
	}
	return ToHex(n)
}
