// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package felt

import (
	"encoding/hex"
	"fmt"
)

// EncodeByteArray serializes s as a Cairo ByteArray: the count of full
// 31-byte words, the words, the pending word and its length.
func EncodeByteArray(s string) []string {
	b := []byte(s)
	full := len(b) / MaxShortStringLen
	out := make([]string, 0, full+3)
	out = append(out, Uint64ToHex(uint64(full)))
	for i := 0; i < full; i++ {
		out = append(out, wordHex(b[i*MaxShortStringLen:(i+1)*MaxShortStringLen]))
	}
	pending := b[full*MaxShortStringLen:]
	out = append(out, wordHex(pending), Uint64ToHex(uint64(len(pending))))
	return out
}

// DecodeByteArray is the inverse of EncodeByteArray.
func DecodeByteArray(words []string) (string, error) {
	if len(words) < 3 {
		return "", fmt.Errorf("%w: byte array needs at least 3 words, got %d", ErrInvalidFelt, len(words))
	}
	full, err := ParseUint64(words[0])
	if err != nil {
		return "", err
	}
	if uint64(len(words)) != full+3 {
		return "", fmt.Errorf("%w: byte array declares %d words, got %d", ErrInvalidFelt, full, len(words)-3)
	}

	out := make([]byte, 0, int(full+1)*MaxShortStringLen)
	for i := uint64(1); i <= full; i++ {
		b, err := wordBytes(words[i], MaxShortStringLen)
		if err != nil {
			return "", err
		}
		out = append(out, b...)
	}
	pendingLen, err := ParseUint64(words[full+2])
	if err != nil {
		return "", err
	}
	if pendingLen >= MaxShortStringLen {
		return "", fmt.Errorf("%w: pending word length %d", ErrInvalidFelt, pendingLen)
	}
	b, err := wordBytes(words[full+1], int(pendingLen))
	if err != nil {
		return "", err
	}
	return string(append(out, b...)), nil
}

func wordHex(b []byte) string {
	if len(b) == 0 {
		return "0x0"
	}
	return "0x" + hex.EncodeToString(b)
}

// wordBytes left-pads the felt value to size bytes.
func wordBytes(v string, size int) ([]byte, error) {
	n, err := Parse(v)
	if err != nil {
		return nil, err
	}
	raw := n.Bytes()
	if len(raw) > size {
		return nil, fmt.Errorf("%w: word %q longer than %d bytes", ErrInvalidFelt, v, size)
	}
	out := make([]byte, size)
	copy(out[size-len(raw):], raw)
	return out, nil
}
