// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/ManuGH/lootsurvivor/internal/felt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRegistration(t *testing.T) {
	raw := `{"username":"alice","address":"0x0ABC","ownerGuid":"0x1","expiresAt":"1900000000"}`

	for name, payload := range map[string]string{
		"std":          base64.StdEncoding.EncodeToString([]byte(raw)),
		"raw std":      base64.RawStdEncoding.EncodeToString([]byte(raw)),
		"url":          base64.URLEncoding.EncodeToString([]byte(raw)),
		"raw url":      base64.RawURLEncoding.EncodeToString([]byte(raw)),
		"padded space": " " + base64.StdEncoding.EncodeToString([]byte(raw)) + "\n",
	} {
		t.Run(name, func(t *testing.T) {
			reg, err := DecodeRegistration(payload)
			require.NoError(t, err)
			assert.Equal(t, "alice", reg.Username)
			assert.Equal(t, "0xabc", reg.Address)
			assert.Equal(t, "0x1", reg.OwnerGUID)
		})
	}
}

func TestDecodeRegistration_NumericExpiry(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte(`{"username":"bob","address":"0x2","expiresAt":1000}`))
	reg, err := DecodeRegistration(payload)
	require.NoError(t, err)
	assert.True(t, reg.Expired(time.Unix(1000, 0)))
	assert.False(t, reg.Expired(time.Unix(999, 0)))
}

func TestDecodeRegistration_Malformed(t *testing.T) {
	for name, payload := range map[string]string{
		"empty":       "",
		"not base64":  "%%%",
		"not json":    base64.StdEncoding.EncodeToString([]byte("hello")),
		"no address":  base64.StdEncoding.EncodeToString([]byte(`{"username":"x"}`)),
		"bad address": base64.StdEncoding.EncodeToString([]byte(`{"address":"zz"}`)),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRegistration(payload)
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestRegistration_EncodeRoundTrip(t *testing.T) {
	in := Registration{Username: "carol", Address: "0x3", ExpiresAt: "42"}
	payload, err := in.Encode()
	require.NoError(t, err)
	out, err := DecodeRegistration(payload)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRegistration_NoExpiryNeverExpires(t *testing.T) {
	assert.False(t, Registration{}.Expired(time.Now()))
}

func TestGenerateSigner(t *testing.T) {
	a, err := GenerateSigner()
	require.NoError(t, err)
	b, err := GenerateSigner()
	require.NoError(t, err)

	require.NoError(t, a.Validate())
	assert.NotEqual(t, a.PrivateKey, b.PrivateKey)

	pub, err := felt.Parse(a.PublicKey)
	require.NoError(t, err)
	assert.True(t, felt.InField(pub), "public key %s is not a felt", a.PublicKey)
	assert.Equal(t, felt.Normalize(a.PublicKey), a.PublicKey)

	tampered := a
	tampered.PublicKey = b.PublicKey
	assert.ErrorIs(t, tampered.Validate(), ErrInvalidSigner)
	assert.ErrorIs(t, Signer{PrivateKey: "0x0"}.Validate(), ErrInvalidSigner)
	assert.ErrorIs(t, Signer{PrivateKey: "zz"}.Validate(), ErrInvalidSigner)
	assert.ErrorIs(t, Signer{PrivateKey: "0x12", PublicKey: "0x12"}.Validate(), ErrInvalidSigner)
}
