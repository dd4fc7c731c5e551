// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/lootsurvivor/internal/felt"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
)

var (
	// ErrMalformedPayload is returned for payloads that do not decode into a
	// registration.
	ErrMalformedPayload = errors.New("malformed session payload")
	// ErrSessionExpired is returned when a stored registration is past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidSigner is returned for stored signers that fail to load.
	ErrInvalidSigner = errors.New("invalid session signer")
)

// Registration is the session the identity provider authorized for the
// local signer.
type Registration struct {
	Username        string      `json:"username"`
	Address         string      `json:"address"`
	OwnerGUID       string      `json:"ownerGuid"`
	TransactionHash string      `json:"transactionHash,omitempty"`
	ExpiresAt       json.Number `json:"expiresAt,omitempty"`
	GuardianKeyGUID string      `json:"guardianKeyGuid,omitempty"`
	MetadataHash    string      `json:"metadataHash,omitempty"`
	SessionKeyGUID  string      `json:"sessionKeyGuid,omitempty"`
}

// DecodeRegistration decodes a base64 JSON payload. Standard and URL-safe
// alphabets are accepted, padded or not.
func DecodeRegistration(payload string) (Registration, error) {
	payload = strings.ReplaceAll(strings.TrimSpace(payload), " ", "+")
	if payload == "" {
		return Registration{}, fmt.Errorf("%w: empty", ErrMalformedPayload)
	}

	var raw []byte
	var err error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if raw, err = enc.DecodeString(payload); err == nil {
			break
		}
	}
	if err != nil {
		return Registration{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var reg Registration
	if err := json.Unmarshal(raw, &reg); err != nil {
		return Registration{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if reg.Address == "" {
		return Registration{}, fmt.Errorf("%w: missing address", ErrMalformedPayload)
	}
	if _, err := felt.Parse(reg.Address); err != nil {
		return Registration{}, fmt.Errorf("%w: address: %v", ErrMalformedPayload, err)
	}
	reg.Address = felt.Normalize(reg.Address)
	return reg, nil
}

// Encode returns the payload form of r.
func (r Registration) Encode() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Expired reports whether r is past its expiry at now. Registrations without
// an expiry never expire.
func (r Registration) Expired(now time.Time) bool {
	if r.ExpiresAt == "" {
		return false
	}
	exp, err := r.ExpiresAt.Int64()
	if err != nil {
		return false
	}
	return now.Unix() >= exp
}

// Signer is the local session keypair. It is generated before the browser
// opens and persisted so it survives process death.
type Signer struct {
	PrivateKey string `json:"privKey"`
	PublicKey  string `json:"pubKey"`
}

// GenerateSigner creates a fresh Stark curve keypair. Both keys are felts.
func GenerateSigner() (Signer, error) {
	priv, pub, err := starknet.GenerateStarkKey(nil)
	if err != nil {
		return Signer{}, fmt.Errorf("generate session key: %w", err)
	}
	return Signer{PrivateKey: felt.ToHex(priv), PublicKey: felt.ToHex(pub)}, nil
}

// Validate checks that the public key belongs to the private key.
func (s Signer) Validate() error {
	priv, err := felt.Parse(s.PrivateKey)
	if err != nil {
		return fmt.Errorf("%w: private key", ErrInvalidSigner)
	}
	pub, err := starknet.StarkKey(priv)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSigner, err)
	}
	if got, err := felt.Parse(s.PublicKey); err != nil || got.Cmp(pub) != 0 {
		return fmt.Errorf("%w: public key mismatch", ErrInvalidSigner)
	}
	return nil
}
