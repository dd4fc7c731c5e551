// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/lootsurvivor/internal/config"
	"github.com/ManuGH/lootsurvivor/internal/kvstore"
	"github.com/ManuGH/lootsurvivor/internal/metrics"
)

// Durable keys shared with the identity library.
const (
	KeySession       = "session"
	KeySigner        = "sessionSigner"
	KeyPolicies      = "sessionPolicies"
	KeyLastConnector = "lastUsedConnector"
	KeyTermsAccepted = "termsOfServiceAccepted"
)

var namedSessionKeys = []string{KeySession, KeySigner, KeyPolicies, KeyLastConnector}

// IsSessionKey reports whether key is session material that a logout sweeps.
// The identity library writes undocumented keys, so anything mentioning the
// library is swept too.
func IsSessionKey(key string) bool {
	if key == KeyTermsAccepted {
		return false
	}
	for _, k := range namedSessionKeys {
		if key == k {
			return true
		}
	}
	lower := strings.ToLower(key)
	return strings.Contains(lower, "controller") ||
		strings.Contains(lower, "session") ||
		strings.Contains(lower, "cartridge")
}

// vault reads and writes session material in the durable key space.
type vault struct {
	kv kvstore.Store
}

// ClearStorage removes every session key from store and returns the removed
// keys. Unrelated keys and terms acceptance are kept.
func ClearStorage(ctx context.Context, store kvstore.Store) ([]string, error) {
	return vault{kv: store}.sweep(ctx)
}

// sweep removes every session key. The named keys are checked a second time
// because the key space gives no atomicity across deletes.
func (v vault) sweep(ctx context.Context) ([]string, error) {
	metrics.IncStorageSweep()
	removed, err := kvstore.DeleteMatching(ctx, v.kv, IsSessionKey)
	errs := []error{err}
	for _, k := range namedSessionKeys {
		if _, gerr := v.kv.Get(ctx, k); gerr == nil {
			if derr := v.kv.Delete(ctx, k); derr != nil {
				errs = append(errs, fmt.Errorf("delete %q: %w", k, derr))
				continue
			}
			removed = append(removed, k)
		}
	}
	return removed, errors.Join(errs...)
}

func (v vault) saveSigner(ctx context.Context, s Signer) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return v.kv.Set(ctx, KeySigner, string(raw))
}

func (v vault) loadSigner(ctx context.Context) (Signer, error) {
	raw, err := v.kv.Get(ctx, KeySigner)
	if err != nil {
		return Signer{}, err
	}
	var s Signer
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Signer{}, fmt.Errorf("%w: %v", ErrInvalidSigner, err)
	}
	if err := s.Validate(); err != nil {
		return Signer{}, err
	}
	return s, nil
}

func (v vault) savePolicies(ctx context.Context, p config.SessionPolicies) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return v.kv.Set(ctx, KeyPolicies, string(raw))
}

func (v vault) savePayload(ctx context.Context, payload string) error {
	return v.kv.Set(ctx, KeySession, payload)
}

// loadPayload returns the stored session payload or "" when none exists.
func (v vault) loadPayload(ctx context.Context) (string, error) {
	return kvstore.GetOr(ctx, v.kv, KeySession, "")
}

func (v vault) saveConnector(ctx context.Context, id string) error {
	return v.kv.Set(ctx, KeyLastConnector, id)
}

func (v vault) termsAccepted(ctx context.Context) (bool, error) {
	raw, err := kvstore.GetOr(ctx, v.kv, KeyTermsAccepted, "")
	if err != nil {
		return false, err
	}
	return raw != "", nil
}

func (v vault) acceptTerms(ctx context.Context) error {
	return v.kv.Set(ctx, KeyTermsAccepted, "true")
}
