// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package kvstore is the durable key space that survives app restarts and
// browser round trips: session material, the terms-of-service flag and the
// pending beast claim.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get for missing keys.
var ErrNotFound = errors.New("key not found")

// Store is a flat string key space. Implementations are safe for concurrent
// use; multi-key operations are not atomic.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Keys lists every key currently stored, in no particular order.
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// DeleteMatching removes every key accepted by match and returns the removed
// keys. Keys written concurrently may survive; callers re-check.
func DeleteMatching(ctx context.Context, s Store, match func(key string) bool) ([]string, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	var removed []string
	var errs []error
	for _, k := range keys {
		if !match(k) {
			continue
		}
		if err := s.Delete(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("delete %q: %w", k, err))
			continue
		}
		removed = append(removed, k)
	}
	return removed, errors.Join(errs...)
}

// GetOr returns the stored value or def when the key is missing.
func GetOr(ctx context.Context, s Store, key, def string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	return v, err
}
