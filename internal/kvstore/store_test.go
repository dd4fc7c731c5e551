// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package kvstore

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) Store { return NewMemoryStore() }},
		{"badger", func(t *testing.T) Store {
			s, err := OpenBadgerInMemory()
			require.NoError(t, err)
			return s
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "kv.sqlite"))
			require.NoError(t, err)
			return s
		}},
		{"redis", func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			return NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "ls:")
		}},
	}
}

func sorted(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}

func TestStoreContract(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			t.Cleanup(func() { _ = s.Close() })

			_, err := s.Get(ctx, "session")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "session", "v1"))
			require.NoError(t, s.Set(ctx, "session", "v2"))
			got, err := s.Get(ctx, "session")
			require.NoError(t, err)
			assert.Equal(t, "v2", got)

			require.NoError(t, s.Set(ctx, "termsOfServiceAccepted", "true"))
			keys, err := s.Keys(ctx)
			require.NoError(t, err)
			if diff := cmp.Diff([]string{"session", "termsOfServiceAccepted"}, sorted(keys)); diff != "" {
				t.Fatalf("keys mismatch (-want +got):\n%s", diff)
			}

			require.NoError(t, s.Delete(ctx, "session"))
			require.NoError(t, s.Delete(ctx, "never-set"))
			_, err = s.Get(ctx, "session")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDeleteMatching(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			t.Cleanup(func() { _ = s.Close() })

			for _, k := range []string{"sessionSigner", "@cartridge/x", "termsOfServiceAccepted", "collectable_beast"} {
				require.NoError(t, s.Set(ctx, k, "1"))
			}

			removed, err := DeleteMatching(ctx, s, func(k string) bool {
				return strings.Contains(strings.ToLower(k), "session") || strings.Contains(k, "cartridge")
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"@cartridge/x", "sessionSigner"}, sorted(removed))

			keys, err := s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"collectable_beast", "termsOfServiceAccepted"}, sorted(keys))
		})
	}
}

func TestGetOr(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	v, err := GetOr(ctx, s, "termsOfServiceAccepted", "false")
	require.NoError(t, err)
	assert.Equal(t, "false", v)
}

func TestBadgerStore_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "sessionSigner", "0xabc"))
	require.NoError(t, s.Close())

	s, err = OpenBadgerStore(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "sessionSigner")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", got)
}

func TestOpen_Factory(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "f.sqlite")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Backend: "etcd"})
	assert.Error(t, err)
}
