// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package kvstore

import (
	"context"
	"fmt"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	Path    string
	Redis   RedisConfig
}

// Open creates a Store based on the backend configuration.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "memory", "":
		return NewMemoryStore(), nil
	case "badger":
		return OpenBadgerStore(opts.Path)
	case "sqlite":
		return OpenSQLiteStore(ctx, opts.Path)
	case "redis":
		return OpenRedisStore(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", opts.Backend)
	}
}
