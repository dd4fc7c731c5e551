// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/lootsurvivor/internal/felt"
	"github.com/ManuGH/lootsurvivor/internal/kvstore"
	"github.com/ManuGH/lootsurvivor/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T, extra ...string) []string {
	t.Helper()
	dir := t.TempDir()
	return append([]string{"LS_DATA_DIR=" + dir, "LOG_LEVEL=error"}, extra...)
}

func runCLI(t *testing.T, environ []string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, environ, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t, testEnv(t))
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage:")

	code, _, stderr = runCLI(t, testEnv(t), "explode")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "explode"`)

	code, stdout, _ := runCLI(t, testEnv(t), "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "dev\n", stdout)
}

func TestRun_Validate(t *testing.T) {
	code, stdout, _ := runCLI(t, testEnv(t), "validate")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "defaults is valid")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chainId: SN_MAIN\nbogus: 1\n"), 0o600))
	code, _, stderr := runCLI(t, testEnv(t), "validate", "-f", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Configuration error in "+path)

	code, _, stderr = runCLI(t, testEnv(t), "validate", "--file", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Configuration error")
}

func TestRun_Logout(t *testing.T) {
	ctx := context.Background()
	storePath := filepath.Join(t.TempDir(), "session.sqlite")
	store, err := kvstore.OpenSQLiteStore(ctx, storePath)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, session.KeySigner, "{}"))
	require.NoError(t, store.Set(ctx, session.KeySession, "payload"))
	require.NoError(t, store.Set(ctx, session.KeyTermsAccepted, "true"))
	require.NoError(t, store.Close())

	env := testEnv(t, "LS_STORE_BACKEND=sqlite", "LS_STORE_PATH="+storePath)
	code, stdout, stderr := runCLI(t, env, "logout")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "2 session keys removed")

	store, err = kvstore.OpenSQLiteStore(ctx, storePath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{session.KeyTermsAccepted}, keys)
}

func TestRun_Chain(t *testing.T) {
	id, err := felt.EncodeShortString("SN_MAIN")
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID uint64 `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": id})
	}))
	defer srv.Close()

	code, stdout, stderr := runCLI(t, testEnv(t, "LS_RPC_URL="+srv.URL), "chain")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "serves SN_MAIN")

	code, _, stderr = runCLI(t, testEnv(t, "LS_RPC_URL="+srv.URL, "LS_CHAIN_ID=WP_PG_SLOT"), "chain")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "chain mismatch")
}
