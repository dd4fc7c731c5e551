// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	dir := t.TempDir()
	cfg, err := NewLoader("", "1.2.3").
		WithEnvironment(map[string]string{"LS_DATA_DIR": dir}).
		Load()
	require.NoError(t, err)

	assert.Equal(t, ChainMainnet, cfg.ChainID)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, filepath.Join(dir, "session.badger"), cfg.Storage.Path)
	assert.Equal(t, 275*time.Millisecond, cfg.Timing.PreConfirmInterval)
	assert.Equal(t, 5, cfg.Timing.PreConfirmRetries)
	assert.Equal(t, 9, cfg.Timing.ConfirmRetries)
	assert.Equal(t, 50, cfg.Timing.BulkMintMax)
}

func TestLoad_Precedence_EnvOverFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
chainId: WP_PG_SLOT
dataDir: `+dir+`
storage:
  backend: sqlite
timing:
  reconcileInterval: 250ms
  confirmRetries: 4
`)

	cfg, err := NewLoader(path, "").
		WithEnvironment(map[string]string{
			"LS_CONFIRM_RETRIES": "7",
			"LS_STORE_BACKEND":   "memory",
		}).
		Load()
	require.NoError(t, err)

	assert.Equal(t, ChainSlot, cfg.ChainID)
	assert.Equal(t, 250*time.Millisecond, cfg.Timing.ReconcileInterval, "file value kept")
	assert.Equal(t, 7, cfg.Timing.ConfirmRetries, "env wins over file")
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 350*time.Millisecond, cfg.Timing.ConfirmInterval, "default kept")
}

func TestLoad_UnknownFieldIsRejected(t *testing.T) {
	path := writeConfig(t, "chainId: SN_MAIN\nbogus: true\n")

	_, err := NewLoader(path, "").WithEnvironment(map[string]string{}).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField), "got %v", err)
}

func TestLoad_MultipleDocumentsRejected(t *testing.T) {
	path := writeConfig(t, "chainId: SN_MAIN\n---\nchainId: WP_PG_SLOT\n")

	_, err := NewLoader(path, "").WithEnvironment(map[string]string{}).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")
}

func TestLoad_RejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, err := NewLoader(path, "").WithEnvironment(map[string]string{}).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only YAML supported")
}

func TestLoad_UnknownChainFailsValidation(t *testing.T) {
	_, err := NewLoader("", "").
		WithEnvironment(map[string]string{"LS_CHAIN_ID": "SN_SEPOLIA", "LS_STORE_BACKEND": "memory"}).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network not found")
}

func TestLoad_RedisRequiresAddress(t *testing.T) {
	_, err := NewLoader("", "").
		WithEnvironment(map[string]string{"LS_STORE_BACKEND": "redis"}).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Storage.RedisAddr")
}

func TestDefaultTiming_LoginBudgetFitsPending(t *testing.T) {
	timing := DefaultTiming()
	assert.Equal(t, 50*time.Second, timing.LoginBudget())
	assert.Less(t, timing.LoginLoadingTimeout, timing.LoginBudget())
	assert.LessOrEqual(t, timing.LoginBudget(), timing.LoginMaxPending)
}

func TestLoad_LoginBudgetMustFitPending(t *testing.T) {
	_, err := NewLoader("", "").
		WithEnvironment(map[string]string{"LS_STORE_BACKEND": "memory", "LS_LOGIN_MAX_PENDING": "45s"}).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Timing.LoginMaxPending")
}
