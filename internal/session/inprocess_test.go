// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ManuGH/lootsurvivor/internal/kvstore"
	"github.com/ManuGH/lootsurvivor/internal/platform/capability"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnector struct {
	mu          sync.Mutex
	account     starknet.Account
	connectErr  error
	disconnects int
	profiles    []string
}

func (c *fakeConnector) Connect(context.Context) (starknet.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	c.account = &fakeAccount{address: "0xweb"}
	return c.account, nil
}

func (c *fakeConnector) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.account = nil
	return nil
}

func (c *fakeConnector) Account() (starknet.Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account, c.account != nil
}

func (c *fakeConnector) Username(context.Context) (string, error) { return "webuser", nil }

func (c *fakeConnector) OpenProfile(_ context.Context, tab string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = append(c.profiles, tab)
	return nil
}

func (c *fakeConnector) OpenStarterPack(context.Context, string) error { return nil }

func TestInProcess_ConnectAndDisconnect(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConnector{}
	store := kvstore.NewMemoryStore()
	p := NewInProcessProvider(conn, store)

	require.ErrorIs(t, p.OpenProfile(ctx, "inventory"), ErrNoSession)

	acct, err := p.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0xweb", acct.Address())
	assert.Equal(t, StateConnected, p.State())
	connector, err := store.Get(ctx, KeyLastConnector)
	require.NoError(t, err)
	assert.Equal(t, ProviderInProcess, connector)

	require.NoError(t, p.OpenProfile(ctx, "inventory"))
	assert.Equal(t, []string{"inventory"}, conn.profiles)

	again, err := p.Connect(ctx)
	require.NoError(t, err)
	assert.Same(t, acct, again)

	require.NoError(t, p.Disconnect(ctx))
	assert.Equal(t, StateIdle, p.State())
	assert.Equal(t, 1, conn.disconnects)
	_, ok := p.Account()
	assert.False(t, ok)
}

func TestInProcess_MismatchSweeps(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "@cartridge/account", "stale"))
	p := NewInProcessProvider(&fakeConnector{connectErr: errors.New("Invalid Felt")}, store)

	_, err := p.Connect(ctx)
	require.ErrorIs(t, err, ErrConfigMismatch)
	assert.Equal(t, StateIdle, p.State())
	assert.False(t, hasKey(t, store, "@cartridge/account"))
}

func TestInProcess_ProbeAndIgnoredEvents(t *testing.T) {
	ctx := context.Background()
	conn := &fakeConnector{account: &fakeAccount{address: "0xweb"}}
	p := NewInProcessProvider(conn, nil)

	require.NoError(t, p.HandleDeepLink(ctx, "lootsurvivor://open?logout=1"))
	require.NoError(t, p.BrowserFinished(ctx))
	require.NoError(t, p.Resume(ctx))

	acct, ok, err := p.Probe(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0xweb", acct.Address())
	assert.Equal(t, StateConnected, p.State())
}

func TestSelect(t *testing.T) {
	deps := NativeDeps{
		Store:     kvstore.NewMemoryStore(),
		Registrar: &fakeRegistrar{},
		Browser:   newFakeBrowser(),
	}
	opts := NativeOptions{Keychain: testKeychain(), Timing: testTiming()}

	for _, tc := range []struct {
		platform capability.Platform
		kind     string
	}{
		{capability.IOS, ProviderNative},
		{capability.Android, ProviderNative},
		{capability.Desktop, ProviderNative},
		{capability.Web, ProviderInProcess},
	} {
		p, err := Select(capability.Capability{Platform: tc.platform}, deps, opts, &fakeConnector{})
		require.NoError(t, err, tc.platform)
		assert.Equal(t, tc.kind, p.Kind(), tc.platform)
	}

	_, err := Select(capability.Capability{Platform: capability.Web}, deps, opts, nil)
	assert.ErrorIs(t, err, ErrNoConnector)

	_, err = Select(capability.Capability{Platform: capability.IOS}, NativeDeps{}, opts, nil)
	assert.Error(t, err)
}
