// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/ManuGH/lootsurvivor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeychain() Keychain {
	return Keychain{
		BaseURL:     "https://x.cartridge.gg/",
		RedirectURI: "lootsurvivor://open",
		Network: config.NetworkConfig{
			ChainID:   config.ChainMainnet,
			Namespace: "ls_0_0_9",
			Slot:      "pg-mainnet-10",
			Preset:    config.Preset,
			RPCURL:    "https://rpc.example/v0_9",
			Policies: config.SessionPolicies{Contracts: map[string]config.ContractPolicy{
				"0x1": {Methods: []config.PolicyMethod{{Name: "Explore", Entrypoint: "explore"}}},
			}},
		},
		Signers: []string{"google", "password"},
	}
}

func TestKeychain_SessionURL(t *testing.T) {
	k := testKeychain()
	raw, err := k.SessionURL("0xpub")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "x.cartridge.gg", u.Host)
	assert.Equal(t, "/session", u.Path)

	q := u.Query()
	assert.Equal(t, "0xpub", q.Get("public_key"))
	assert.Equal(t, "lootsurvivor://open", q.Get("redirect_uri"))
	assert.Equal(t, "startapp", q.Get("redirect_query_name"))
	assert.Equal(t, "https://rpc.example/v0_9", q.Get("rpc_url"))
	assert.Equal(t, "pg-mainnet-10", q.Get("ps"))
	assert.Equal(t, "ls_0_0_9", q.Get("ns"))
	assert.Equal(t, config.Preset, q.Get("preset"))
	assert.Equal(t, `["google","password"]`, q.Get("signers"))

	var policies config.SessionPolicies
	require.NoError(t, json.Unmarshal([]byte(q.Get("policies")), &policies))
	assert.Equal(t, "explore", policies.Contracts["0x1"].Methods[0].Entrypoint)

	// Routing params are enforced on top of the short forms.
	assert.Equal(t, "ls_0_0_9", q.Get("namespace"))
	assert.Equal(t, "pg-mainnet-10", q.Get("slot"))
	assert.NotContains(t, raw, "redirect_uri=lootsurvivor://", "redirect must be escaped")
}

func TestKeychain_ProfileURL(t *testing.T) {
	k := testKeychain()
	raw, err := k.ProfileURL("al ice", "", "0xpub")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/account/al ice/inventory", u.Path)
	assert.True(t, strings.Contains(raw, "/account/al%20ice/inventory?"))
	assert.Equal(t, "0xpub", u.Query().Get("public_key"))
	assert.Equal(t, "startapp", u.Query().Get("redirect_query_name"))

	raw, err = k.ProfileURL("bob", "achievements", "0xpub")
	require.NoError(t, err)
	assert.Contains(t, raw, "/account/bob/achievements?")
}

func TestKeychain_StarterPackURL(t *testing.T) {
	raw, err := testKeychain().StarterPackURL("3")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/starterpack/3", u.Path)
	assert.Equal(t, "lootsurvivor://open", u.Query().Get("redirect_uri"))
}

func TestKeychain_NormalizeOverridesRedirect(t *testing.T) {
	k := testKeychain()
	raw, err := k.Normalize("https://x.cartridge.gg/session?redirect_uri=https://evil.example&redirect_query_name=token&slot=custom")
	require.NoError(t, err)
	q, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "lootsurvivor://open", q.Query().Get("redirect_uri"))
	assert.Equal(t, "startapp", q.Query().Get("redirect_query_name"))
	assert.Equal(t, "custom", q.Query().Get("slot"), "existing routing params are kept")
	assert.Equal(t, config.Preset, q.Query().Get("preset"))

	same, err := k.Normalize("lootsurvivor://open?x=1")
	require.NoError(t, err)
	assert.Equal(t, "lootsurvivor://open?x=1", same)
}
