// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ManuGH/lootsurvivor/internal/config"
)

// DefaultProfileTab is the profile page opened when no tab is given.
const DefaultProfileTab = "inventory"

// Keychain builds identity provider URLs for one network.
type Keychain struct {
	BaseURL     string
	RedirectURI string
	Network     config.NetworkConfig
	Signers     []string
}

func (k Keychain) base() string {
	return strings.TrimRight(k.BaseURL, "/")
}

// SessionURL is the page that authorizes publicKey for the network policies.
func (k Keychain) SessionURL(publicKey string) (string, error) {
	policies, err := json.Marshal(k.Network.Policies)
	if err != nil {
		return "", fmt.Errorf("encode policies: %w", err)
	}
	q := url.Values{}
	q.Set("public_key", publicKey)
	q.Set("redirect_uri", k.RedirectURI)
	q.Set("redirect_query_name", PayloadParam)
	q.Set("policies", string(policies))
	q.Set("rpc_url", k.Network.RPCURL)
	if len(k.Signers) > 0 {
		signers, err := json.Marshal(k.Signers)
		if err != nil {
			return "", fmt.Errorf("encode signers: %w", err)
		}
		q.Set("signers", string(signers))
	}
	if k.Network.Preset != "" {
		q.Set("preset", k.Network.Preset)
	}
	if k.Network.Slot != "" {
		q.Set("ps", k.Network.Slot)
	}
	if k.Network.Namespace != "" {
		q.Set("ns", k.Network.Namespace)
	}
	return k.Normalize(k.base() + "/session?" + q.Encode())
}

// ProfileURL opens the account page of username on tab.
func (k Keychain) ProfileURL(username, tab, publicKey string) (string, error) {
	if tab == "" {
		tab = DefaultProfileTab
	}
	q := url.Values{}
	q.Set("redirect_uri", k.RedirectURI)
	q.Set("public_key", publicKey)
	q.Set("redirect_query_name", PayloadParam)
	return k.Normalize(fmt.Sprintf("%s/account/%s/%s?%s",
		k.base(), url.PathEscape(username), url.PathEscape(tab), q.Encode()))
}

// StarterPackURL opens the purchase page of a starter pack.
func (k Keychain) StarterPackURL(id string) (string, error) {
	return k.Normalize(k.base() + "/starterpack/" + url.PathEscape(id))
}

// Normalize enforces the routing parameters the identity provider needs on
// every outgoing page: namespace, slot and preset when missing, and the
// app redirect with the payload parameter name always.
func (k Keychain) Normalize(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse keychain url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return raw, nil
	}
	q := u.Query()
	setMissing(q, "namespace", k.Network.Namespace)
	setMissing(q, "slot", k.Network.Slot)
	setMissing(q, "preset", k.Network.Preset)
	q.Set("redirect_uri", k.RedirectURI)
	q.Set("redirect_query_name", PayloadParam)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func setMissing(q url.Values, key, value string) {
	if value == "" || q.Has(key) {
		return
	}
	q.Set(key, value)
}
