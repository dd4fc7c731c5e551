// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package net holds URL helpers shared by the transport packages.
package net

import (
	"fmt"
	stdnet "net"
	"net/url"
	"sort"
	"strings"
)

// SanitizeURL removes user info and replaces every query value with a
// placeholder so that session payloads never reach the logs. Query keys are
// kept in sorted order.
func SanitizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	u.User = nil
	u.Fragment = ""
	if u.RawQuery != "" {
		q := u.Query()
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, url.QueryEscape(k)+"=redacted")
		}
		u.RawQuery = strings.Join(parts, "&")
	}
	return u.String()
}

// RequireLoopback rejects listen addresses that are not bound to a loopback interface.
func RequireLoopback(addr string) error {
	host, _, err := stdnet.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := stdnet.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("listen address %q is not loopback", addr)
	}
	return nil
}
