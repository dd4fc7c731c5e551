// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package net

import (
	"testing"
)

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"lootsurvivor://open?startapp=eyJ1c2VybmFtZSI6ImEifQ", "lootsurvivor://open?startapp=redacted"},
		{"https://user:pw@x.cartridge.gg/session?public_key=0x1&b=2", "https://x.cartridge.gg/session?b=redacted&public_key=redacted"},
		{"https://x.cartridge.gg/account/bob", "https://x.cartridge.gg/account/bob"},
		{"://bad", "invalid-url-redacted"},
	}
	for _, tt := range tests {
		if got := SanitizeURL(tt.input); got != tt.want {
			t.Errorf("SanitizeURL(%q) = %q; want %q", tt.input, got, tt.want)
		}
	}
}

func TestRequireLoopback(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"127.0.0.1:0", false},
		{"localhost:8787", false},
		{"[::1]:9000", false},
		{"0.0.0.0:8080", true},
		{"10.0.0.5:80", true},
		{"no-port", true},
	}
	for _, tt := range tests {
		err := RequireLoopback(tt.addr)
		if (err != nil) != tt.wantErr {
			t.Errorf("RequireLoopback(%q) err=%v; wantErr %v", tt.addr, err, tt.wantErr)
		}
	}
}
