// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package capability resolves what the host platform can do. It is resolved
// once at startup and injected into the executor and the session handshake.
package capability

import (
	"errors"
	"fmt"
	"strings"
)

// Platform is the host the client runs on.
type Platform string

const (
	IOS     Platform = "ios"
	Android Platform = "android"
	Web     Platform = "web"
	Desktop Platform = "desktop"
)

// ErrUnknownPlatform is returned by Resolve for unsupported hosts.
var ErrUnknownPlatform = errors.New("unknown platform")

// Capability describes the resolved platform.
type Capability struct {
	Platform Platform
}

// Resolve parses a platform name.
func Resolve(name string) (Capability, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(name))); p {
	case IOS, Android, Web, Desktop:
		return Capability{Platform: p}, nil
	default:
		return Capability{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
	}
}

// IsMobile reports whether the host is a mobile app shell.
func (c Capability) IsMobile() bool {
	return c.Platform == IOS || c.Platform == Android
}

// NativeRedirect reports whether login runs through an external browser and
// returns via deep link. Only the web host can embed the identity provider.
func (c Capability) NativeRedirect() bool {
	return c.Platform != Web
}

// LoopbackRedirect reports whether deep links arrive on a local HTTP listener
// rather than through the OS app-url handler.
func (c Capability) LoopbackRedirect() bool {
	return c.Platform == Desktop
}

// SignupOptions lists the sign-up methods offered by the identity provider.
// Android in-app browsers cannot complete passkey ceremonies.
func (c Capability) SignupOptions() []string {
	if c.Platform == Android {
		return []string{"google", "discord", "password"}
	}
	return []string{"google", "discord", "webauthn", "password"}
}

func (c Capability) String() string {
	return string(c.Platform)
}
