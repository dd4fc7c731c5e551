// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	c, err := Resolve(" Android ")
	require.NoError(t, err)
	assert.Equal(t, Android, c.Platform)
	assert.True(t, c.IsMobile())
	assert.True(t, c.NativeRedirect())
	assert.False(t, c.LoopbackRedirect())

	_, err = Resolve("playstation")
	assert.True(t, errors.Is(err, ErrUnknownPlatform))
}

func TestSignupOptions_AndroidDropsWebAuthn(t *testing.T) {
	android := Capability{Platform: Android}
	assert.NotContains(t, android.SignupOptions(), "webauthn")

	ios := Capability{Platform: IOS}
	assert.Equal(t, []string{"google", "discord", "webauthn", "password"}, ios.SignupOptions())
}

func TestWebUsesInProcessConnector(t *testing.T) {
	web := Capability{Platform: Web}
	assert.False(t, web.NativeRedirect())
	assert.False(t, web.IsMobile())

	desktop := Capability{Platform: Desktop}
	assert.True(t, desktop.NativeRedirect())
	assert.True(t, desktop.LoopbackRedirect())
}
