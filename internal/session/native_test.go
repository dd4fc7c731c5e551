// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/ManuGH/lootsurvivor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNative_DeepLinkRegistersSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var signerAtOpen string
	h.browser.onOpen = func(string) {
		signerAtOpen, _ = h.store.Get(ctx, KeySigner)
	}
	done, opened := h.connectAsync(t)
	assert.Equal(t, StateAwaitingRedirect, h.provider.State())
	require.NotEmpty(t, signerAtOpen, "signer must be persisted before the browser opens")

	stored, err := h.provider.vault.loadSigner(ctx)
	require.NoError(t, err)
	u, err := url.Parse(opened)
	require.NoError(t, err)
	assert.Equal(t, stored.PublicKey, u.Query().Get("public_key"))
	assert.Equal(t, "/session", u.Path)

	payload := payloadFor(t, "alice", "0xabc")
	require.NoError(t, h.provider.HandleDeepLink(ctx, deepLink(payload)))

	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, "0xabc", res.acct.Address())
	assert.Equal(t, StateConnected, h.provider.State())
	assert.Equal(t, 1, h.registrar.registerCalls())
	assert.Equal(t, stored, h.registrar.signers[0])

	acct, ok := h.provider.Account()
	require.True(t, ok)
	assert.Equal(t, "0xabc", acct.Address())
	name, err := h.provider.Username(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	saved, err := h.store.Get(ctx, KeySession)
	require.NoError(t, err)
	assert.Equal(t, payload, saved)
}

func TestNative_SamePayloadRegistersOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	done, _ := h.connectAsync(t)

	link := deepLink(payloadFor(t, "alice", "0xabc"))
	require.NoError(t, h.provider.HandleDeepLink(ctx, link))
	require.NoError(t, waitResult(t, done).err)

	require.NoError(t, h.provider.HandleDeepLink(ctx, link))
	require.NoError(t, h.provider.HandleDeepLink(ctx, link))
	acct, ok, err := h.provider.Probe(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0xabc", acct.Address())

	assert.Equal(t, 1, h.registrar.registerCalls())
	assert.Equal(t, 0, h.registrar.restoreCalls())
}

func TestNative_ConcurrentResolutionIsSingleOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	signer, err := GenerateSigner()
	require.NoError(t, err)
	payload := payloadFor(t, "alice", "0xabc")

	_, err = h.provider.fsm.Fire(EvLoginStarted)
	require.NoError(t, err)
	require.True(t, h.provider.fsm.FireIf(StateAwaitingRedirect, EvSignal))

	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := h.provider.resolve(ctx, payload, signer)
			errs <- err
		}()
	}
	for i := 0; i < 4; i++ {
		err := <-errs
		if err != nil {
			assert.ErrorIs(t, err, ErrIllegalTransition)
		}
	}
	assert.Equal(t, 1, h.registrar.registerCalls())
	assert.Equal(t, StateConnected, h.provider.State())
}

func TestNative_LogoutLinkClearsStorageWithoutRegistering(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.Set(ctx, KeyTermsAccepted, "true"))
	require.NoError(t, h.store.Set(ctx, "@cartridge/extra", "x"))

	done, _ := h.connectAsync(t)
	require.True(t, hasKey(t, h.store, KeySigner))

	require.NoError(t, h.provider.HandleDeepLink(ctx, "lootsurvivor://open?logout=1"))
	res := waitResult(t, done)
	require.ErrorIs(t, res.err, ErrLoggedOut)

	assert.Equal(t, 0, h.registrar.registerCalls())
	assert.Equal(t, StateIdle, h.provider.State())
	for _, k := range []string{KeySession, KeySigner, KeyPolicies, KeyLastConnector, "@cartridge/extra"} {
		assert.False(t, hasKey(t, h.store, k), k)
	}
	assert.True(t, hasKey(t, h.store, KeyTermsAccepted))
}

func TestNative_LogoutWhileConnected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	done, _ := h.connectAsync(t)
	require.NoError(t, h.provider.HandleDeepLink(ctx, deepLink(payloadFor(t, "alice", "0xabc"))))
	require.NoError(t, waitResult(t, done).err)

	require.NoError(t, h.provider.HandleDeepLink(ctx, "lootsurvivor://open?startapp=logout"))
	_, ok := h.provider.Account()
	assert.False(t, ok)
	assert.Equal(t, StateIdle, h.provider.State())
	assert.False(t, hasKey(t, h.store, KeySession))

	_, err := h.provider.Username(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestNative_ConfigMismatchSweepsAndReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.registrar.registerErr = errors.New("Invalid Felt: 'SN_MAIN' is not a valid dec string")

	done, _ := h.connectAsync(t)
	require.NoError(t, h.provider.HandleDeepLink(ctx, deepLink(payloadFor(t, "alice", "0xabc"))))

	res := waitResult(t, done)
	require.ErrorIs(t, res.err, ErrConfigMismatch)
	assert.Equal(t, StateIdle, h.provider.State())
	assert.False(t, hasKey(t, h.store, KeySigner))
	assert.False(t, hasKey(t, h.store, KeyPolicies))
}

func TestNative_RegistrationFailureEndsAttempt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.registrar.registerErr = errors.New("rpc unavailable")

	done, _ := h.connectAsync(t)
	require.NoError(t, h.provider.HandleDeepLink(ctx, deepLink(payloadFor(t, "alice", "0xabc"))))

	res := waitResult(t, done)
	require.Error(t, res.err)
	assert.NotErrorIs(t, res.err, ErrConfigMismatch)
	assert.Equal(t, StateIdle, h.provider.State())
	assert.True(t, hasKey(t, h.store, KeySigner), "ordinary failures keep the signer")
}

func TestNative_MalformedPayloadKeepsWaiting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	done, _ := h.connectAsync(t)

	require.NoError(t, h.provider.HandleDeepLink(ctx, "lootsurvivor://open?startapp=%25%25%25"))
	require.NoError(t, h.provider.HandleDeepLink(ctx, "lootsurvivor://open"))
	require.NoError(t, h.provider.HandleDeepLink(ctx, deepLink(payloadFor(t, "alice", "0xabc"))))

	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, 1, h.registrar.registerCalls())
}

func TestNative_BrowserClosedWithoutDeepLinkCancels(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	done, _ := h.connectAsync(t)

	require.NoError(t, h.provider.BrowserFinished(ctx))
	res := waitResult(t, done)
	require.ErrorIs(t, res.err, ErrLoginCanceled)
	assert.Equal(t, StateIdle, h.provider.State())
	assert.GreaterOrEqual(t, h.launch.count(), 3, "grace window checks the launch URL")
}

func TestNative_BrowserClosedWithLateDeepLinkResolves(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	done, _ := h.connectAsync(t)

	h.launch.set(deepLink(payloadFor(t, "alice", "0xabc")))
	require.NoError(t, h.provider.BrowserFinished(ctx))

	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, StateConnected, h.provider.State())
}

func TestNative_BrowserClosedAfterConnectingDeepLinkKeepsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	done, _ := h.connectAsync(t)
	require.NoError(t, h.provider.HandleDeepLink(ctx, deepLink(payloadFor(t, "alice", "0xabc"))))
	require.NoError(t, waitResult(t, done).err)

	require.NoError(t, h.provider.BrowserFinished(ctx))
	_, ok := h.provider.Account()
	assert.True(t, ok)
	assert.True(t, hasKey(t, h.store, KeySession))
}

func TestNative_DeepLinkDuringGraceWindowKeepsSession(t *testing.T) {
	h := newHarness(t, func(c *config.TimingConfig) { c.BrowserSettle = 200 * time.Millisecond })
	ctx := context.Background()
	done, _ := h.connectAsync(t)

	// The browser reports closing first; the deep link lands 20ms later.
	finished := make(chan error, 1)
	go func() { finished <- h.provider.BrowserFinished(ctx) }()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, h.provider.HandleDeepLink(ctx, deepLink(payloadFor(t, "alice", "0xabc"))))
	require.NoError(t, waitResult(t, done).err)

	select {
	case err := <-finished:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("browser finished handler did not return")
	}
	assert.Equal(t, StateConnected, h.provider.State())
	assert.True(t, hasKey(t, h.store, KeySession))
}

func TestNative_ProfileClosedWithoutDeepLinkLogsOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	done, _ := h.connectAsync(t)
	require.NoError(t, h.provider.HandleDeepLink(ctx, deepLink(payloadFor(t, "alice", "0xabc"))))
	require.NoError(t, waitResult(t, done).err)

	// The user logs out on the profile page and closes it without a redirect.
	require.NoError(t, h.provider.OpenProfile(ctx, ""))
	h.browser.waitOpened(t)
	require.NoError(t, h.provider.BrowserFinished(ctx))

	_, ok := h.provider.Account()
	assert.False(t, ok)
	assert.False(t, hasKey(t, h.store, KeySession))
}

func TestNative_LaunchURLPolledDuringAttempt(t *testing.T) {
	h := newHarness(t, func(c *config.TimingConfig) {
		c.LoginLoadingTimeout = 10 * time.Millisecond
		c.LaunchCheckEvery = 2
	})
	h.launch.set(deepLink(payloadFor(t, "alice", "0xabc")))

	done, _ := h.connectAsync(t)
	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.GreaterOrEqual(t, h.launch.count(), 1)
	assert.Equal(t, 1, h.registrar.registerCalls())
}

func TestNative_StorageFallbackAfterPollBudget(t *testing.T) {
	h := newHarness(t, func(c *config.TimingConfig) {
		c.LoginLoadingTimeout = 10 * time.Millisecond
		c.LoginPollAttempts = 3
		c.LaunchCheckEvery = 1
	})
	ctx := context.Background()
	payload := payloadFor(t, "alice", "0xabc")
	h.launch.onCall = func(n int) {
		// The session shows up in storage only once polling is under way.
		if n == 1 {
			_ = h.store.Set(ctx, KeySession, payload)
		}
	}

	done, _ := h.connectAsync(t)
	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, "0xabc", res.acct.Address())
	assert.Equal(t, 3, h.launch.count(), "resolved by the final storage check")
}

func TestNative_PollBudgetExhausted(t *testing.T) {
	h := newHarness(t, func(c *config.TimingConfig) {
		c.LoginLoadingTimeout = 10 * time.Millisecond
		c.LoginPollAttempts = 4
	})
	done, _ := h.connectAsync(t)

	res := waitResult(t, done)
	require.ErrorIs(t, res.err, ErrNoSession)
	assert.Contains(t, res.err.Error(), "poll budget exhausted")
	assert.Equal(t, StateIdle, h.provider.State())
	assert.Equal(t, 0, h.registrar.registerCalls())
}

func TestNative_LoadingTimeoutFallsBackToStorage(t *testing.T) {
	h := newHarness(t, func(c *config.TimingConfig) {
		c.LoginLoadingTimeout = 30 * time.Millisecond
		c.LoginPollInterval = time.Hour
	})
	ctx := context.Background()
	payload := payloadFor(t, "alice", "0xabc")
	h.browser.onOpen = func(string) {
		// The identity library writes the session while the browser is open.
		_ = h.store.Set(ctx, KeySession, payload)
	}

	done, _ := h.connectAsync(t)
	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, "0xabc", res.acct.Address())
}

func TestNative_LoadingTimeoutStartsPolling(t *testing.T) {
	h := newHarness(t, func(c *config.TimingConfig) {
		c.LoginLoadingTimeout = 10 * time.Millisecond
		c.LaunchCheckEvery = 1
	})
	payload := payloadFor(t, "alice", "0xabc")
	h.launch.onCall = func(n int) {
		if n == 2 {
			h.launch.url = deepLink(payload)
		}
	}

	done, _ := h.connectAsync(t)
	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, 1, h.registrar.registerCalls())
}

// scaledLoginTiming divides the production login durations by factor.
func scaledLoginTiming(factor time.Duration) config.TimingConfig {
	t := config.DefaultTiming()
	t.LoginMaxPending /= factor
	t.LoginLoadingTimeout /= factor
	t.LoginPollInterval /= factor
	return t
}

func applyLoginTiming(c *config.TimingConfig, from config.TimingConfig) {
	c.LoginMaxPending = from.LoginMaxPending
	c.LoginLoadingTimeout = from.LoginLoadingTimeout
	c.LoginPollInterval = from.LoginPollInterval
	c.LoginPollAttempts = from.LoginPollAttempts
	c.LaunchCheckEvery = from.LaunchCheckEvery
}

// Production budgets scaled down keep their ordering: the loading timeout
// storage check runs before any poll.
func TestNative_DefaultTimingReachesLoadingFallback(t *testing.T) {
	scaled := scaledLoginTiming(50)
	h := newHarness(t, func(c *config.TimingConfig) { applyLoginTiming(c, scaled) })
	require.LessOrEqual(t, scaled.LoginBudget(), scaled.LoginMaxPending)

	ctx := context.Background()
	payload := payloadFor(t, "alice", "0xabc")
	h.browser.onOpen = func(string) {
		_ = h.store.Set(ctx, KeySession, payload)
	}

	done, _ := h.connectAsync(t)
	res := waitResult(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, "0xabc", res.acct.Address())
	assert.Zero(t, h.launch.count(), "no poll ran before the loading timeout")
}

func TestNative_DefaultTimingReachesPollBudget(t *testing.T) {
	scaled := scaledLoginTiming(50)
	h := newHarness(t, func(c *config.TimingConfig) { applyLoginTiming(c, scaled) })

	done, _ := h.connectAsync(t)
	res := waitResult(t, done)
	require.ErrorIs(t, res.err, ErrNoSession)
	assert.Contains(t, res.err.Error(), "poll budget exhausted")
	assert.Equal(t, scaled.LoginPollAttempts/scaled.LaunchCheckEvery, h.launch.count())
}

func TestNative_MaxPendingBudget(t *testing.T) {
	h := newHarness(t, func(c *config.TimingConfig) {
		c.LoginMaxPending = 30 * time.Millisecond
		c.LoginLoadingTimeout = time.Hour
		c.LoginPollInterval = time.Hour
	})
	done, _ := h.connectAsync(t)

	res := waitResult(t, done)
	require.ErrorIs(t, res.err, ErrNoSession)
	assert.ErrorIs(t, res.err, context.DeadlineExceeded)
	assert.Equal(t, StateIdle, h.provider.State())
}

func TestNative_SecondConnectWhilePending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	done, _ := h.connectAsync(t)

	_, err := h.provider.Connect(ctx)
	require.ErrorIs(t, err, ErrLoginInProgress)

	require.NoError(t, h.provider.Disconnect(ctx))
	require.ErrorIs(t, waitResult(t, done).err, ErrLoggedOut)
}

func TestNative_ProbeRestoresFromStorage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	signer, err := GenerateSigner()
	require.NoError(t, err)
	require.NoError(t, h.provider.vault.saveSigner(ctx, signer))
	require.NoError(t, h.store.Set(ctx, KeySession, payloadFor(t, "bob", "0x2")))

	acct, ok, err := h.provider.Probe(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0x2", acct.Address())
	assert.Equal(t, StateConnected, h.provider.State())
	assert.Equal(t, 1, h.registrar.restoreCalls())
	assert.Equal(t, 0, h.registrar.registerCalls())
}

func TestNative_ProbeWithoutSession(t *testing.T) {
	h := newHarness(t)
	_, ok, err := h.provider.Probe(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, StateIdle, h.provider.State())
}

func TestNative_ProbeSweepsUnusableSessions(t *testing.T) {
	tests := []struct {
		name       string
		payload    func(t *testing.T) string
		restoreErr error
	}{
		{
			name: "expired",
			payload: func(t *testing.T) string {
				p, err := Registration{Username: "bob", Address: "0x2", ExpiresAt: "1000"}.Encode()
				require.NoError(t, err)
				return p
			},
		},
		{
			name:    "malformed",
			payload: func(*testing.T) string { return "not-a-payload" },
		},
		{
			name:       "config mismatch",
			payload:    func(t *testing.T) string { return payloadFor(t, "bob", "0x2") },
			restoreErr: errors.New("invalid dec string"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			h.registrar.restoreErr = tt.restoreErr
			signer, err := GenerateSigner()
			require.NoError(t, err)
			require.NoError(t, h.provider.vault.saveSigner(ctx, signer))
			require.NoError(t, h.store.Set(ctx, KeySession, tt.payload(t)))

			_, ok, err := h.provider.Probe(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.False(t, hasKey(t, h.store, KeySession))
			assert.False(t, hasKey(t, h.store, KeySigner))
			assert.Equal(t, StateIdle, h.provider.State())
		})
	}
}

func TestNative_ColdStartDeepLink(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	signer, err := GenerateSigner()
	require.NoError(t, err)
	require.NoError(t, h.provider.vault.saveSigner(ctx, signer))

	h.launch.set(deepLink(payloadFor(t, "carol", "0x3")))
	require.NoError(t, h.provider.Resume(ctx))

	acct, ok := h.provider.Account()
	require.True(t, ok)
	assert.Equal(t, "0x3", acct.Address())
	assert.Equal(t, 1, h.registrar.registerCalls())
	assert.Equal(t, signer, h.registrar.signers[0])

	// The launch URL is still reported on the next foreground.
	require.NoError(t, h.provider.Resume(ctx))
	assert.Equal(t, 1, h.registrar.registerCalls())
}

func TestNative_ResumeWithoutLaunchURL(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.provider.Resume(context.Background()))
	assert.Equal(t, 3, h.launch.count())
}

func TestNative_OpenProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.ErrorIs(t, h.provider.OpenProfile(ctx, ""), ErrNoSession)

	done, _ := h.connectAsync(t)
	require.NoError(t, h.provider.HandleDeepLink(ctx, deepLink(payloadFor(t, "alice", "0xabc"))))
	require.NoError(t, waitResult(t, done).err)

	require.NoError(t, h.provider.OpenProfile(ctx, ""))
	opened := h.browser.waitOpened(t)
	u, err := url.Parse(opened)
	require.NoError(t, err)
	assert.Equal(t, "/account/alice/inventory", u.Path)
	assert.Equal(t, h.registrar.signers[0].PublicKey, u.Query().Get("public_key"))

	require.NoError(t, h.provider.OpenStarterPack(ctx, "3"))
	assert.Contains(t, h.browser.waitOpened(t), "/starterpack/3?")
}
