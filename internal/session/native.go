// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/lootsurvivor/internal/bus"
	"github.com/ManuGH/lootsurvivor/internal/config"
	"github.com/ManuGH/lootsurvivor/internal/kvstore"
	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	"github.com/ManuGH/lootsurvivor/internal/metrics"
	platformnet "github.com/ManuGH/lootsurvivor/internal/platform/net"
	"github.com/ManuGH/lootsurvivor/internal/retry"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// TopicSignals carries deep links and browser events to the running login
// attempt.
const TopicSignals bus.Topic = "session.signals"

// SignalKind classifies a handshake signal.
type SignalKind string

const (
	SignalDeepLink        SignalKind = "deeplink"
	SignalBrowserFinished SignalKind = "browser_finished"
)

// Signal is delivered on TopicSignals.
type Signal struct {
	Kind SignalKind
	Link Link
}

var errAlreadyResolved = errors.New("payload already resolved")

// NativeDeps are the collaborators of a NativeProvider. Store, Registrar
// and Browser are required. Without Launch no launch URL is ever checked.
type NativeDeps struct {
	Store     kvstore.Store
	Registrar Registrar
	Browser   Browser
	Launch    LaunchURLSource
	// Bus defaults to a private in-memory bus.
	Bus bus.Bus[Signal]
}

// NativeOptions configure a NativeProvider.
type NativeOptions struct {
	Keychain Keychain
	Timing   config.TimingConfig
	// Origin resolves relative deep links.
	Origin string
	Now    func() time.Time
	Sleep  retry.Sleeper
}

// NativeProvider runs the redirect handshake: a local keypair is authorized
// in an external browser and the session comes back by deep link, launch
// URL or durable storage.
type NativeProvider struct {
	fsm       *Machine
	vault     vault
	registrar Registrar
	browser   Browser
	launch    LaunchURLSource
	bus       bus.Bus[Signal]
	keychain  Keychain
	parser    *LinkParser
	timing    config.TimingConfig
	now       func() time.Time
	sleep     retry.Sleeper

	flight singleflight.Group

	mu       sync.Mutex
	account  starknet.Account
	reg      Registration
	payload  string
	signer   Signer
	pending  string
	consumed map[string]struct{}

	// handled holds raw URLs already routed. Launch URLs stay readable for
	// the life of the process and must not be replayed into later attempts.
	handled map[string]struct{}
	attempt *attempt
	// linkSeen is set by any routed deep link since the browser last opened.
	linkSeen bool
}

type attempt struct {
	id     string
	cancel context.CancelCauseFunc
}

// NewNativeProvider validates deps and returns a provider in StateIdle.
func NewNativeProvider(deps NativeDeps, opts NativeOptions) (*NativeProvider, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("session: store is required")
	case deps.Registrar == nil:
		return nil, errors.New("session: registrar is required")
	case deps.Browser == nil:
		return nil, errors.New("session: browser is required")
	}
	if deps.Bus == nil {
		deps.Bus = bus.NewMemoryBus[Signal](0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.SleepContext
	}
	return &NativeProvider{
		fsm:       NewMachine(ProviderNative),
		vault:     vault{kv: deps.Store},
		registrar: deps.Registrar,
		browser:   deps.Browser,
		launch:    deps.Launch,
		bus:       deps.Bus,
		keychain:  opts.Keychain,
		parser:    NewLinkParser(opts.Keychain.RedirectURI, opts.Origin),
		timing:    opts.Timing,
		now:       opts.Now,
		sleep:     opts.Sleep,
		consumed:  make(map[string]struct{}),
		handled:   make(map[string]struct{}),
	}, nil
}

func (p *NativeProvider) Kind() string { return ProviderNative }
func (p *NativeProvider) State() State { return p.fsm.State() }

func (p *NativeProvider) logger(ctx context.Context) zerolog.Logger {
	return xglog.WithComponentFromContext(ctx, "session")
}

// Connect runs one login attempt. It returns when a session was registered,
// the browser was dismissed, the attempt was superseded by a logout, or the
// pending budget ran out.
func (p *NativeProvider) Connect(ctx context.Context) (starknet.Account, error) {
	if acct, ok := p.Account(); ok {
		return acct, nil
	}
	if _, err := p.fsm.Fire(EvLoginStarted); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginInProgress, err)
	}

	id := uuid.NewString()
	ctx = xglog.ContextWithAttemptID(ctx, id)
	ctx, cancelCause := context.WithCancelCause(ctx)
	defer cancelCause(nil)
	ctx, cancel := context.WithTimeout(ctx, p.timing.LoginMaxPending)
	defer cancel()

	p.mu.Lock()
	p.attempt = &attempt{id: id, cancel: cancelCause}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		if p.attempt != nil && p.attempt.id == id {
			p.attempt = nil
		}
		p.mu.Unlock()
	}()

	acct, err := p.run(ctx)
	if err != nil {
		p.fsm.FireIf(StateAwaitingRedirect, EvAbandoned)
		p.fsm.FireIf(StateResolving, EvAbandoned)
	}
	metrics.RecordLogin(ProviderNative, loginOutcome(err))
	logger := p.logger(ctx)
	if err != nil {
		logger.Info().Err(err).Msg("login attempt ended without session")
	} else {
		logger.Info().Str(xglog.FieldAddress, acct.Address()).Msg("session connected")
	}
	return acct, err
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return "connected"
	case errors.Is(err, ErrConfigMismatch):
		return "config_mismatch"
	case errors.Is(err, ErrLoginCanceled):
		return "canceled"
	case errors.Is(err, ErrLoggedOut):
		return "logged_out"
	case errors.Is(err, ErrNoSession):
		return "timeout"
	default:
		return "failed"
	}
}

func (p *NativeProvider) run(ctx context.Context) (starknet.Account, error) {
	logger := p.logger(ctx)

	// Material left by an earlier attempt belongs to another keypair.
	if _, err := p.vault.sweep(ctx); err != nil {
		logger.Warn().Err(err).Msg("session sweep before login incomplete")
	}
	signer, err := GenerateSigner()
	if err != nil {
		return nil, err
	}
	if err := p.persistAttempt(ctx, signer); err != nil {
		return nil, fmt.Errorf("persist session signer: %w", err)
	}

	sub, err := p.bus.Subscribe(ctx, TopicSignals)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", TopicSignals, err)
	}
	defer func() { _ = sub.Close() }()

	target, err := p.keychain.SessionURL(signer.PublicKey)
	if err != nil {
		return nil, err
	}
	if err := p.openBrowser(ctx, target); err != nil {
		return nil, fmt.Errorf("open identity provider: %w", err)
	}
	logger.Debug().Str(xglog.FieldURL, platformnet.SanitizeURL(target)).Msg("identity provider opened")

	// Polling starts once the loading budget is spent without a session.
	loading := time.NewTimer(p.timing.LoginLoadingTimeout)
	defer loading.Stop()
	var (
		poll  *time.Ticker
		pollC <-chan time.Time
		polls int
	)
	defer func() {
		if poll != nil {
			poll.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil, attemptErr(ctx)

		case sig, ok := <-sub.C():
			if !ok {
				return nil, bus.ErrClosed
			}
			if sig.Kind == SignalBrowserFinished {
				return nil, ErrLoginCanceled
			}
			if acct, done, err := p.resolveFrom(ctx, sig.Link.Payload, signer); done {
				return acct, err
			}

		case <-loading.C:
			if acct, done, err := p.resolveFrom(ctx, "", signer); done {
				return acct, err
			}
			logger.Debug().Dur("interval", p.timing.LoginPollInterval).Msg("loading timeout, polling for session")
			poll = time.NewTicker(p.timing.LoginPollInterval)
			pollC = poll.C

		case <-pollC:
			polls++
			if polls%p.timing.LaunchCheckEvery == 0 {
				if link := p.launchLink(ctx); link.Kind == LinkLogout {
					_ = p.Disconnect(ctx)
					return nil, ErrLoggedOut
				} else if link.Kind == LinkSession {
					if acct, done, err := p.resolveFrom(ctx, link.Payload, signer); done {
						return acct, err
					}
				}
			}
			if p.hasPending() {
				if acct, done, err := p.resolveFrom(ctx, "", signer); done {
					return acct, err
				}
			}
			if polls >= p.timing.LoginPollAttempts {
				if acct, done, err := p.resolveFrom(ctx, "", signer); done {
					return acct, err
				}
				return nil, fmt.Errorf("%w: poll budget exhausted", ErrNoSession)
			}
		}
	}
}

func attemptErr(ctx context.Context) error {
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, ErrLoggedOut):
		return ErrLoggedOut
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrNoSession, ctx.Err())
	default:
		return ctx.Err()
	}
}

// persistAttempt writes the signer before the browser opens so the attempt
// survives process death.
func (p *NativeProvider) persistAttempt(ctx context.Context, signer Signer) error {
	if err := p.vault.saveSigner(ctx, signer); err != nil {
		return err
	}
	if err := p.vault.savePolicies(ctx, p.keychain.Network.Policies); err != nil {
		return err
	}
	if err := p.vault.saveConnector(ctx, ProviderNative); err != nil {
		return err
	}
	p.mu.Lock()
	p.signer = signer
	p.mu.Unlock()
	return nil
}

// resolveFrom consults the signal sources in priority order: the given
// payload, a payload delivered outside the attempt, then durable storage.
// done reports whether the attempt is over.
func (p *NativeProvider) resolveFrom(ctx context.Context, payload string, signer Signer) (starknet.Account, bool, error) {
	p.fsm.FireIf(StateAwaitingRedirect, EvSignal)
	logger := p.logger(ctx)

	pending := p.takePending()
	if payload == "" {
		payload = pending
	}
	if payload == "" {
		stored, err := p.vault.loadPayload(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("session storage read failed")
		}
		payload = stored
	}
	if payload == "" {
		p.fsm.FireIf(StateResolving, EvNothingFound)
		return nil, false, nil
	}

	acct, err := p.resolve(ctx, payload, signer)
	switch {
	case err == nil:
		return acct, true, nil
	case errors.Is(err, errAlreadyResolved), errors.Is(err, ErrMalformedPayload):
		logger.Debug().Err(err).Msg("session payload skipped")
		p.fsm.FireIf(StateResolving, EvNothingFound)
		return nil, false, nil
	default:
		return nil, true, err
	}
}

// resolve registers payload exactly once. Concurrent callers with the same
// payload share one registration; later callers are no-ops.
func (p *NativeProvider) resolve(ctx context.Context, payload string, signer Signer) (starknet.Account, error) {
	v, err, _ := p.flight.Do(payload, func() (any, error) {
		p.mu.Lock()
		if _, seen := p.consumed[payload]; seen {
			acct, current := p.account, p.payload
			p.mu.Unlock()
			if acct != nil && current == payload {
				return acct, nil
			}
			return nil, errAlreadyResolved
		}
		p.mu.Unlock()

		reg, err := DecodeRegistration(payload)
		if err != nil {
			return nil, err
		}
		if _, err := p.fsm.Fire(EvPayloadFound); err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.consumed[payload] = struct{}{}
		p.mu.Unlock()

		logger := p.logger(ctx)
		logger.Info().Str(xglog.FieldUsername, reg.Username).Msg("registering session")
		acct, err := p.registrar.Register(ctx, reg, signer)
		if err == nil && acct == nil {
			err = ErrNoSession
		}
		if err != nil {
			p.fsm.FireIf(StateRegistering, EvRegisterFailed)
			if IsConfigMismatch(err) {
				logger.Warn().Err(err).Msg("stored session does not match configuration, clearing")
				if _, serr := p.vault.sweep(ctx); serr != nil {
					logger.Warn().Err(serr).Msg("session sweep incomplete")
				}
				return nil, fmt.Errorf("%w: %v", ErrConfigMismatch, err)
			}
			return nil, fmt.Errorf("register session: %w", err)
		}
		if !p.fsm.FireIf(StateRegistering, EvRegistered) {
			return nil, ErrLoggedOut
		}
		if err := p.vault.savePayload(ctx, payload); err != nil {
			logger.Warn().Err(err).Msg("failed to persist session")
		}
		p.setConnected(acct, reg, payload, signer)
		return acct, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(starknet.Account), nil
}

func (p *NativeProvider) setConnected(acct starknet.Account, reg Registration, payload string, signer Signer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.account = acct
	p.reg = reg
	p.payload = payload
	p.signer = signer
}

func (p *NativeProvider) takePending() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.pending
	p.pending = ""
	return v
}

func (p *NativeProvider) hasPending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != ""
}

func (p *NativeProvider) attemptActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempt != nil
}

// Disconnect cancels a running attempt, sweeps session storage and returns
// to StateIdle. Partial sweeps are reported but the provider is logged out
// regardless.
func (p *NativeProvider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	at := p.attempt
	p.account = nil
	p.reg = Registration{}
	p.payload = ""
	p.pending = ""
	p.mu.Unlock()

	logger := p.logger(ctx)
	if at != nil {
		at.cancel(ErrLoggedOut)
	}
	if _, err := p.fsm.Fire(EvLogout); err != nil {
		logger.Debug().Err(err).Msg("logout while not logged in")
	}
	removed, err := p.vault.sweep(ctx)
	p.fsm.FireIf(StateLoggedOut, EvReset)
	logger.Info().Int("removed_keys", len(removed)).Msg("session cleared")
	return err
}

// Probe returns the connected account, or restores one from a payload seen
// outside an attempt or from durable storage. Incompatible or expired
// stored sessions are swept and reported as absent.
func (p *NativeProvider) Probe(ctx context.Context) (starknet.Account, bool, error) {
	if acct, ok := p.Account(); ok {
		return acct, true, nil
	}
	if p.fsm.State() != StateIdle {
		return nil, false, nil
	}
	logger := p.logger(ctx)

	signer, err := p.vault.loadSigner(ctx)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		return nil, false, nil
	case errors.Is(err, ErrInvalidSigner):
		logger.Warn().Err(err).Msg("stored signer unusable, clearing")
		_, _ = p.vault.sweep(ctx)
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	if pending := p.takePending(); pending != "" {
		acct, err := p.resolve(ctx, pending, signer)
		switch {
		case err == nil:
			return acct, true, nil
		case errors.Is(err, ErrConfigMismatch), errors.Is(err, ErrMalformedPayload), errors.Is(err, errAlreadyResolved):
			logger.Debug().Err(err).Msg("pending session payload dropped")
		default:
			return nil, false, err
		}
	}

	payload, err := p.vault.loadPayload(ctx)
	if err != nil || payload == "" {
		return nil, false, err
	}
	reg, err := DecodeRegistration(payload)
	if err == nil && reg.Expired(p.now()) {
		err = ErrSessionExpired
	}
	if err != nil {
		logger.Info().Err(err).Msg("stored session unusable, clearing")
		_, _ = p.vault.sweep(ctx)
		return nil, false, nil
	}

	acct, err := p.registrar.Restore(ctx, reg, signer)
	if err == nil && acct == nil {
		err = ErrNoSession
	}
	if err != nil {
		if IsConfigMismatch(err) {
			logger.Warn().Err(err).Msg("stored session does not match configuration, clearing")
			_, _ = p.vault.sweep(ctx)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("restore session: %w", err)
	}

	p.mu.Lock()
	p.consumed[payload] = struct{}{}
	p.mu.Unlock()
	if !p.fsm.FireIf(StateIdle, EvRestored) {
		return nil, false, nil
	}
	p.setConnected(acct, reg, payload, signer)
	return acct, true, nil
}

// HandleDeepLink classifies raw and routes it: logout links log out,
// payloads go to the running attempt or, without one, to Probe. Links that
// carry no payload are still forwarded so the attempt can check storage.
func (p *NativeProvider) HandleDeepLink(ctx context.Context, raw string) error {
	link := p.parser.Parse(raw)
	metrics.IncDeepLink(string(link.Kind))
	p.mu.Lock()
	p.handled[link.URL] = struct{}{}
	p.mu.Unlock()
	logger := p.logger(ctx)
	logger.Debug().Str(xglog.FieldURL, platformnet.SanitizeURL(link.URL)).Str("kind", string(link.Kind)).Msg("deep link received")

	if link.Kind == LinkIgnored {
		return nil
	}
	p.mu.Lock()
	p.linkSeen = true
	p.mu.Unlock()

	switch link.Kind {
	case LinkLogout:
		p.closeBrowser(ctx)
		return p.Disconnect(ctx)
	case LinkSession:
		p.mu.Lock()
		if _, seen := p.consumed[link.Payload]; !seen {
			p.pending = link.Payload
		}
		p.mu.Unlock()
	}
	p.closeBrowser(ctx)

	if !p.attemptActive() {
		if link.Kind == LinkSession && p.fsm.State() == StateIdle {
			_, _, err := p.Probe(ctx)
			return err
		}
		return nil
	}
	if err := p.bus.Publish(ctx, TopicSignals, Signal{Kind: SignalDeepLink, Link: link}); err != nil {
		return fmt.Errorf("dispatch deep link: %w", err)
	}
	return nil
}

func (p *NativeProvider) openBrowser(ctx context.Context, target string) error {
	p.mu.Lock()
	p.linkSeen = false
	p.mu.Unlock()
	return p.browser.Open(ctx, target)
}

func (p *NativeProvider) takeLinkSeen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	seen := p.linkSeen
	p.linkSeen = false
	return seen
}

func (p *NativeProvider) closeBrowser(ctx context.Context) {
	if err := p.browser.Close(ctx); err != nil {
		logger := p.logger(ctx)
		logger.Debug().Err(err).Msg("browser already closed")
	}
}

// BrowserFinished waits for a late deep link before treating the closed
// browser as a cancel. With a connected session and no deep link since the
// browser opened, the user logged out on the provider page.
func (p *NativeProvider) BrowserFinished(ctx context.Context) error {
	if err := p.sleep(ctx, p.timing.BrowserSettle); err != nil {
		return err
	}
	raw, err := p.pollLaunchURL(ctx, p.timing.BrowserLaunchAttempts,
		retry.Linear(p.timing.BrowserBackoffStep, p.timing.BrowserBackoffMax))
	if err != nil {
		return err
	}
	if raw != "" {
		return p.HandleDeepLink(ctx, raw)
	}
	if p.takeLinkSeen() {
		return nil
	}

	if p.attemptActive() {
		return p.bus.Publish(ctx, TopicSignals, Signal{Kind: SignalBrowserFinished})
	}
	if _, ok := p.Account(); ok {
		logger := p.logger(ctx)
		logger.Info().Msg("browser closed without deep link, logging out")
		return p.Disconnect(ctx)
	}
	return nil
}

// Resume checks the launch URL a few times after start or foregrounding.
func (p *NativeProvider) Resume(ctx context.Context) error {
	raw, err := p.pollLaunchURL(ctx, p.timing.StartupLaunchAttempts, retry.Constant(p.timing.BrowserBackoffStep))
	if err != nil || raw == "" {
		return err
	}
	return p.HandleDeepLink(ctx, raw)
}

func (p *NativeProvider) pollLaunchURL(ctx context.Context, attempts int, backoff retry.Backoff) (string, error) {
	if p.launch == nil {
		return "", nil
	}
	var found string
	_, err := retry.Poll(ctx, retry.Policy{MaxRetries: attempts - 1, Backoff: backoff, Sleep: p.sleep},
		func(ctx context.Context, _ int) (bool, error) {
			raw, err := p.launch.LaunchURL(ctx)
			if err != nil {
				return false, err
			}
			found = raw
			return raw != "", nil
		})
	return found, err
}

func (p *NativeProvider) launchLink(ctx context.Context) Link {
	if p.launch == nil {
		return Link{Kind: LinkIgnored}
	}
	raw, err := p.launch.LaunchURL(ctx)
	if err != nil || raw == "" {
		return Link{Kind: LinkIgnored}
	}
	link := p.parser.Parse(raw)
	p.mu.Lock()
	_, seen := p.handled[link.URL]
	p.handled[link.URL] = struct{}{}
	p.mu.Unlock()
	if seen {
		return Link{Kind: LinkIgnored}
	}
	metrics.IncDeepLink(string(link.Kind))
	return link
}

// OpenProfile opens the account page of the connected user.
func (p *NativeProvider) OpenProfile(ctx context.Context, tab string) error {
	p.mu.Lock()
	acct, username, pub := p.account, p.reg.Username, p.signer.PublicKey
	p.mu.Unlock()
	if acct == nil || username == "" {
		return ErrNoSession
	}
	target, err := p.keychain.ProfileURL(username, tab, pub)
	if err != nil {
		return err
	}
	return p.openBrowser(ctx, target)
}

func (p *NativeProvider) OpenStarterPack(ctx context.Context, id string) error {
	target, err := p.keychain.StarterPackURL(id)
	if err != nil {
		return err
	}
	return p.openBrowser(ctx, target)
}

func (p *NativeProvider) Username(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.account == nil {
		return "", ErrNoSession
	}
	return p.reg.Username, nil
}

func (p *NativeProvider) Account() (starknet.Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.account, p.account != nil
}
