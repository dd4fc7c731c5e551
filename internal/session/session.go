// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"errors"
	"sync"

	"github.com/ManuGH/lootsurvivor/internal/kvstore"
	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
)

// Session is the handshake surface consumed by the UI shell and the action
// executor. Login is fire-and-forget; the shell polls Pending and Account.
type Session struct {
	provider Provider
	vault    vault

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	pending   bool
	showTerms bool
	closed    bool
}

// New wraps provider. store holds the terms-of-service flag.
func New(provider Provider, store kvstore.Store) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		provider: provider,
		vault:    vault{kv: store},
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Kind reports the provider variant.
func (s *Session) Kind() string { return s.provider.Kind() }

// State reports the handshake state.
func (s *Session) State() State { return s.provider.State() }

// Login starts a login attempt in the background. A second call while one
// is pending does nothing. The attempt keeps the values of ctx but is only
// canceled by Close.
func (s *Session) Login(ctx context.Context) {
	s.mu.Lock()
	if s.pending || s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.setPending(false)

		lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(s.ctx, cancel)
		defer stop()

		acct, err := s.provider.Connect(lctx)
		if err != nil {
			logger := xglog.WithComponentFromContext(lctx, "session")
			switch {
			case errors.Is(err, ErrConfigMismatch):
				logger.Warn().Err(err).Msg("login reset after configuration mismatch")
			case errors.Is(err, ErrLoginCanceled), errors.Is(err, ErrLoggedOut), errors.Is(err, context.Canceled):
				logger.Debug().Err(err).Msg("login ended")
			default:
				logger.Warn().Err(err).Msg("login failed")
			}
			return
		}
		s.connected(lctx, acct)
	}()
}

func (s *Session) setPending(v bool) {
	s.mu.Lock()
	s.pending = v
	s.mu.Unlock()
}

// connected raises the terms dialog when the flag was never stored.
func (s *Session) connected(ctx context.Context, _ starknet.Account) {
	accepted, err := s.vault.termsAccepted(ctx)
	if err != nil {
		logger := xglog.WithComponentFromContext(ctx, "session")
		logger.Warn().Err(err).Msg("terms flag unreadable")
	}
	s.mu.Lock()
	s.showTerms = !accepted
	s.mu.Unlock()
}

// Pending reports whether a login attempt is running.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// ShowTermsOfService reports whether the terms dialog must be shown.
func (s *Session) ShowTermsOfService() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showTerms
}

// AcceptTermsOfService persists acceptance and hides the dialog.
func (s *Session) AcceptTermsOfService(ctx context.Context) error {
	if err := s.vault.acceptTerms(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.showTerms = false
	s.mu.Unlock()
	return nil
}

// Probe restores an existing session without user interaction.
func (s *Session) Probe(ctx context.Context) (starknet.Account, bool, error) {
	acct, ok, err := s.provider.Probe(ctx)
	if err == nil && ok {
		s.connected(ctx, acct)
	}
	return acct, ok, err
}

// Logout clears all session material. It is best-effort: the session is
// logged out even when parts of storage could not be swept.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.showTerms = false
	s.mu.Unlock()
	return s.provider.Disconnect(ctx)
}

func (s *Session) OpenProfile(ctx context.Context, tab string) error {
	return s.provider.OpenProfile(ctx, tab)
}

func (s *Session) OpenStarterPack(ctx context.Context, id string) error {
	return s.provider.OpenStarterPack(ctx, id)
}

// HandleDeepLink forwards a URL delivered by the host.
func (s *Session) HandleDeepLink(ctx context.Context, raw string) error {
	return s.provider.HandleDeepLink(ctx, raw)
}

// BrowserFinished forwards the browser-closed event. It blocks for the
// grace window.
func (s *Session) BrowserFinished(ctx context.Context) error {
	return s.provider.BrowserFinished(ctx)
}

// Resume forwards app start and foreground events.
func (s *Session) Resume(ctx context.Context) error {
	return s.provider.Resume(ctx)
}

// Account returns the connected account.
func (s *Session) Account() (starknet.Account, bool) {
	return s.provider.Account()
}

// Username returns the connected player's name.
func (s *Session) Username(ctx context.Context) (string, error) {
	return s.provider.Username(ctx)
}

// Close cancels a running login and waits for it to finish.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}
