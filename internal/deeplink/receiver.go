// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package deeplink receives identity-provider redirects on a loopback HTTP
// listener. Desktop hosts have no OS app-url handler, so the redirect URI
// points here and every request is forwarded as a deep link.
package deeplink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/lootsurvivor/internal/config"
	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	platformnet "github.com/ManuGH/lootsurvivor/internal/platform/net"
	"golang.org/x/sync/errgroup"
)

// RedirectPath is the path the identity provider redirects to.
const RedirectPath = "/open"

const shutdownTimeout = 5 * time.Second

var (
	// ErrNotListening is returned when the receiver has no bound listener.
	ErrNotListening = errors.New("deeplink receiver not listening")
	// ErrAlreadyListening is returned by a second Listen.
	ErrAlreadyListening = errors.New("deeplink receiver already listening")
)

// Handler consumes deep links. session.Session satisfies it.
type Handler interface {
	HandleDeepLink(ctx context.Context, raw string) error
}

// Receiver is the loopback redirect listener.
type Receiver struct {
	cfg     config.DeeplinkConfig
	handler Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// New validates cfg. The listen address must be a loopback address.
func New(cfg config.DeeplinkConfig, h Handler) (*Receiver, error) {
	if h == nil {
		return nil, errors.New("deeplink: handler is required")
	}
	if err := platformnet.RequireLoopback(cfg.ListenAddr); err != nil {
		return nil, fmt.Errorf("deeplink: %w", err)
	}
	return &Receiver{cfg: cfg, handler: h}, nil
}

// Listen binds the listener and returns the redirect URI to hand to the
// identity provider. A port of 0 picks a free port.
func (r *Receiver) Listen() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener != nil {
		return "", ErrAlreadyListening
	}
	ln, err := net.Listen("tcp", r.cfg.ListenAddr)
	if err != nil {
		return "", fmt.Errorf("deeplink listen %s: %w", r.cfg.ListenAddr, err)
	}
	r.listener = ln
	r.server = &http.Server{
		Handler:           r.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	return redirectURI(ln.Addr()), nil
}

// RedirectURI returns the bound redirect URI.
func (r *Receiver) RedirectURI() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return "", ErrNotListening
	}
	return redirectURI(r.listener.Addr()), nil
}

func redirectURI(addr net.Addr) string {
	return "http://" + addr.String() + RedirectPath
}

// Run serves until ctx is canceled, then shuts the listener down.
func (r *Receiver) Run(ctx context.Context) error {
	r.mu.Lock()
	ln, srv := r.listener, r.server
	r.mu.Unlock()
	if ln == nil {
		return ErrNotListening
	}
	logger := xglog.WithComponent("deeplink")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("listen", ln.Addr().String()).Msg("redirect receiver listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("deeplink serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("redirect receiver shutdown error")
		}
		return nil
	})
	err := g.Wait()
	logger.Info().Msg("redirect receiver stopped")
	return err
}

// Close releases the listener. Run must have returned or never started.
func (r *Receiver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	if err := r.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
