// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session establishes and restores the signing session used to
// submit game actions. Native hosts authorize a local keypair through an
// external browser and receive the result by deep link; the web host uses
// an in-process connector.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/lootsurvivor/internal/platform/capability"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
)

// Connector ids recorded under KeyLastConnector.
const (
	ProviderNative    = "controller_session"
	ProviderInProcess = "controller"
)

var (
	// ErrNoSession is returned when no usable session could be found.
	ErrNoSession = errors.New("no session")
	// ErrConfigMismatch marks stored session data that is well formed but
	// incompatible with the configured chain. Session storage is swept.
	ErrConfigMismatch = errors.New("session incompatible with configuration")
	// ErrLoginInProgress is returned when a login attempt is already running.
	ErrLoginInProgress = errors.New("login already in progress")
	// ErrLoginCanceled is returned when the browser closed without a deep link.
	ErrLoginCanceled = errors.New("login canceled")
	// ErrLoggedOut is returned by attempts superseded by a logout.
	ErrLoggedOut = errors.New("logged out")
	// ErrNoConnector is returned by Select when the host needs an in-process
	// connector and none was given.
	ErrNoConnector = errors.New("no in-process connector")
)

var mismatchSignatures = []string{"Invalid Felt", "invalid dec string"}

// IsConfigMismatch reports whether err is the signing library's signature
// for a stored session that does not fit the current configuration.
func IsConfigMismatch(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConfigMismatch) {
		return true
	}
	msg := err.Error()
	for _, sig := range mismatchSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// Provider is one way of obtaining a session account. Operations that do
// not apply to a variant are no-ops.
type Provider interface {
	Kind() string
	State() State
	// Connect runs a login attempt and blocks until it resolves.
	Connect(ctx context.Context) (starknet.Account, error)
	// Disconnect clears session material. It is best-effort.
	Disconnect(ctx context.Context) error
	// Probe returns an existing session without user interaction.
	Probe(ctx context.Context) (starknet.Account, bool, error)
	OpenProfile(ctx context.Context, tab string) error
	OpenStarterPack(ctx context.Context, id string) error
	Username(ctx context.Context) (string, error)
	Account() (starknet.Account, bool)
	// HandleDeepLink processes a URL delivered by the host.
	HandleDeepLink(ctx context.Context, raw string) error
	// BrowserFinished is called when the external browser was closed.
	BrowserFinished(ctx context.Context) error
	// Resume checks for a launch URL after start or foregrounding.
	Resume(ctx context.Context) error
}

// Registrar is the signing library: it turns an authorized registration
// and the local signer into an account.
type Registrar interface {
	// Register authorizes the session on chain. It may send a transaction.
	Register(ctx context.Context, reg Registration, signer Signer) (starknet.Account, error)
	// Restore rebuilds an account for a session registered earlier.
	Restore(ctx context.Context, reg Registration, signer Signer) (starknet.Account, error)
}

// Browser opens identity provider pages outside the app.
type Browser interface {
	Open(ctx context.Context, url string) error
	Close(ctx context.Context) error
}

// LaunchURLSource reports the URL the host was last opened with, or "".
type LaunchURLSource interface {
	LaunchURL(ctx context.Context) (string, error)
}

// Connector is an identity provider running in the same process.
type Connector interface {
	Connect(ctx context.Context) (starknet.Account, error)
	Disconnect(ctx context.Context) error
	Account() (starknet.Account, bool)
	Username(ctx context.Context) (string, error)
	OpenProfile(ctx context.Context, tab string) error
	OpenStarterPack(ctx context.Context, id string) error
}

// Select returns the provider variant for the host.
func Select(cp capability.Capability, deps NativeDeps, opts NativeOptions, conn Connector) (Provider, error) {
	if cp.NativeRedirect() {
		p, err := NewNativeProvider(deps, opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	if conn == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoConnector, cp)
	}
	return NewInProcessProvider(conn, deps.Store), nil
}
