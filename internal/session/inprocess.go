// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"fmt"

	"github.com/ManuGH/lootsurvivor/internal/kvstore"
	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	"github.com/ManuGH/lootsurvivor/internal/metrics"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
)

// InProcessProvider delegates to a connector running in the app process.
// There is no redirect, so deep links and browser events are ignored.
type InProcessProvider struct {
	fsm   *Machine
	conn  Connector
	vault vault
}

// NewInProcessProvider wraps conn. store may be nil.
func NewInProcessProvider(conn Connector, store kvstore.Store) *InProcessProvider {
	return &InProcessProvider{
		fsm:   NewMachine(ProviderInProcess),
		conn:  conn,
		vault: vault{kv: store},
	}
}

func (p *InProcessProvider) Kind() string { return ProviderInProcess }
func (p *InProcessProvider) State() State { return p.fsm.State() }

func (p *InProcessProvider) Connect(ctx context.Context) (starknet.Account, error) {
	if acct, ok := p.Account(); ok {
		return acct, nil
	}
	if _, err := p.fsm.Fire(EvPayloadFound); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginInProgress, err)
	}
	logger := xglog.WithComponentFromContext(ctx, "session")

	acct, err := p.conn.Connect(ctx)
	if err == nil && acct == nil {
		err = ErrNoSession
	}
	if err != nil {
		p.fsm.FireIf(StateRegistering, EvRegisterFailed)
		if IsConfigMismatch(err) && p.vault.kv != nil {
			if _, serr := p.vault.sweep(ctx); serr != nil {
				logger.Warn().Err(serr).Msg("session sweep incomplete")
			}
			err = fmt.Errorf("%w: %v", ErrConfigMismatch, err)
		}
		metrics.RecordLogin(ProviderInProcess, "failed")
		return nil, err
	}
	if !p.fsm.FireIf(StateRegistering, EvRegistered) {
		metrics.RecordLogin(ProviderInProcess, "superseded")
		return nil, ErrLoggedOut
	}
	if p.vault.kv != nil {
		if err := p.vault.saveConnector(ctx, ProviderInProcess); err != nil {
			logger.Warn().Err(err).Msg("failed to record connector")
		}
	}
	metrics.RecordLogin(ProviderInProcess, "connected")
	return acct, nil
}

func (p *InProcessProvider) Disconnect(ctx context.Context) error {
	if _, err := p.fsm.Fire(EvLogout); err != nil {
		return nil
	}
	defer p.fsm.FireIf(StateLoggedOut, EvReset)
	return p.conn.Disconnect(ctx)
}

// Probe reports the connector's account. The connector lives in-process,
// so no storage fallback is needed.
func (p *InProcessProvider) Probe(_ context.Context) (starknet.Account, bool, error) {
	acct, ok := p.conn.Account()
	if !ok {
		return nil, false, nil
	}
	p.fsm.FireIf(StateIdle, EvRestored)
	return acct, true, nil
}

func (p *InProcessProvider) OpenProfile(ctx context.Context, tab string) error {
	if _, ok := p.Account(); !ok {
		return ErrNoSession
	}
	return p.conn.OpenProfile(ctx, tab)
}

func (p *InProcessProvider) OpenStarterPack(ctx context.Context, id string) error {
	return p.conn.OpenStarterPack(ctx, id)
}

func (p *InProcessProvider) Username(ctx context.Context) (string, error) {
	return p.conn.Username(ctx)
}

func (p *InProcessProvider) Account() (starknet.Account, bool) {
	if p.fsm.State() != StateConnected {
		return nil, false
	}
	return p.conn.Account()
}

func (p *InProcessProvider) HandleDeepLink(context.Context, string) error { return nil }
func (p *InProcessProvider) BrowserFinished(context.Context) error { return nil }
func (p *InProcessProvider) Resume(context.Context) error { return nil }
