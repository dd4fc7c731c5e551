// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"errors"
	"fmt"
	"sync"

	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	"github.com/ManuGH/lootsurvivor/internal/metrics"
)

// State is a step of the login handshake.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingRedirect State = "awaiting_redirect"
	StateResolving        State = "resolving"
	StateRegistering      State = "registering"
	StateConnected        State = "connected"
	StateLoggedOut        State = "logged_out"
)

// EventKind drives the handshake state machine.
type EventKind int

const (
	EvUnknown EventKind = iota
	EvLoginStarted
	EvSignal
	EvNothingFound
	EvPayloadFound
	EvRegistered
	EvRegisterFailed
	EvAbandoned
	EvRestored
	EvLogout
	EvReset
)

func (e EventKind) String() string {
	switch e {
	case EvLoginStarted:
		return "login_started"
	case EvSignal:
		return "signal"
	case EvNothingFound:
		return "nothing_found"
	case EvPayloadFound:
		return "payload_found"
	case EvRegistered:
		return "registered"
	case EvRegisterFailed:
		return "register_failed"
	case EvAbandoned:
		return "abandoned"
	case EvRestored:
		return "restored"
	case EvLogout:
		return "logout"
	case EvReset:
		return "reset"
	default:
		return "unknown"
	}
}

// ErrIllegalTransition is returned when an event is not allowed in the
// current state.
var ErrIllegalTransition = errors.New("illegal session transition")

// Transition is a single allowed edge of the handshake.
type Transition struct {
	From  State
	To    State
	Event EventKind
}

var transitionsTable = []Transition{
	// Native redirect path
	{From: StateIdle, To: StateAwaitingRedirect, Event: EvLoginStarted},
	{From: StateAwaitingRedirect, To: StateResolving, Event: EvSignal},
	{From: StateResolving, To: StateAwaitingRedirect, Event: EvNothingFound},
	{From: StateResolving, To: StateRegistering, Event: EvPayloadFound},
	{From: StateRegistering, To: StateConnected, Event: EvRegistered},
	{From: StateRegistering, To: StateIdle, Event: EvRegisterFailed},

	// Cold-start deep link or in-process connect
	{From: StateIdle, To: StateRegistering, Event: EvPayloadFound},
	{From: StateIdle, To: StateConnected, Event: EvRestored},

	// Budget exhausted, browser dismissed or attempt canceled
	{From: StateAwaitingRedirect, To: StateIdle, Event: EvAbandoned},
	{From: StateResolving, To: StateIdle, Event: EvAbandoned},

	// Explicit logout from any live state
	{From: StateIdle, To: StateLoggedOut, Event: EvLogout},
	{From: StateAwaitingRedirect, To: StateLoggedOut, Event: EvLogout},
	{From: StateResolving, To: StateLoggedOut, Event: EvLogout},
	{From: StateRegistering, To: StateLoggedOut, Event: EvLogout},
	{From: StateConnected, To: StateLoggedOut, Event: EvLogout},
	{From: StateLoggedOut, To: StateIdle, Event: EvReset},
}

// TransitionFor returns the allowed transition for a given state and event.
func TransitionFor(from State, ev EventKind) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}

// Machine holds the current handshake state. It is safe for concurrent use.
type Machine struct {
	mu       sync.Mutex
	state    State
	provider string
}

// NewMachine returns a machine in StateIdle. provider labels metrics.
func NewMachine(provider string) *Machine {
	return &Machine{state: StateIdle, provider: provider}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fire applies ev and returns the new state.
func (m *Machine) Fire(ev EventKind) (State, error) {
	return m.fire(ev, "")
}

// FireIf applies ev only when the machine is in from. It reports whether the
// transition happened.
func (m *Machine) FireIf(from State, ev EventKind) bool {
	_, err := m.fire(ev, from)
	return err == nil
}

func (m *Machine) fire(ev EventKind, want State) (State, error) {
	m.mu.Lock()
	from := m.state
	if want != "" && from != want {
		m.mu.Unlock()
		return from, fmt.Errorf("%w: %s on %s, want %s", ErrIllegalTransition, ev, from, want)
	}
	tr, ok := TransitionFor(from, ev)
	if !ok {
		m.mu.Unlock()
		return from, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, from)
	}
	m.state = tr.To
	m.mu.Unlock()

	metrics.RecordSessionTransition(string(from), string(tr.To))
	logger := xglog.WithComponent("session")
	logger.Debug().
		Str(xglog.FieldOldState, string(from)).
		Str(xglog.FieldNewState, string(tr.To)).
		Str(xglog.FieldEvent, ev.String()).
		Str("provider", m.provider).
		Msg("session transition")
	return tr.To, nil
}
