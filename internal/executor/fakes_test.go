// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package executor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/lootsurvivor/internal/config"
	"github.com/ManuGH/lootsurvivor/internal/game"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
	"github.com/stretchr/testify/require"
)

var testContracts = config.Contracts{
	GameSystems:   "0xgame",
	GameToken:     "0xtoken",
	Settings:      "0xsettings",
	Dungeon:       "0xdungeon",
	DungeonTicket: "0xticket",
	VRFProvider:   "0xvrf",
	Beasts:        "0xbeasts",
}

type fakeAccount struct {
	mu      sync.Mutex
	address string
	batches [][]starknet.Call
	calls   int
	err     error
}

func (a *fakeAccount) Address() string { return a.address }

func (a *fakeAccount) Execute(_ context.Context, calls []starknet.Call) (starknet.InvokeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return starknet.InvokeResult{}, a.err
	}
	a.batches = append(a.batches, calls)
	return starknet.InvokeResult{TransactionHash: fmt.Sprintf("0x%x", len(a.batches))}, nil
}

func (a *fakeAccount) submitted() [][]starknet.Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batches
}

type fakeAccounts struct {
	account starknet.Account
}

func (f fakeAccounts) Account() (starknet.Account, bool) {
	return f.account, f.account != nil
}

// fakeChain returns receipts from a queue; once the queue is empty it keeps
// returning the last entry.
type fakeChain struct {
	mu       sync.Mutex
	results  []chainResult
	waits    []starknet.WaitOptions
	uris     []string
	uriCalls int
}

type chainResult struct {
	receipt *starknet.Receipt
	err     error
}

func (c *fakeChain) WaitForTransaction(_ context.Context, hash string, opts starknet.WaitOptions) (*starknet.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, opts)
	if len(c.results) == 0 {
		return &starknet.Receipt{TransactionHash: hash, ExecutionStatus: starknet.ExecutionSucceeded}, nil
	}
	r := c.results[0]
	if len(c.results) > 1 {
		c.results = c.results[1:]
	}
	return r.receipt, r.err
}

func (c *fakeChain) TokenURI(context.Context, string, uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uriCalls++
	if len(c.uris) == 0 {
		return "", nil
	}
	v := c.uris[0]
	if len(c.uris) > 1 {
		c.uris = c.uris[1:]
	}
	return v, nil
}

func (c *fakeChain) waitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waits)
}

type fakeState struct {
	mu     sync.Mutex
	states []*game.AdventurerState
	err    error
	reads  int
}

func (s *fakeState) AdventurerState(context.Context, uint64) (*game.AdventurerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.states) == 0 {
		return nil, nil
	}
	st := s.states[0]
	if len(s.states) > 1 {
		s.states = s.states[1:]
	}
	return st, nil
}

func (s *fakeState) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

type fakeStore struct {
	gameID     uint64
	hasGame    bool
	adventurer *game.Adventurer
	beast      *game.Beast
	last       *game.ExploreEvent
	tokenURI   string
}

func (s *fakeStore) GameID() (uint64, bool) { return s.gameID, s.hasGame }
func (s *fakeStore) Adventurer() *game.Adventurer { return s.adventurer }
func (s *fakeStore) Beast() *game.Beast { return s.beast }
func (s *fakeStore) LastExploreEvent() *game.ExploreEvent { return s.last }
func (s *fakeStore) SetCollectableTokenURI(uri string) { s.tokenURI = uri }

// fakeTranslator reads the action count from the first data word; "fatal"
// marks a fatal translation and "skip" an untranslatable event.
type fakeTranslator struct{}

func (fakeTranslator) Translate(ev starknet.Event, _ uint64) game.Translation {
	if len(ev.Data) == 0 {
		return game.Translation{}
	}
	switch ev.Data[0] {
	case "fatal":
		return game.Translation{Fatal: true}
	case "skip":
		return game.Translation{}
	}
	var n uint16
	_, _ = fmt.Sscan(ev.Data[0], &n)
	return game.Translation{Event: &game.DomainEvent{Type: "event", ActionCount: n}}
}

type recorder struct {
	mu       sync.Mutex
	warnings []string
	reloads  int
	routes   []string
	deleted  []string
	sleeps   []time.Duration
}

func (r *recorder) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, msg)
}

func (r *recorder) Reload(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloads++
}

func (r *recorder) Navigate(path string, replace bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, fmt.Sprintf("%s replace=%t", path, replace))
}

func (r *recorder) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, key)
	return nil
}

func (r *recorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recorder) sleepsOf(d time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sleeps {
		if s == d {
			n++
		}
	}
	return n
}

type fakeNames struct {
	name string
	err  error
}

func (n fakeNames) Username(context.Context) (string, error) { return n.name, n.err }

type fakeTokens struct {
	id uint64
	ok bool
}

func (t fakeTokens) BeastTokenID(context.Context, game.Beast) (uint64, bool, error) {
	return t.id, t.ok, nil
}

var errBoom = errors.New("boom")

type harness struct {
	exec    *Executor
	account *fakeAccount
	chain   *fakeChain
	state   *fakeState
	store   *fakeStore
	rec     *recorder
}

func newHarness(t *testing.T, mutate ...func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		account: &fakeAccount{address: "0xplayer"},
		chain:   &fakeChain{},
		state:   &fakeState{},
		store:   &fakeStore{gameID: 7, hasGame: true},
		rec:     &recorder{},
	}
	deps := Deps{
		Chain:      h.chain,
		State:      h.state,
		Store:      h.store,
		Translator: fakeTranslator{},
		Accounts:   fakeAccounts{account: h.account},
		Builder:    game.NewBuilderWithRand(testContracts, rand.New(rand.NewSource(1))),
		Names:      fakeNames{name: "Sir Loot"},
		Notifier:   h.rec,
		Reloader:   h.rec,
		Navigator:  h.rec,
		Durable:    h.rec,
	}
	for _, m := range mutate {
		m(&deps)
	}
	exec, err := New(deps, Options{Timing: config.DefaultTiming(), ChainID: "SN_MAIN", Sleep: h.rec.sleep})
	require.NoError(t, err)
	h.exec = exec
	return h
}

func receiptWith(exec starknet.ExecutionStatus, data ...string) *starknet.Receipt {
	r := &starknet.Receipt{TransactionHash: "0x1", ExecutionStatus: exec, FinalityStatus: starknet.StatusPreConfirmed}
	for _, d := range data {
		r.Events = append(r.Events, starknet.Event{Data: []string{d}})
	}
	return r
}

type hooks struct {
	hard, soft int
}

func (h *hooks) onHard() { h.hard++ }
func (h *hooks) onSoft() { h.soft++ }
