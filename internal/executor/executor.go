// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package executor submits player actions as one multicall, waits for
// confirmation and reconciles the result with the indexer read-model.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/lootsurvivor/internal/cache"
	"github.com/ManuGH/lootsurvivor/internal/config"
	"github.com/ManuGH/lootsurvivor/internal/game"
	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	"github.com/ManuGH/lootsurvivor/internal/metrics"
	"github.com/ManuGH/lootsurvivor/internal/retry"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
	"github.com/ManuGH/lootsurvivor/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ActionFailedMessage is shown when a submitted action reverts.
const ActionFailedMessage = "Action failed"

// Chain is the part of the RPC client the executor needs.
type Chain interface {
	WaitForTransaction(ctx context.Context, hash string, opts starknet.WaitOptions) (*starknet.Receipt, error)
	TokenURI(ctx context.Context, contract string, tokenID uint64) (string, error)
}

// Accounts yields the currently connected account.
type Accounts interface {
	Account() (starknet.Account, bool)
}

// Names yields the connected player's display name.
type Names interface {
	Username(ctx context.Context) (string, error)
}

// Notifier shows transient messages to the player.
type Notifier interface {
	Warn(message string)
}

// Reloader performs a full client state reset.
type Reloader interface {
	Reload(ctx context.Context)
}

// Navigator changes the visible route.
type Navigator interface {
	Navigate(path string, replace bool)
}

// BeastTokens finds collectable tokens that were already minted.
type BeastTokens interface {
	BeastTokenID(ctx context.Context, beast game.Beast) (uint64, bool, error)
}

// KeyDeleter removes durable keys.
type KeyDeleter interface {
	Delete(ctx context.Context, key string) error
}

// CollectableBeastKey is the durable key holding a beast awaiting collection.
const CollectableBeastKey = "collectable_beast"

// Deps are the collaborators of an Executor. Store, State, Translator,
// Chain and Accounts are required.
type Deps struct {
	Chain      Chain
	State      game.StateReader
	Store      game.Store
	Translator game.Translator
	Accounts   Accounts
	Builder    *game.Builder
	Names      Names
	Notifier   Notifier
	Reloader   Reloader
	Navigator  Navigator
	Tokens     BeastTokens
	Durable    KeyDeleter
	// Cache holds token URIs; optional.
	Cache cache.Cache
}

// Options tunes an Executor.
type Options struct {
	Timing      config.TimingConfig
	ChainID     string
	DungeonSlug string
	TokenURITTL time.Duration
	// Sleep replaces every fixed delay and poll wait; tests inject an instant sleeper.
	Sleep retry.Sleeper
}

// Executor runs player actions. It holds no lock across calls; callers
// serialise user actions.
type Executor struct {
	deps   Deps
	opts   Options
	sleep  retry.Sleeper
	logger zerolog.Logger
}

// New validates deps and returns an Executor.
func New(deps Deps, opts Options) (*Executor, error) {
	switch {
	case deps.Chain == nil:
		return nil, fmt.Errorf("executor: chain client is required")
	case deps.State == nil:
		return nil, fmt.Errorf("executor: state reader is required")
	case deps.Store == nil:
		return nil, fmt.Errorf("executor: game store is required")
	case deps.Translator == nil:
		return nil, fmt.Errorf("executor: translator is required")
	case deps.Accounts == nil:
		return nil, fmt.Errorf("executor: account source is required")
	case deps.Builder == nil:
		return nil, fmt.Errorf("executor: call builder is required")
	}
	if opts.Timing == (config.TimingConfig{}) {
		opts.Timing = config.DefaultTiming()
	}
	if opts.DungeonSlug == "" {
		opts.DungeonSlug = "survivor"
	}
	if opts.TokenURITTL <= 0 {
		opts.TokenURITTL = time.Hour
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = retry.SleepContext
	}
	return &Executor{
		deps:   deps,
		opts:   opts,
		sleep:  sleep,
		logger: xglog.WithComponent("executor"),
	}, nil
}

// Result describes how an executed action ended. Exactly one of Reverted,
// Reloaded and NoEvents is set, or Events holds the latest batch.
type Result struct {
	TransactionHash string
	Receipt         *starknet.Receipt
	Events          []game.DomainEvent
	Reverted        bool
	Reloaded        bool
	NoEvents        bool
}

// Execute submits calls as one transaction and returns the translated
// events of the latest action batch. onHardFailure runs exactly once when
// the transaction reverts or any step fails; onSoftSuccess runs once the
// transaction is pre-confirmed without reverting. Either hook may be nil.
func (e *Executor) Execute(ctx context.Context, calls []starknet.Call, onHardFailure, onSoftSuccess func()) (*Result, error) {
	start := time.Now()
	entrypoint := ""
	if len(calls) > 0 {
		entrypoint = calls[0].Entrypoint
	}

	ctx, span := telemetry.Tracer("lootsurvivor.executor").Start(ctx, "executor.execute")
	defer span.End()

	res, err := e.execute(ctx, calls, entrypoint, onSoftSuccess)
	outcome := metrics.OutcomeConfirmed
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
		if ctx.Err() != nil {
			outcome = metrics.OutcomeCanceled
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error().Err(err).Str(xglog.FieldEntrypoint, entrypoint).Int("calls", len(calls)).Msg("action failed")
		call(onHardFailure)
	case res.Reverted:
		outcome = metrics.OutcomeReverted
		span.SetStatus(codes.Error, "reverted")
		call(onHardFailure)
	default:
		span.SetStatus(codes.Ok, "")
	}
	metrics.ObserveActionDuration(outcome, time.Since(start).Seconds())
	return res, err
}

func (e *Executor) execute(ctx context.Context, calls []starknet.Call, entrypoint string, onSoftSuccess func()) (*Result, error) {
	if len(calls) == 0 {
		return nil, ErrNoCalls
	}
	account, ok := e.deps.Accounts.Account()
	if !ok {
		return nil, ErrNoAccount
	}

	if err := e.WaitForGlobalState(ctx, calls); err != nil {
		return nil, err
	}

	tx, err := account.Execute(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", entrypoint, err)
	}
	metrics.IncTransactionSubmitted(entrypoint)
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(telemetry.TransactionAttributes(e.opts.ChainID, tx.TransactionHash, entrypoint, len(calls))...)
	ctx = xglog.ContextWithTxHash(ctx, tx.TransactionHash)
	logger := xglog.WithComponentFromContext(ctx, "executor")
	logger.Debug().Str(xglog.FieldEntrypoint, entrypoint).Int("calls", len(calls)).Msg("action submitted")

	receipt, err := e.WaitForPreConfirmedTransaction(ctx, tx.TransactionHash)
	if err != nil {
		return nil, err
	}
	res := &Result{TransactionHash: tx.TransactionHash, Receipt: receipt}
	span.SetAttributes(telemetry.ReceiptAttributes(string(receipt.FinalityStatus), string(receipt.ExecutionStatus))...)

	if receipt.Reverted() {
		metrics.IncTransactionReverted(entrypoint)
		logger.Warn().
			Str(xglog.FieldEntrypoint, entrypoint).
			Str("revert_reason", receipt.RevertReason).
			Msg("transaction reverted")
		if e.deps.Notifier != nil {
			e.deps.Notifier.Warn(ActionFailedMessage)
		}
		res.Reverted = true
		return res, nil
	}
	call(onSoftSuccess)

	gameID, _ := e.deps.Store.GameID()
	events, fatal := e.translate(receipt.Events, gameID)
	if fatal {
		logger.Error().Uint64(xglog.FieldGameID, gameID).Msg("fatal game state, reloading")
		if err := e.sleep(ctx, e.opts.Timing.FatalReloadDelay); err != nil {
			return nil, err
		}
		if e.deps.Reloader != nil {
			e.deps.Reloader.Reload(ctx)
		}
		res.Reloaded = true
		return res, nil
	}
	if len(events) == 0 {
		res.NoEvents = true
		return res, nil
	}
	res.Events = LatestBatch(events)
	return res, nil
}

func (e *Executor) translate(raw []starknet.Event, gameID uint64) ([]game.DomainEvent, bool) {
	var out []game.DomainEvent
	fatal := false
	for _, ev := range raw {
		t := e.deps.Translator.Translate(ev, gameID)
		if t.Fatal {
			fatal = true
			continue
		}
		if t.Event != nil {
			out = append(out, *t.Event)
		}
	}
	return out, fatal
}

// LatestBatch keeps the events whose action count is 1 or the maximum.
func LatestBatch(events []game.DomainEvent) []game.DomainEvent {
	if len(events) == 0 {
		return nil
	}
	var maxCount uint16
	for _, ev := range events {
		maxCount = max(maxCount, ev.ActionCount)
	}
	out := make([]game.DomainEvent, 0, len(events))
	for _, ev := range events {
		if ev.ActionCount == 1 || ev.ActionCount == maxCount {
			out = append(out, ev)
		}
	}
	return out
}

func (e *Executor) account() (starknet.Account, error) {
	account, ok := e.deps.Accounts.Account()
	if !ok {
		return nil, ErrNoAccount
	}
	return account, nil
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
