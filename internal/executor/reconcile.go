// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package executor

import (
	"context"

	"github.com/ManuGH/lootsurvivor/internal/felt"
	"github.com/ManuGH/lootsurvivor/internal/game"
	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	"github.com/ManuGH/lootsurvivor/internal/metrics"
	"github.com/ManuGH/lootsurvivor/internal/retry"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
)

// WaitForGlobalState holds submission until the indexer has caught up
// with the client's action count. Actions whose outcome cannot depend on
// unindexed state skip the wait. After the retry budget the wait gives up
// and lets the action proceed; only context errors are returned.
func (e *Executor) WaitForGlobalState(ctx context.Context, calls []starknet.Call) error {
	adventurer := e.deps.Store.Adventurer()
	gameID, hasGame := e.deps.Store.GameID()
	if adventurer == nil || !hasGame {
		metrics.RecordReconciliation(metrics.OutcomeSkipped)
		return nil
	}
	if reconciliationExempt(adventurer, e.deps.Store.Beast(), e.deps.Store.LastExploreEvent(), calls) {
		metrics.RecordReconciliation(metrics.OutcomeSkipped)
		return nil
	}

	want := adventurer.ActionCount
	policy := retry.Policy{
		MaxRetries: e.opts.Timing.ReconcileRetries,
		Backoff:    retry.Constant(e.opts.Timing.ReconcileInterval),
		Sleep:      e.sleep,
	}
	caughtUp, err := retry.Poll(ctx, policy, func(ctx context.Context, _ int) (bool, error) {
		st, err := e.deps.State.AdventurerState(ctx, gameID)
		if err != nil {
			e.logger.Debug().Err(err).Uint64(xglog.FieldGameID, gameID).Msg("read-model poll failed")
			return false, err
		}
		return st != nil && st.ActionCount == want, nil
	})
	if err != nil {
		metrics.RecordReconciliation(metrics.OutcomeCanceled)
		return err
	}
	if !caughtUp {
		metrics.RecordReconciliation(metrics.OutcomeExhausted)
		e.logger.Warn().
			Uint64(xglog.FieldGameID, gameID).
			Uint16(xglog.FieldActionCount, want).
			Msg("read-model did not catch up, submitting anyway")
		return nil
	}
	metrics.RecordReconciliation(metrics.OutcomeConfirmed)
	return nil
}

// reconciliationExempt reports whether the action may be submitted without
// waiting for the read-model.
func reconciliationExempt(adv *game.Adventurer, beast *game.Beast, last *game.ExploreEvent, calls []starknet.Call) bool {
	if beast != nil && adv.BeastHealth > 0 && adv.BeastHealth < beast.Health {
		return true
	}
	if last == nil {
		return false
	}

	switch last.Type {
	case game.EventDiscovery:
		if last.Discovery == nil {
			return false
		}
		switch last.Discovery.Type {
		case game.DiscoveryHealth:
			return true
		case game.DiscoveryGold:
			return !hasCall(calls, isEntrypoint(game.EntrypointBuyItems))
		case game.DiscoveryLoot:
			return !hasCall(calls, isEntrypoint(game.EntrypointEquip, game.EntrypointDrop))
		}
	case game.EventObstacle:
		return !hasCall(calls, buysPotions)
	case game.EventBuyItems:
		return len(last.ItemsPurchased) == 0 || !hasCall(calls, isEntrypoint(game.EntrypointEquip))
	}
	return false
}

func hasCall(calls []starknet.Call, match func(starknet.Call) bool) bool {
	for _, c := range calls {
		if match(c) {
			return true
		}
	}
	return false
}

func isEntrypoint(names ...string) func(starknet.Call) bool {
	return func(c starknet.Call) bool {
		for _, n := range names {
			if c.Entrypoint == n {
				return true
			}
		}
		return false
	}
}

// buysPotions matches buy_items calls with a positive potion count.
func buysPotions(c starknet.Call) bool {
	if c.Entrypoint != game.EntrypointBuyItems || len(c.Calldata) < 2 {
		return false
	}
	potions, err := felt.ParseUint64(c.Calldata[1])
	return err == nil && potions > 0
}
