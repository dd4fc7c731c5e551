// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/lootsurvivor/internal/game"
	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	"github.com/ManuGH/lootsurvivor/internal/metrics"
	"github.com/ManuGH/lootsurvivor/internal/retry"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
)

// ClaimBeast collects a defeated beast as a token and returns its id. The
// whole claim is retried ClaimRetries times. Jackpot beasts also claim the
// jackpot; a failed jackpot claim is logged and does not repeat the beast claim.
func (e *Executor) ClaimBeast(ctx context.Context, gameID uint64, beast game.Beast) (uint64, error) {
	t := e.opts.Timing
	logger := e.logger.With().Uint64(xglog.FieldGameID, gameID).Uint8("beast_id", beast.ID).Logger()

	policy := retry.Policy{MaxRetries: t.ClaimRetries, Backoff: retry.Constant(t.ClaimRetryDelay), Sleep: e.sleep}
	tokenID, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) (uint64, error) {
		id, err := e.claimBeastOnce(ctx, gameID, beast)
		if err != nil {
			logger.Warn().Err(err).Int(xglog.FieldAttempt, attempt+1).Msg("beast claim failed")
		}
		return id, err
	})
	if err != nil {
		return 0, err
	}

	uri := e.fetchTokenURI(ctx, tokenID)
	if uri != "" {
		e.deps.Store.SetCollectableTokenURI(uri)
	} else {
		logger.Warn().Uint64("token_id", tokenID).Msg("token uri not available")
	}

	if game.IsJackpot(beast) {
		if err := e.ClaimJackpot(ctx, tokenID); err != nil {
			logger.Error().Err(err).Uint64("token_id", tokenID).Msg("jackpot claim failed")
		}
	}

	if e.deps.Durable != nil {
		if err := e.deps.Durable.Delete(ctx, CollectableBeastKey); err != nil {
			logger.Warn().Err(err).Msg("clear collectable beast")
		}
	}
	logger.Info().Uint64("token_id", tokenID).Msg("beast collected")
	return tokenID, nil
}

func (e *Executor) claimBeastOnce(ctx context.Context, gameID uint64, beast game.Beast) (uint64, error) {
	account, err := e.account()
	if err != nil {
		return 0, retry.Permanent(err)
	}
	if err := e.waitForBeastDefeated(ctx, gameID); err != nil {
		return 0, err
	}
	if err := e.sleep(ctx, e.opts.Timing.ClaimWarmup); err != nil {
		return 0, err
	}

	tx, err := account.Execute(ctx, []starknet.Call{e.deps.Builder.ClaimBeast(gameID, beast)})
	if err != nil {
		return 0, fmt.Errorf("submit claim_beast: %w", err)
	}
	metrics.IncTransactionSubmitted("claim_beast")

	receipt, err := e.WaitForTransaction(ctx, tx.TransactionHash)
	if err != nil {
		return 0, err
	}
	if receipt.Reverted() {
		metrics.IncTransactionReverted("claim_beast")
		return 0, fmt.Errorf("%w: claim_beast reverted: %s", ErrTransactionFailed, receipt.RevertReason)
	}
	return game.ClaimedBeastTokenID(receipt)
}

// waitForBeastDefeated polls the read-model until the beast has no health
// left. It gives up silently after ClaimPollRetries.
func (e *Executor) waitForBeastDefeated(ctx context.Context, gameID uint64) error {
	t := e.opts.Timing
	_, err := retry.Poll(ctx, retry.Policy{
		MaxRetries: t.ClaimPollRetries,
		Backoff:    retry.Constant(t.ClaimPollInterval),
		Sleep:      e.sleep,
	}, func(ctx context.Context, _ int) (bool, error) {
		st, err := e.deps.State.AdventurerState(ctx, gameID)
		if err != nil {
			return false, err
		}
		return st != nil && st.BeastHealth == 0, nil
	})
	return err
}

// fetchTokenURI reads the beast token's metadata URI, retrying while the
// indexer and node catch up. The result is cached.
func (e *Executor) fetchTokenURI(ctx context.Context, tokenID uint64) string {
	contract := e.deps.Builder.Contracts().Beasts
	key := fmt.Sprintf("token_uri:%s:%d", contract, tokenID)
	if e.deps.Cache != nil {
		if v, ok := e.deps.Cache.Get(ctx, key); ok {
			return v
		}
	}

	t := e.opts.Timing
	var uri string
	_, _ = retry.Poll(ctx, retry.Policy{
		MaxRetries: t.TokenURIRetries,
		Backoff:    retry.Constant(t.TokenURIInterval),
		Sleep:      e.sleep,
	}, func(ctx context.Context, _ int) (bool, error) {
		v, err := e.deps.Chain.TokenURI(ctx, contract, tokenID)
		if err != nil {
			return false, err
		}
		uri = v
		return v != "", nil
	})

	if uri != "" && e.deps.Cache != nil {
		e.deps.Cache.Set(ctx, key, uri, e.opts.TokenURITTL)
	}
	return uri
}

// ClaimSurvivorTokens claims the reward tokens earned by gameID.
func (e *Executor) ClaimSurvivorTokens(ctx context.Context, gameID uint64) error {
	_, err := e.Execute(ctx, []starknet.Call{e.deps.Builder.ClaimRewardToken(gameID)}, nil, nil)
	return err
}

// ClaimJackpot claims the jackpot for a collected beast token.
func (e *Executor) ClaimJackpot(ctx context.Context, tokenID uint64) error {
	_, err := e.Execute(ctx, []starknet.Call{e.deps.Builder.ClaimJackpot(tokenID)}, nil, nil)
	return err
}

// RefreshDungeonStats refreshes a collected beast's dungeon stats after
// wait. Beasts without a minted token are skipped.
func (e *Executor) RefreshDungeonStats(ctx context.Context, beast game.Beast, wait time.Duration) error {
	if e.deps.Tokens == nil {
		return nil
	}
	tokenID, ok, err := e.deps.Tokens.BeastTokenID(ctx, beast)
	if err != nil {
		return fmt.Errorf("lookup beast token: %w", err)
	}
	if !ok {
		return nil
	}
	if err := e.sleep(ctx, wait); err != nil {
		return err
	}
	_, err = e.Execute(ctx, []starknet.Call{e.deps.Builder.RefreshDungeonStats(tokenID)}, nil, nil)
	return err
}

// CreateSettings registers custom game settings.
func (e *Executor) CreateSettings(ctx context.Context, settings game.Settings) (*Result, error) {
	c, err := e.deps.Builder.AddSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return e.Execute(ctx, []starknet.Call{c}, nil, nil)
}
