// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package executor

import (
	"context"
	"errors"
	"fmt"

	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	"github.com/ManuGH/lootsurvivor/internal/metrics"
	"github.com/ManuGH/lootsurvivor/internal/retry"
	"github.com/ManuGH/lootsurvivor/internal/starknet"
)

// Confirmation targets used as metric labels.
const (
	targetPreConfirmed = "pre_confirmed"
	targetFinal        = "final"
)

// WaitForPreConfirmedTransaction waits for the fast finality states. A
// failed wait is retried after a pause; a rejected transaction is not.
func (e *Executor) WaitForPreConfirmedTransaction(ctx context.Context, hash string) (*starknet.Receipt, error) {
	t := e.opts.Timing
	return e.confirm(ctx, hash, targetPreConfirmed, t.PreConfirmRetries, starknet.WaitOptions{
		Interval:      t.PreConfirmInterval,
		SuccessStates: starknet.PreConfirmedStates,
		PollLimit:     t.ReceiptPollLimit,
	})
}

// WaitForTransaction waits for L2 or L1 acceptance.
func (e *Executor) WaitForTransaction(ctx context.Context, hash string) (*starknet.Receipt, error) {
	t := e.opts.Timing
	return e.confirm(ctx, hash, targetFinal, t.ConfirmRetries, starknet.WaitOptions{
		Interval:      t.ConfirmInterval,
		SuccessStates: starknet.FinalStates,
		PollLimit:     t.ReceiptPollLimit,
	})
}

func (e *Executor) confirm(ctx context.Context, hash, target string, retries int, opts starknet.WaitOptions) (*starknet.Receipt, error) {
	policy := retry.Policy{
		MaxRetries: retries,
		Backoff:    retry.Constant(e.opts.Timing.ConfirmBackoff),
		Sleep:      e.sleep,
	}
	attempts := 0
	receipt, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) (*starknet.Receipt, error) {
		attempts = attempt + 1
		r, err := e.deps.Chain.WaitForTransaction(ctx, hash, opts)
		if err != nil {
			e.logger.Debug().Err(err).
				Str(xglog.FieldTxHash, hash).
				Int(xglog.FieldAttempt, attempts).
				Str("target", target).
				Msg("confirmation attempt failed")
			if starknet.IsTerminal(err) {
				return nil, retry.Permanent(err)
			}
			return nil, err
		}
		return r, nil
	})
	if err != nil {
		outcome := metrics.OutcomeError
		switch {
		case ctx.Err() != nil:
			outcome = metrics.OutcomeCanceled
		case errors.Is(err, retry.ErrExhausted):
			outcome = metrics.OutcomeExhausted
		}
		metrics.RecordConfirmation(target, outcome, attempts)
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrTransactionFailed, hash, err)
	}

	outcome := metrics.OutcomeConfirmed
	if receipt.Reverted() {
		outcome = metrics.OutcomeReverted
	}
	metrics.RecordConfirmation(target, outcome, attempts)
	return receipt, nil
}
