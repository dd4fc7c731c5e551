// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package starknet

import (
	"context"
	"errors"
	"fmt"
	"time"

	xglog "github.com/ManuGH/lootsurvivor/internal/log"
	"github.com/ManuGH/lootsurvivor/internal/retry"
)

// DefaultPollLimit bounds the status reads of one confirmation attempt.
const DefaultPollLimit = 120

// WaitOptions configures one confirmation attempt.
type WaitOptions struct {
	// Interval between status reads.
	Interval time.Duration
	// SuccessStates ends the wait once the finality status is one of them.
	SuccessStates []FinalityStatus
	// PollLimit caps status reads; zero means DefaultPollLimit.
	PollLimit int
}

// WaitForTransaction polls the status of hash until its finality reaches
// one of opts.SuccessStates and then returns the receipt. A reverted
// execution is returned as a receipt, not as an error. A rejected
// transaction returns ErrRejected; a not-yet-known hash keeps polling; any
// other read error ends the attempt.
func (c *Client) WaitForTransaction(ctx context.Context, hash string, opts WaitOptions) (*Receipt, error) {
	states := opts.SuccessStates
	if len(states) == 0 {
		states = FinalStates
	}
	limit := opts.PollLimit
	if limit <= 0 {
		limit = DefaultPollLimit
	}
	logger := c.logger.With().Str(xglog.FieldTxHash, hash).Logger()

	var readErr error
	var last TransactionStatus
	done, err := retry.Poll(ctx, retry.Policy{
		MaxRetries: limit - 1,
		Backoff:    retry.Constant(opts.Interval),
		Sleep:      c.sleep,
	}, func(ctx context.Context, _ int) (bool, error) {
		status, err := c.GetTransactionStatus(ctx, hash)
		if err != nil {
			if IsRetryableRead(err) {
				return false, nil
			}
			readErr = err
			return true, nil
		}
		last = status
		if status.FinalityStatus == StatusRejected {
			readErr = fmt.Errorf("%w: %s", ErrRejected, status.FailureReason)
			return true, nil
		}
		return containsStatus(states, status.FinalityStatus), nil
	})
	if err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}
	if !done {
		return nil, fmt.Errorf("%w: %d reads, last status %q", ErrPollLimit, limit, last.FinalityStatus)
	}

	logger.Debug().
		Str(xglog.FieldFinality, string(last.FinalityStatus)).
		Str(xglog.FieldExecution, string(last.ExecutionStatus)).
		Msg("transaction reached target finality")

	receipt, err := c.GetTransactionReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if receipt.TransactionHash == "" {
		receipt.TransactionHash = hash
	}
	if receipt.FinalityStatus == "" {
		receipt.FinalityStatus = last.FinalityStatus
	}
	if receipt.ExecutionStatus == "" && last.ExecutionStatus != "" {
		receipt.ExecutionStatus = last.ExecutionStatus
	}
	return receipt, nil
}

// IsTerminal reports whether err from WaitForTransaction must not be retried.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrRejected)
}
