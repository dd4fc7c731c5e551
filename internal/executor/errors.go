// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package executor

import "errors"

var (
	// ErrTransactionFailed is returned when no confirmation attempt produced a receipt.
	ErrTransactionFailed = errors.New("transaction failed")
	// ErrNoAccount is returned when an action is attempted without a connected account.
	ErrNoAccount = errors.New("no connected account")
	// ErrInvalidAmount is returned for non-positive purchase quantities.
	ErrInvalidAmount = errors.New("invalid purchase amount")
	// ErrNoCalls is returned when Execute is called with an empty batch.
	ErrNoCalls = errors.New("no calls to execute")
)
