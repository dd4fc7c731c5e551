// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package starknet

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable marks transport failures and non-200 replies.
	ErrUpstreamUnavailable = errors.New("starknet rpc unavailable")
	// ErrRPC matches every JSON-RPC error object.
	ErrRPC = errors.New("starknet rpc error")
	// ErrTxNotFound is reported while a submitted transaction is not yet known to the node.
	ErrTxNotFound = errors.New("transaction not found")
	// ErrRejected is returned when the sequencer rejects a transaction.
	ErrRejected = errors.New("transaction rejected")
	// ErrPollLimit is returned when a confirmation attempt runs out of status reads.
	ErrPollLimit = errors.New("transaction status poll limit reached")
)

// JSON-RPC error codes with dedicated handling.
const (
	CodeTxHashNotFound = 29
	CodeContractError  = 40
)

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Is lets callers match RPC errors with errors.Is.
func (e *RPCError) Is(target error) bool {
	switch target {
	case ErrRPC:
		return true
	case ErrTxNotFound:
		return e.Code == CodeTxHashNotFound
	}
	return false
}
