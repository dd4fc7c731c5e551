// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package starknet holds the chain types shared by the executor and the
// session, and a JSON-RPC client for transaction status, receipts and
// contract reads.
package starknet

import (
	"context"
	"slices"
)

// FinalityStatus is the finality stage reported for a transaction.
type FinalityStatus string

const (
	StatusReceived     FinalityStatus = "RECEIVED"
	StatusCandidate    FinalityStatus = "CANDIDATE"
	StatusPreConfirmed FinalityStatus = "PRE_CONFIRMED"
	StatusAcceptedOnL2 FinalityStatus = "ACCEPTED_ON_L2"
	StatusAcceptedOnL1 FinalityStatus = "ACCEPTED_ON_L1"
	StatusRejected     FinalityStatus = "REJECTED"
)

// ExecutionStatus is the execution outcome of an accepted transaction.
type ExecutionStatus string

const (
	ExecutionSucceeded ExecutionStatus = "SUCCEEDED"
	ExecutionReverted  ExecutionStatus = "REVERTED"
)

// PreConfirmedStates are accepted by the fast confirmation wait.
var PreConfirmedStates = []FinalityStatus{StatusPreConfirmed, StatusAcceptedOnL2, StatusAcceptedOnL1}

// FinalStates are accepted by the full confirmation wait.
var FinalStates = []FinalityStatus{StatusAcceptedOnL2, StatusAcceptedOnL1}

// Call is one contract invocation inside a multicall.
type Call struct {
	ContractAddress string   `json:"contractAddress"`
	Entrypoint      string   `json:"entrypoint"`
	Calldata        []string `json:"calldata"`
}

// Event is a raw event emitted by a transaction.
type Event struct {
	FromAddress string   `json:"from_address"`
	Keys        []string `json:"keys"`
	Data        []string `json:"data"`
}

// Receipt is the immutable result of an accepted transaction.
type Receipt struct {
	TransactionHash string          `json:"transaction_hash"`
	ExecutionStatus ExecutionStatus `json:"execution_status"`
	FinalityStatus  FinalityStatus  `json:"finality_status"`
	Events          []Event         `json:"events"`
	RevertReason    string          `json:"revert_reason,omitempty"`
}

// Reverted reports whether execution failed on chain.
func (r *Receipt) Reverted() bool {
	return r != nil && r.ExecutionStatus == ExecutionReverted
}

// TransactionStatus is the result of starknet_getTransactionStatus.
type TransactionStatus struct {
	FinalityStatus  FinalityStatus  `json:"finality_status"`
	ExecutionStatus ExecutionStatus `json:"execution_status,omitempty"`
	FailureReason   string          `json:"failure_reason,omitempty"`
}

// InvokeResult identifies a submitted transaction.
type InvokeResult struct {
	TransactionHash string `json:"transaction_hash"`
}

// Account signs and submits multicalls on behalf of the connected player.
type Account interface {
	Address() string
	Execute(ctx context.Context, calls []Call) (InvokeResult, error)
}

func containsStatus(states []FinalityStatus, s FinalityStatus) bool {
	return slices.Contains(states, s)
}
