// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across the client core.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPURLKey        = "http.url"

	// RPC attributes
	RPCMethodKey  = "rpc.method"
	RPCAttemptKey = "rpc.attempt"

	// Chain attributes
	ChainIDKey     = "chain.id"
	TxHashKey      = "chain.tx_hash"
	EntrypointKey  = "chain.entrypoint"
	CallCountKey   = "chain.call_count"
	FinalityKey    = "chain.finality"
	ExecutionKey   = "chain.execution"
	GameIDKey      = "game.id"
	ActionCountKey = "game.action_count"

	// Session attributes
	SessionStateKey    = "session.state"
	SessionProviderKey = "session.provider"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// RPCAttributes describes one JSON-RPC attempt.
func RPCAttributes(method string, attempt int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RPCMethodKey, method),
		attribute.Int(RPCAttemptKey, attempt),
	}
}

// TransactionAttributes describes a submitted multicall. Empty values are omitted.
func TransactionAttributes(chainID, txHash, entrypoint string, calls int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if chainID != "" {
		attrs = append(attrs, attribute.String(ChainIDKey, chainID))
	}
	if txHash != "" {
		attrs = append(attrs, attribute.String(TxHashKey, txHash))
	}
	if entrypoint != "" {
		attrs = append(attrs, attribute.String(EntrypointKey, entrypoint))
	}
	return append(attrs, attribute.Int(CallCountKey, calls))
}

// ReceiptAttributes describes a receipt status read.
func ReceiptAttributes(finality, execution string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(FinalityKey, finality),
		attribute.String(ExecutionKey, execution),
	}
}

// GameAttributes describes the adventurer a span acts on.
func GameAttributes(gameID uint64, actionCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(GameIDKey, int64(gameID)),
		attribute.Int(ActionCountKey, actionCount),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, err.Error()),
	}
}
