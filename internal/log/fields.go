// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldAttemptID     = "attempt_id"
	FieldCorrelationID = "correlation_id"
	FieldGameID        = "game_id"
	FieldAddress       = "address"
	FieldUsername      = "username"

	// Chain fields
	FieldTxHash      = "tx_hash"
	FieldEntrypoint  = "entrypoint"
	FieldContract    = "contract"
	FieldActionCount = "action_count"
	FieldAttempt     = "attempt"
	FieldFinality    = "finality_status"
	FieldExecution   = "execution_status"
	FieldChainID     = "chain_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldTopic     = "topic"
	FieldSource    = "source"
	FieldService   = "service"
	FieldVersion   = "version"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldURL     = "url"
	FieldBaseURL = "base_url"
	FieldKey     = "key"
)
