package models

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle event types, one per orchestrator operation.
const (
	EventTypeCreate  = "create"
	EventTypeFund    = "fund"
	EventTypeRelease = "release"
	EventTypeDispute = "dispute"
	EventTypeCancel  = "cancel"
	EventTypeVerify  = "verify"
)

// EscrowLogEntry records one lifecycle attempt: exactly one row per
// attempt, even when the consensus submission fails. Rows are immutable
// once written, except for a late-arriving proof id backfilled by the
// reconciliation job. The serialized payload is kept so reconciliation
// can resubmit the exact message that was committed.
type EscrowLogEntry struct {
	ID               uuid.UUID `json:"id"`
	TransactionID    string    `json:"transaction_id"`
	EventType        string    `json:"event_type"`
	TopicReference   string    `json:"topic_reference"`
	Payload          []byte    `json:"payload,omitempty"`
	ConsensusProofID *string   `json:"consensus_proof_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
