package consensus

import "errors"

// ErrNotConfigured means the operator identity is missing. The process
// cannot reach the ledger at all; never retried.
var ErrNotConfigured = errors.New("consensus: operator credentials not configured")

// TransportError wraps network/protocol failures and deadline expiry.
// Transient: the business transition still commits, the proof is attached
// later by reconciliation.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "consensus: transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError means the network explicitly refused the message (bad
// signature, unknown topic). Blind retry will not help without a
// different message, so it is logged distinctly from transport failures.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return "consensus: rejected: " + e.Reason }
