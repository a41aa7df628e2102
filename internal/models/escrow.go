package models

import "time"

// Escrow transaction statuses
const (
	EscrowStatusPending   = "pending"
	EscrowStatusFunded    = "funded"
	EscrowStatusReleased  = "released"
	EscrowStatusDisputed  = "disputed"
	EscrowStatusCancelled = "cancelled"
)

// Valid state transitions: from -> []to. Forward-only, no state is re-enterable.
var ValidEscrowTransitions = map[string][]string{
	EscrowStatusPending:   {EscrowStatusFunded, EscrowStatusCancelled},
	EscrowStatusFunded:    {EscrowStatusReleased, EscrowStatusDisputed},
	EscrowStatusReleased:  {},
	EscrowStatusDisputed:  {},
	EscrowStatusCancelled: {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidEscrowTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transitions are possible.
func IsTerminalStatus(status string) bool {
	allowed, ok := ValidEscrowTransitions[status]
	return ok && len(allowed) == 0
}

// EscrowTransaction is the authoritative relational record of a trade.
// The ID is an opaque caller-supplied identifier; parties, amount and
// currency are immutable after creation. Only the orchestrator mutates
// status; rows are never deleted (financial record).
type EscrowTransaction struct {
	ID               string    `json:"id"`
	BuyerID          string    `json:"buyer_id"`
	SellerID         string    `json:"seller_id"`
	Amount           string    `json:"amount"` // numeric as string
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
	ConsensusProofID *string   `json:"consensus_proof_id,omitempty"`
	ContractProofID  *string   `json:"contract_proof_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Confirmation states for the read-side projection: the business status
// is always definitive, the ledger proof may lag behind it.
const (
	ConfirmationUnproven       = "unproven"
	ConfirmationProven         = "proven"
	ConfirmationTerminalProven = "terminal_proven"
)

func (t *EscrowTransaction) Confirmation() string {
	if t.ConsensusProofID == nil || *t.ConsensusProofID == "" {
		return ConfirmationUnproven
	}
	if IsTerminalStatus(t.Status) {
		return ConfirmationTerminalProven
	}
	return ConfirmationProven
}
