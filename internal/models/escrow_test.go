package models

import "testing"

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{EscrowStatusPending, EscrowStatusFunded, true},
		{EscrowStatusFunded, EscrowStatusReleased, true},
		{EscrowStatusFunded, EscrowStatusDisputed, true},
		{EscrowStatusPending, EscrowStatusCancelled, true},

		// No state is re-enterable
		{EscrowStatusPending, EscrowStatusPending, false},
		{EscrowStatusFunded, EscrowStatusFunded, false},

		// Skipping fund
		{EscrowStatusPending, EscrowStatusReleased, false},
		{EscrowStatusPending, EscrowStatusDisputed, false},

		// Backwards
		{EscrowStatusFunded, EscrowStatusPending, false},
		{EscrowStatusReleased, EscrowStatusFunded, false},

		// Out of terminals
		{EscrowStatusReleased, EscrowStatusDisputed, false},
		{EscrowStatusDisputed, EscrowStatusReleased, false},
		{EscrowStatusCancelled, EscrowStatusFunded, false},
		{EscrowStatusFunded, EscrowStatusCancelled, false},

		// Unknown statuses
		{"nonexistent", EscrowStatusFunded, false},
		{EscrowStatusPending, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		EscrowStatusPending, EscrowStatusFunded, EscrowStatusReleased,
		EscrowStatusDisputed, EscrowStatusCancelled,
	}

	for _, status := range allStatuses {
		if _, ok := ValidEscrowTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidEscrowTransitions map", status)
		}
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	terminal := []string{EscrowStatusReleased, EscrowStatusDisputed, EscrowStatusCancelled}
	for _, status := range terminal {
		if !IsTerminalStatus(status) {
			t.Errorf("status %q should be terminal", status)
		}
		if transitions := ValidEscrowTransitions[status]; len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
	}
	for _, status := range []string{EscrowStatusPending, EscrowStatusFunded} {
		if IsTerminalStatus(status) {
			t.Errorf("status %q should not be terminal", status)
		}
	}
}

func TestConfirmation(t *testing.T) {
	proof := "42000001:ab12cd"

	tests := []struct {
		name     string
		tx       EscrowTransaction
		expected string
	}{
		{"no proof", EscrowTransaction{Status: EscrowStatusFunded}, ConfirmationUnproven},
		{"empty proof", EscrowTransaction{Status: EscrowStatusFunded, ConsensusProofID: strPtr("")}, ConfirmationUnproven},
		{"proven non-terminal", EscrowTransaction{Status: EscrowStatusFunded, ConsensusProofID: &proof}, ConfirmationProven},
		{"proven terminal", EscrowTransaction{Status: EscrowStatusReleased, ConsensusProofID: &proof}, ConfirmationTerminalProven},
		{"disputed proven", EscrowTransaction{Status: EscrowStatusDisputed, ConsensusProofID: &proof}, ConfirmationTerminalProven},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.Confirmation(); got != tt.expected {
				t.Errorf("Confirmation() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func strPtr(s string) *string { return &s }
