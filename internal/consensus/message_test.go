package consensus

import (
	"encoding/json"
	"testing"
)

func TestMessageConstruction(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (Message, error)
		event   string
		wantErr bool
	}{
		{"create", func() (Message, error) { return NewCreateMessage("T1", "B", "S", "100", "USD") }, "create", false},
		{"create missing tx", func() (Message, error) { return NewCreateMessage("", "B", "S", "100", "USD") }, "", true},
		{"create missing buyer", func() (Message, error) { return NewCreateMessage("T1", "", "S", "100", "USD") }, "", true},
		{"create missing currency", func() (Message, error) { return NewCreateMessage("T1", "B", "S", "100", "") }, "", true},
		{"fund", func() (Message, error) { return NewFundMessage("T1", "transfer", "100") }, "fund", false},
		{"fund missing method", func() (Message, error) { return NewFundMessage("T1", "", "100") }, "", true},
		{"release", func() (Message, error) { return NewReleaseMessage("T1", "S") }, "release", false},
		{"release missing actor", func() (Message, error) { return NewReleaseMessage("T1", "") }, "", true},
		{"dispute", func() (Message, error) { return NewDisputeMessage("T1", "animal not delivered") }, "dispute", false},
		{"dispute missing reason", func() (Message, error) { return NewDisputeMessage("T1", "") }, "", true},
		{"cancel", func() (Message, error) { return NewCancelMessage("T1", "B", "") }, "cancel", false},
		{"verify", func() (Message, error) { return NewVerifyMessage("T1", "DE-0123", "national-registry", true, "Angus") }, "verify", false},
		{"verify missing tag", func() (Message, error) { return NewVerifyMessage("T1", "", "national-registry", true, "") }, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := tt.build()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected construction error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.EventType() != tt.event {
				t.Errorf("EventType() = %q, want %q", msg.EventType(), tt.event)
			}
		})
	}
}

func TestMessageWireShape(t *testing.T) {
	msg, err := NewCreateMessage("T1", "B", "S", "100", "USD")
	if err != nil {
		t.Fatal(err)
	}

	data, err := msg.Encode()
	if err != nil {
		t.Fatal(err)
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatal(err)
	}

	for _, field := range []string{"type", "version", "transaction_id", "timestamp", "buyer_id", "seller_id", "amount", "currency"} {
		if _, ok := wire[field]; !ok {
			t.Errorf("wire payload missing field %q", field)
		}
	}
	if wire["type"] != "create" {
		t.Errorf("type = %v, want create", wire["type"])
	}
	if wire["version"] != float64(SchemaVersion) {
		t.Errorf("version = %v, want %d", wire["version"], SchemaVersion)
	}
}

// Consumers must tolerate unknown fields from newer schema versions.
func TestUnknownFieldsTolerated(t *testing.T) {
	raw := []byte(`{"type":"fund","version":2,"transaction_id":"T1","timestamp":"2026-01-02T03:04:05Z","funding_method":"transfer","amount":"100","future_field":{"nested":true}}`)

	var msg FundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decoding payload with unknown fields: %v", err)
	}
	if msg.TransactionID != "T1" || msg.FundingMethod != "transfer" {
		t.Errorf("decoded message incomplete: %+v", msg)
	}
}
