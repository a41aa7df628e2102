package consensus

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is the current wire version of consensus messages.
// Off-ledger consumers must tolerate unknown fields and missing optional
// fields from older versions, so bumping this is additive only.
const SchemaVersion = 1

// Message is one of the closed set of lifecycle event payloads submitted
// to the consensus topic. Each variant carries a fixed, versioned schema
// and is validated at construction time.
type Message interface {
	EventType() string
	Encode() ([]byte, error)
}

// Header holds the fields every event carries.
type Header struct {
	Type          string    `json:"type"`
	Version       int       `json:"version"`
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func newHeader(eventType, txID string) (Header, error) {
	if txID == "" {
		return Header{}, fmt.Errorf("consensus: transaction_id is required")
	}
	return Header{
		Type:          eventType,
		Version:       SchemaVersion,
		TransactionID: txID,
		Timestamp:     time.Now().UTC(),
	}, nil
}

type CreateMessage struct {
	Header
	BuyerID  string `json:"buyer_id"`
	SellerID string `json:"seller_id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func NewCreateMessage(txID, buyerID, sellerID, amount, currency string) (*CreateMessage, error) {
	h, err := newHeader("create", txID)
	if err != nil {
		return nil, err
	}
	if buyerID == "" || sellerID == "" {
		return nil, fmt.Errorf("consensus: buyer_id and seller_id are required")
	}
	if amount == "" || currency == "" {
		return nil, fmt.Errorf("consensus: amount and currency are required")
	}
	return &CreateMessage{Header: h, BuyerID: buyerID, SellerID: sellerID, Amount: amount, Currency: currency}, nil
}

type FundMessage struct {
	Header
	FundingMethod string `json:"funding_method"`
	Amount        string `json:"amount"`
}

func NewFundMessage(txID, fundingMethod, amount string) (*FundMessage, error) {
	h, err := newHeader("fund", txID)
	if err != nil {
		return nil, err
	}
	if fundingMethod == "" {
		return nil, fmt.Errorf("consensus: funding_method is required")
	}
	if amount == "" {
		return nil, fmt.Errorf("consensus: amount is required")
	}
	return &FundMessage{Header: h, FundingMethod: fundingMethod, Amount: amount}, nil
}

type ReleaseMessage struct {
	Header
	ReleasedBy string `json:"released_by"`
}

func NewReleaseMessage(txID, releasedBy string) (*ReleaseMessage, error) {
	h, err := newHeader("release", txID)
	if err != nil {
		return nil, err
	}
	if releasedBy == "" {
		return nil, fmt.Errorf("consensus: released_by is required")
	}
	return &ReleaseMessage{Header: h, ReleasedBy: releasedBy}, nil
}

type DisputeMessage struct {
	Header
	Reason string `json:"reason"`
}

func NewDisputeMessage(txID, reason string) (*DisputeMessage, error) {
	h, err := newHeader("dispute", txID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, fmt.Errorf("consensus: reason is required")
	}
	return &DisputeMessage{Header: h, Reason: reason}, nil
}

type CancelMessage struct {
	Header
	CancelledBy string `json:"cancelled_by"`
	Reason      string `json:"reason,omitempty"`
}

func NewCancelMessage(txID, cancelledBy, reason string) (*CancelMessage, error) {
	h, err := newHeader("cancel", txID)
	if err != nil {
		return nil, err
	}
	if cancelledBy == "" {
		return nil, fmt.Errorf("consensus: cancelled_by is required")
	}
	return &CancelMessage{Header: h, CancelledBy: cancelledBy, Reason: reason}, nil
}

type VerifyMessage struct {
	Header
	TagID          string `json:"tag_id"`
	Registered     bool   `json:"registered"`
	Breed          string `json:"breed,omitempty"`
	RegistrySource string `json:"registry_source"`
}

func NewVerifyMessage(txID, tagID, registrySource string, registered bool, breed string) (*VerifyMessage, error) {
	h, err := newHeader("verify", txID)
	if err != nil {
		return nil, err
	}
	if tagID == "" {
		return nil, fmt.Errorf("consensus: tag_id is required")
	}
	if registrySource == "" {
		return nil, fmt.Errorf("consensus: registry_source is required")
	}
	return &VerifyMessage{Header: h, TagID: tagID, Registered: registered, Breed: breed, RegistrySource: registrySource}, nil
}

func (m *CreateMessage) EventType() string  { return m.Type }
func (m *FundMessage) EventType() string    { return m.Type }
func (m *ReleaseMessage) EventType() string { return m.Type }
func (m *DisputeMessage) EventType() string { return m.Type }
func (m *CancelMessage) EventType() string  { return m.Type }
func (m *VerifyMessage) EventType() string  { return m.Type }

func (m *CreateMessage) Encode() ([]byte, error)  { return json.Marshal(m) }
func (m *FundMessage) Encode() ([]byte, error)    { return json.Marshal(m) }
func (m *ReleaseMessage) Encode() ([]byte, error) { return json.Marshal(m) }
func (m *DisputeMessage) Encode() ([]byte, error) { return json.Marshal(m) }
func (m *CancelMessage) Encode() ([]byte, error)  { return json.Marshal(m) }
func (m *VerifyMessage) Encode() ([]byte, error)  { return json.Marshal(m) }
