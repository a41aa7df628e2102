package dto

type TokenRequest struct {
	ServiceKey string `json:"service_key"`
	PartyID    string `json:"party_id,omitempty"`
	Service    string `json:"service,omitempty"`
}

type CreateEscrowRequest struct {
	TransactionID string `json:"transaction_id"`
	BuyerID       string `json:"buyer_id"`
	SellerID      string `json:"seller_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

type FundEscrowRequest struct {
	FundingMethod string `json:"funding_method"`
	Amount        string `json:"amount"`
}

type ReleaseEscrowRequest struct {
	ReleasedBy string `json:"released_by"`
}

type DisputeEscrowRequest struct {
	Reason string `json:"reason"`
}

type CancelEscrowRequest struct {
	CancelledBy string `json:"cancelled_by"`
	Reason      string `json:"reason,omitempty"`
}

type VerifyProvenanceRequest struct {
	TagID string `json:"tag_id"`
}
