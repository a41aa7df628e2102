package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SettlementClient talks to the external settlement/contract service.
// Best effort from the orchestrator's perspective: failures are recorded
// but never gate a business transition.
type SettlementClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewSettlementClient(baseURL string, log *zap.Logger) *SettlementClient {
	return &SettlementClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

type settleRequest struct {
	TransactionID string `json:"transaction_id"`
	SellerID      string `json:"seller_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

type settleResult struct {
	SettlementRef string `json:"settlement_ref"`
}

// Settle requests payout of a released escrow and returns the settlement
// reference recorded as the contract proof.
func (c *SettlementClient) Settle(ctx context.Context, transactionID, sellerID, amount, currency string) (string, error) {
	body, err := json.Marshal(settleRequest{
		TransactionID: transactionID,
		SellerID:      sellerID,
		Amount:        amount,
		Currency:      currency,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/internal/settlements", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("settlement service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("settlement service returned %d: %s", resp.StatusCode, string(b))
	}

	var result settleResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.SettlementRef, nil
}
