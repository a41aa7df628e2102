package services

import (
	"context"
	"fmt"

	"github.com/livestock-marketplace/backend/internal/config"
	"github.com/livestock-marketplace/backend/internal/consensus"
	"github.com/livestock-marketplace/backend/internal/events"
	"github.com/livestock-marketplace/backend/internal/models"
	"github.com/livestock-marketplace/backend/internal/registry"
	"go.uber.org/zap"
)

type registryLookup interface {
	FetchAnimal(ctx context.Context, tagID string) (*registry.AnimalRecord, error)
}

type logAppender interface {
	Append(ctx context.Context, entry *models.EscrowLogEntry) error
}

// VerifyResult reports a provenance check: what the registry said, plus
// whether the consensus log confirmed the verify event.
type VerifyResult struct {
	TransactionID      string                 `json:"transaction_id"`
	Animal             *registry.AnimalRecord `json:"animal"`
	ConsensusProofID   *string                `json:"consensus_proof_id"`
	ConsensusConfirmed bool                   `json:"consensus_confirmed"`
}

// VerifyService checks an animal's ear tag against the public livestock
// registry and writes the outcome to the provenance topic. Like the
// lifecycle operations, the log append commits unconditionally and the
// ledger proof may lag.
type VerifyService struct {
	escrow    *EscrowService
	logStore  logAppender
	registry  registryLookup
	submitter consensus.Submitter
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewVerifyService(
	escrow *EscrowService,
	logStore logAppender,
	reg registryLookup,
	submitter consensus.Submitter,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *VerifyService {
	return &VerifyService{
		escrow:    escrow,
		logStore:  logStore,
		registry:  reg,
		submitter: submitter,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

func (s *VerifyService) VerifyProvenance(ctx context.Context, transactionID, tagID string) (*VerifyResult, error) {
	// The escrow must exist; verification in any status is fine, it does
	// not touch the lifecycle state machine.
	if _, err := s.escrow.GetTransaction(ctx, transactionID); err != nil {
		return nil, err
	}

	animal, err := s.registry.FetchAnimal(ctx, tagID)
	if err != nil {
		return nil, fmt.Errorf("registry lookup failed: %w", err)
	}

	msg, err := consensus.NewVerifyMessage(transactionID, animal.TagID, s.cfg.RegistryBaseURL, animal.Registered, animal.Breed)
	if err != nil {
		return nil, err
	}
	payload, err := msg.Encode()
	if err != nil {
		return nil, err
	}

	entry := &models.EscrowLogEntry{
		TransactionID:  transactionID,
		EventType:      models.EventTypeVerify,
		TopicReference: config.TopicProvenance,
		Payload:        payload,
	}
	if err := s.logStore.Append(ctx, entry); err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, events.StreamEscrow, events.Event{
		Type: events.EventProvenanceVerified,
		Payload: map[string]any{
			"transaction_id": transactionID,
			"tag_id":         animal.TagID,
			"registered":     animal.Registered,
		},
	})

	proofID, confirmed := s.escrow.submitAndAttach(ctx, entry, "")
	return &VerifyResult{
		TransactionID:      transactionID,
		Animal:             animal,
		ConsensusProofID:   proofID,
		ConsensusConfirmed: confirmed,
	}, nil
}
