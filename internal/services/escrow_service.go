package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/livestock-marketplace/backend/internal/config"
	"github.com/livestock-marketplace/backend/internal/consensus"
	"github.com/livestock-marketplace/backend/internal/events"
	"github.com/livestock-marketplace/backend/internal/models"
	"github.com/livestock-marketplace/backend/internal/repositories"
	"go.uber.org/zap"
)

// Store interfaces are narrow so tests can substitute in-memory fakes for
// the repositories and a fake submitter for the ledger client.

type escrowStore interface {
	Create(ctx context.Context, t *models.EscrowTransaction, entry *models.EscrowLogEntry) error
	GetByID(ctx context.Context, id string) (*models.EscrowTransaction, error)
	TransitionStatus(ctx context.Context, id, from, to string, entry *models.EscrowLogEntry) error
	AttachProof(ctx context.Context, id, status, proofID string) (bool, error)
	AttachContractProof(ctx context.Context, id, proofID string) error
}

type escrowLogStore interface {
	AttachProof(ctx context.Context, id uuid.UUID, proofID string) (bool, error)
	ListByTransaction(ctx context.Context, transactionID string, limit, offset int) ([]models.EscrowLogEntry, error)
}

type auditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

type settler interface {
	Settle(ctx context.Context, transactionID, sellerID, amount, currency string) (string, error)
}

// TransitionResult is what lifecycle callers get back: the business status
// is always definitive; the consensus proof may still be pending.
type TransitionResult struct {
	TransactionID      string  `json:"transaction_id"`
	Status             string  `json:"status"`
	ConsensusProofID   *string `json:"consensus_proof_id"`
	ConsensusConfirmed bool    `json:"consensus_confirmed"`
}

// StatusProjection is the read-side view served to UI and collaborators.
// It always reflects the record store; the ledger is never queried on the
// read path.
type StatusProjection struct {
	TransactionID    string  `json:"transaction_id"`
	Status           string  `json:"status"`
	ConsensusProofID *string `json:"consensus_proof_id"`
	ContractProofID  *string `json:"contract_proof_id,omitempty"`
	Confirmation     string  `json:"confirmation"`
	UpdatedAt        string  `json:"updated_at"`
}

// EscrowService is the lifecycle orchestrator. Each operation validates
// the precondition via a conditional write, commits the new status and the
// attempt log in one storage transaction, and only then submits the
// derived message to the consensus topic. A ledger failure never reverses
// the committed transition; a storage failure aborts before any ledger
// submission is attempted.
type EscrowService struct {
	store         escrowStore
	logStore      escrowLogStore
	auditRepo     auditStore
	submitter     consensus.Submitter
	settlement    settler
	publisher     events.Publisher
	ledgerEnabled bool
	cfg           *config.Config
	log           *zap.Logger
}

func NewEscrowService(
	store escrowStore,
	logStore escrowLogStore,
	auditRepo auditStore,
	submitter consensus.Submitter,
	settlement settler,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *EscrowService {
	return &EscrowService{
		store:         store,
		logStore:      logStore,
		auditRepo:     auditRepo,
		submitter:     submitter,
		settlement:    settlement,
		publisher:     publisher,
		ledgerEnabled: cfg.LedgerEnabled,
		cfg:           cfg,
		log:           log,
	}
}

func (s *EscrowService) CreateEscrow(ctx context.Context, id, buyerID, sellerID, amount, currency string) (*TransitionResult, error) {
	if id == "" {
		return nil, fmt.Errorf("transaction id is required")
	}
	if buyerID == "" || sellerID == "" {
		return nil, fmt.Errorf("buyer_id and seller_id are required")
	}
	if buyerID == sellerID {
		return nil, fmt.Errorf("buyer and seller must differ")
	}
	if _, err := models.ParseAmount(amount); err != nil {
		return nil, err
	}
	if currency == "" {
		return nil, fmt.Errorf("currency is required")
	}

	msg, err := consensus.NewCreateMessage(id, buyerID, sellerID, amount, currency)
	if err != nil {
		return nil, err
	}
	entry, err := s.newLogEntry(id, models.EventTypeCreate, msg)
	if err != nil {
		return nil, err
	}

	t := &models.EscrowTransaction{
		ID:       id,
		BuyerID:  buyerID,
		SellerID: sellerID,
		Amount:   amount,
		Currency: currency,
		Status:   models.EscrowStatusPending,
	}
	if err := s.store.Create(ctx, t, entry); err != nil {
		return nil, err
	}

	s.audit(ctx, &buyerID, "escrow_created", id, map[string]any{"amount": amount, "currency": currency})
	s.publishStatus(ctx, id, "", models.EscrowStatusPending)

	proofID, confirmed := s.submitAndAttach(ctx, entry, models.EscrowStatusPending)
	return &TransitionResult{
		TransactionID:      id,
		Status:             models.EscrowStatusPending,
		ConsensusProofID:   proofID,
		ConsensusConfirmed: confirmed,
	}, nil
}

func (s *EscrowService) FundEscrow(ctx context.Context, id, fundingMethod, amount string) (*TransitionResult, error) {
	if fundingMethod == "" {
		return nil, fmt.Errorf("funding_method is required")
	}
	fundNano, err := models.ParseAmount(amount)
	if err != nil {
		return nil, err
	}

	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Amount and currency are fixed at creation; a partial or excess
	// funding is rejected before any state is touched.
	expected, err := models.ParseAmount(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("stored amount invalid: %w", err)
	}
	if fundNano.Cmp(expected) != 0 {
		return nil, fmt.Errorf("funding amount %s does not match escrow amount %s", amount, t.Amount)
	}

	msg, err := consensus.NewFundMessage(id, fundingMethod, amount)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, models.EscrowStatusPending, models.EscrowStatusFunded, models.EventTypeFund, msg, nil)
}

func (s *EscrowService) ReleaseEscrow(ctx context.Context, id, releasedBy string) (*TransitionResult, error) {
	if releasedBy == "" {
		return nil, fmt.Errorf("released_by is required")
	}

	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	msg, err := consensus.NewReleaseMessage(id, releasedBy)
	if err != nil {
		return nil, err
	}
	res, err := s.transition(ctx, id, models.EscrowStatusFunded, models.EscrowStatusReleased, models.EventTypeRelease, msg, &releasedBy)
	if err != nil {
		return nil, err
	}

	// Optional external settlement call. Side channel only: its outcome is
	// recorded in contract_proof_id and never gates the released status.
	if s.settlement != nil {
		if ref, err := s.settlement.Settle(ctx, id, t.SellerID, t.Amount, t.Currency); err != nil {
			s.log.Warn("settlement call failed",
				zap.String("transaction_id", id),
				zap.Error(err),
			)
			s.audit(ctx, nil, "settlement_failed", id, map[string]any{"error": err.Error()})
		} else if ref != "" {
			if err := s.store.AttachContractProof(ctx, id, ref); err != nil {
				s.log.Warn("failed to record contract proof", zap.String("transaction_id", id), zap.Error(err))
			}
		}
	}

	return res, nil
}

func (s *EscrowService) DisputeEscrow(ctx context.Context, id, reason string) (*TransitionResult, error) {
	msg, err := consensus.NewDisputeMessage(id, reason)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, models.EscrowStatusFunded, models.EscrowStatusDisputed, models.EventTypeDispute, msg, nil)
}

func (s *EscrowService) CancelEscrow(ctx context.Context, id, cancelledBy, reason string) (*TransitionResult, error) {
	msg, err := consensus.NewCancelMessage(id, cancelledBy, reason)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, models.EscrowStatusPending, models.EscrowStatusCancelled, models.EventTypeCancel, msg, &cancelledBy)
}

func (s *EscrowService) GetStatus(ctx context.Context, id string) (*StatusProjection, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StatusProjection{
		TransactionID:    t.ID,
		Status:           t.Status,
		ConsensusProofID: t.ConsensusProofID,
		ContractProofID:  t.ContractProofID,
		Confirmation:     t.Confirmation(),
		UpdatedAt:        t.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}, nil
}

func (s *EscrowService) GetTransaction(ctx context.Context, id string) (*models.EscrowTransaction, error) {
	return s.store.GetByID(ctx, id)
}

func (s *EscrowService) GetLog(ctx context.Context, id string, limit, offset int) ([]models.EscrowLogEntry, error) {
	return s.logStore.ListByTransaction(ctx, id, limit, offset)
}

// transition runs the shared body of a lifecycle operation: conditional
// status write + log append in one storage transaction, then (after that
// commit has released) the ledger submission with its own deadline.
func (s *EscrowService) transition(ctx context.Context, id, from, to, eventType string, msg consensus.Message, actorID *string) (*TransitionResult, error) {
	entry, err := s.newLogEntry(id, eventType, msg)
	if err != nil {
		return nil, err
	}

	if err := s.store.TransitionStatus(ctx, id, from, to, entry); err != nil {
		if errors.Is(err, repositories.ErrPreconditionFailed) {
			s.audit(ctx, actorID, "escrow_transition_rejected", id, map[string]any{
				"event": eventType, "required_status": from,
			})
		}
		return nil, err
	}

	s.audit(ctx, actorID, fmt.Sprintf("escrow_%s_to_%s", from, to), id, map[string]any{"event": eventType})
	s.publishStatus(ctx, id, from, to)

	proofID, confirmed := s.submitAndAttach(ctx, entry, to)
	return &TransitionResult{
		TransactionID:      id,
		Status:             to,
		ConsensusProofID:   proofID,
		ConsensusConfirmed: confirmed,
	}, nil
}

func (s *EscrowService) newLogEntry(id, eventType string, msg consensus.Message) (*models.EscrowLogEntry, error) {
	payload, err := msg.Encode()
	if err != nil {
		return nil, err
	}
	return &models.EscrowLogEntry{
		TransactionID:  id,
		EventType:      eventType,
		TopicReference: config.TopicEscrow,
		Payload:        payload,
	}, nil
}

// submitAndAttach performs the ledger submission for an already-committed
// transition and backfills the proof id on success. On any failure the
// proof stays null and the entry is left for reconciliation; the committed
// business status is never rolled back.
func (s *EscrowService) submitAndAttach(ctx context.Context, entry *models.EscrowLogEntry, status string) (*string, bool) {
	if !s.ledgerEnabled {
		return nil, false
	}

	submitCtx, cancel := context.WithTimeout(ctx, s.cfg.SubmitTimeout)
	defer cancel()

	proofID, err := s.submitter.Submit(submitCtx, entry.TopicReference, entry.Payload)
	if err != nil {
		var rejected *consensus.RejectedError
		switch {
		case errors.Is(err, consensus.ErrNotConfigured):
			s.log.Error("consensus submission impossible: operator not configured",
				zap.String("transaction_id", entry.TransactionID))
		case errors.As(err, &rejected):
			s.log.Warn("consensus message rejected by network",
				zap.String("transaction_id", entry.TransactionID),
				zap.String("event", entry.EventType),
				zap.String("reason", rejected.Reason),
			)
		default:
			s.log.Warn("consensus submission failed, proof left for reconciliation",
				zap.String("transaction_id", entry.TransactionID),
				zap.String("event", entry.EventType),
				zap.Error(err),
			)
		}
		s.audit(ctx, nil, "consensus_submit_failed", entry.TransactionID, map[string]any{
			"event": entry.EventType, "error": err.Error(),
		})
		return nil, false
	}

	if _, err := s.logStore.AttachProof(ctx, entry.ID, proofID); err != nil {
		s.log.Error("failed to attach proof to log entry",
			zap.String("transaction_id", entry.TransactionID), zap.Error(err))
	}
	if status != "" {
		if _, err := s.store.AttachProof(ctx, entry.TransactionID, status, proofID); err != nil {
			s.log.Error("failed to attach proof to transaction",
				zap.String("transaction_id", entry.TransactionID), zap.Error(err))
		}
	}

	_ = s.publisher.Publish(ctx, events.StreamEscrow, events.Event{
		Type: events.EventConsensusProofAttached,
		Payload: map[string]any{
			"transaction_id": entry.TransactionID,
			"event_type":     entry.EventType,
			"proof_id":       proofID,
		},
	})

	return &proofID, true
}

func (s *EscrowService) publishStatus(ctx context.Context, id, oldStatus, newStatus string) {
	_ = s.publisher.Publish(ctx, events.StreamEscrow, events.Event{
		Type: events.EventEscrowStatusChanged,
		Payload: map[string]any{
			"transaction_id": id,
			"old_status":     oldStatus,
			"new_status":     newStatus,
		},
	})
}

func (s *EscrowService) audit(ctx context.Context, actorID *string, action, entityID string, meta map[string]any) {
	actorType := "system"
	if actorID != nil {
		actorType = "user"
	}
	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorID:    actorID,
		ActorType:  actorType,
		Action:     action,
		EntityType: "escrow_transaction",
		EntityID:   &entityID,
		Meta:       meta,
	})
}
