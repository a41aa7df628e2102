package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/livestock-marketplace/backend/internal/config"
	"github.com/livestock-marketplace/backend/internal/consensus"
	"github.com/livestock-marketplace/backend/internal/events"
	"github.com/livestock-marketplace/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const reconcileAttemptKey = "reconcile:attempt:"

type reconcileLogStore interface {
	ListUnproven(ctx context.Context, olderThan time.Duration, limit int) ([]models.EscrowLogEntry, error)
	AttachProof(ctx context.Context, id uuid.UUID, proofID string) (bool, error)
}

type reconcileRecordStore interface {
	AttachProof(ctx context.Context, id, status, proofID string) (bool, error)
}

// eventTargetStatus maps a lifecycle event to the record status its proof
// belongs to. Verification events carry no record status.
var eventTargetStatus = map[string]string{
	models.EventTypeCreate:  models.EscrowStatusPending,
	models.EventTypeFund:    models.EscrowStatusFunded,
	models.EventTypeRelease: models.EscrowStatusReleased,
	models.EventTypeDispute: models.EscrowStatusDisputed,
	models.EventTypeCancel:  models.EscrowStatusCancelled,
}

// Reconciler retries proof attachment for transitions that committed while
// the ledger was unreachable. It resubmits the exact payload stored with
// the log entry, so a successful retry proves the very message the record
// committed. Idempotent: already-proven entries are never overwritten, and
// the record-side attach only matches while the record still sits in the
// status the event produced.
type Reconciler struct {
	logStore  reconcileLogStore
	store     reconcileRecordStore
	auditRepo auditStore
	submitter consensus.Submitter
	publisher events.Publisher
	rdb       *redis.Client
	cfg       *config.Config
	log       *zap.Logger
}

func NewReconciler(
	logStore reconcileLogStore,
	store reconcileRecordStore,
	auditRepo auditStore,
	submitter consensus.Submitter,
	publisher events.Publisher,
	rdb *redis.Client,
	cfg *config.Config,
	log *zap.Logger,
) *Reconciler {
	return &Reconciler{
		logStore:  logStore,
		store:     store,
		auditRepo: auditRepo,
		submitter: submitter,
		publisher: publisher,
		rdb:       rdb,
		cfg:       cfg,
		log:       log,
	}
}

// RunOnce processes one batch of unproven log entries.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	entries, err := r.logStore.ListUnproven(ctx, r.cfg.ReconcileMinAge, r.cfg.ReconcileBatch)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		r.reconcileEntry(ctx, entry)
	}
	return nil
}

func (r *Reconciler) reconcileEntry(ctx context.Context, entry models.EscrowLogEntry) {
	// Backoff so one stuck entry is not resubmitted every tick.
	attemptKey := reconcileAttemptKey + entry.ID.String()
	if r.rdb != nil {
		if r.rdb.Exists(ctx, attemptKey).Val() > 0 {
			return
		}
		r.rdb.Set(ctx, attemptKey, time.Now().UTC().Format(time.RFC3339), r.cfg.ReconcileBackoff)
	}

	if len(entry.Payload) == 0 {
		r.log.Warn("unproven log entry has no payload, cannot resubmit",
			zap.String("entry_id", entry.ID.String()),
			zap.String("transaction_id", entry.TransactionID),
		)
		return
	}

	submitCtx, cancel := context.WithTimeout(ctx, r.cfg.SubmitTimeout)
	proofID, err := r.submitter.Submit(submitCtx, entry.TopicReference, entry.Payload)
	cancel()
	if err != nil {
		r.log.Warn("reconcile submission failed",
			zap.String("entry_id", entry.ID.String()),
			zap.String("transaction_id", entry.TransactionID),
			zap.String("event", entry.EventType),
			zap.Error(err),
		)
		return
	}

	attached, err := r.logStore.AttachProof(ctx, entry.ID, proofID)
	if err != nil {
		r.log.Error("failed to backfill proof on log entry",
			zap.String("entry_id", entry.ID.String()), zap.Error(err))
		return
	}
	if !attached {
		// Someone else proved it first; nothing to do.
		return
	}

	if status, ok := eventTargetStatus[entry.EventType]; ok {
		// Only lands while the record still holds the status this event
		// produced; a proof for a superseded transition stays log-only.
		if _, err := r.store.AttachProof(ctx, entry.TransactionID, status, proofID); err != nil {
			r.log.Error("failed to backfill proof on transaction",
				zap.String("transaction_id", entry.TransactionID), zap.Error(err))
		}
	}

	_ = r.publisher.Publish(ctx, events.StreamEscrow, events.Event{
		Type: events.EventConsensusProofAttached,
		Payload: map[string]any{
			"transaction_id": entry.TransactionID,
			"event_type":     entry.EventType,
			"proof_id":       proofID,
			"reconciled":     true,
		},
	})

	entityID := entry.TransactionID
	_ = r.auditRepo.Log(ctx, models.AuditLog{
		ActorType:  "system",
		Action:     "consensus_proof_reconciled",
		EntityType: "escrow_transaction",
		EntityID:   &entityID,
		Meta:       map[string]any{"event": entry.EventType, "proof_id": proofID},
	})

	r.log.Info("proof reconciled",
		zap.String("transaction_id", entry.TransactionID),
		zap.String("event", entry.EventType),
		zap.String("proof_id", proofID),
	)
}
