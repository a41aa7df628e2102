package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/livestock-marketplace/backend/internal/models"
)

type EscrowLogRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowLogRepo(pool *pgxpool.Pool) *EscrowLogRepo {
	return &EscrowLogRepo{pool: pool}
}

// Append writes a standalone log entry outside of a status transition
// (e.g. provenance verification attempts).
func (r *EscrowLogRepo) Append(ctx context.Context, entry *models.EscrowLogEntry) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO escrow_log (transaction_id, event_type, topic_reference, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, entry.TransactionID, entry.EventType, entry.TopicReference, entry.Payload,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *EscrowLogRepo) ListByTransaction(ctx context.Context, transactionID string, limit, offset int) ([]models.EscrowLogEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, transaction_id, event_type, topic_reference, payload, consensus_proof_id, created_at
		FROM escrow_log WHERE transaction_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, transactionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.EscrowLogEntry
	for rows.Next() {
		var e models.EscrowLogEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.EventType, &e.TopicReference, &e.Payload, &e.ConsensusProofID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ListUnproven returns entries whose consensus submission never got a
// proof, oldest first. This is the reconciliation interface: the worker
// resubmits the stored payload and backfills the proof id.
func (r *EscrowLogRepo) ListUnproven(ctx context.Context, olderThan time.Duration, limit int) ([]models.EscrowLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, transaction_id, event_type, topic_reference, payload, consensus_proof_id, created_at
		FROM escrow_log
		WHERE consensus_proof_id IS NULL AND created_at < now() - ($1 * interval '1 second')
		ORDER BY created_at ASC LIMIT $2
	`, int64(olderThan.Seconds()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.EscrowLogEntry
	for rows.Next() {
		var e models.EscrowLogEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.EventType, &e.TopicReference, &e.Payload, &e.ConsensusProofID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// AttachProof backfills the proof id on an unproven entry. Idempotent:
// an already-proven entry is never overwritten, the call reports false.
func (r *EscrowLogRepo) AttachProof(ctx context.Context, id uuid.UUID, proofID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escrow_log SET consensus_proof_id = $1
		WHERE id = $2 AND consensus_proof_id IS NULL
	`, proofID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
