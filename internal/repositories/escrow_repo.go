package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/livestock-marketplace/backend/internal/models"
)

type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

// Create inserts the transaction in status pending together with its
// "create" log entry, in one storage transaction. A second create for the
// same id returns ErrAlreadyExists.
func (r *EscrowRepo) Create(ctx context.Context, t *models.EscrowTransaction, entry *models.EscrowLogEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO escrow_transactions (id, buyer_id, seller_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, t.ID, t.BuyerID, t.SellerID, t.Amount, t.Currency, t.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}

	if err := tx.QueryRow(ctx, `
		SELECT created_at, updated_at FROM escrow_transactions WHERE id = $1
	`, t.ID).Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return err
	}

	if err := insertLogEntry(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *EscrowRepo) GetByID(ctx context.Context, id string) (*models.EscrowTransaction, error) {
	var t models.EscrowTransaction
	err := r.pool.QueryRow(ctx, `
		SELECT id, buyer_id, seller_id, amount, currency, status,
		       consensus_proof_id, contract_proof_id, created_at, updated_at
		FROM escrow_transactions WHERE id = $1
	`, id).Scan(&t.ID, &t.BuyerID, &t.SellerID, &t.Amount, &t.Currency, &t.Status,
		&t.ConsensusProofID, &t.ContractProofID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TransitionStatus performs the compare-and-swap status update and appends
// the attempt's log entry in one storage transaction. Zero rows affected
// means another writer won the race; the caller gets ErrPreconditionFailed
// and the stored status is untouched. The proof id is cleared on every
// transition: the new status starts unproven and the matching proof is
// attached only after the ledger confirms it.
func (r *EscrowRepo) TransitionStatus(ctx context.Context, id, from, to string, entry *models.EscrowLogEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE escrow_transactions
		SET status = $1, consensus_proof_id = NULL, updated_at = now()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM escrow_transactions WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrPreconditionFailed
	}

	if err := insertLogEntry(ctx, tx, entry); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AttachProof sets the consensus proof for a transaction, but only while
// it is still in the status the proof belongs to and no proof has been
// attached yet. A proof from an older transition can never overwrite a
// newer one. Returns whether a row was updated.
func (r *EscrowRepo) AttachProof(ctx context.Context, id, status, proofID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escrow_transactions
		SET consensus_proof_id = $1, updated_at = now()
		WHERE id = $2 AND status = $3 AND consensus_proof_id IS NULL
	`, proofID, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AttachContractProof records the optional external settlement call's
// proof. Side channel only: never gates or reverses the business status.
func (r *EscrowRepo) AttachContractProof(ctx context.Context, id, proofID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE escrow_transactions
		SET contract_proof_id = $1, updated_at = now()
		WHERE id = $2 AND contract_proof_id IS NULL
	`, proofID, id)
	return err
}

func insertLogEntry(ctx context.Context, tx pgx.Tx, entry *models.EscrowLogEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO escrow_log (transaction_id, event_type, topic_reference, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, entry.TransactionID, entry.EventType, entry.TopicReference, entry.Payload,
	).Scan(&entry.ID, &entry.CreatedAt)
}
