package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codemicah/okx-credit-score/internal/jobs"
)

type ConfirmationRepository struct {
	pool *pgxpool.Pool
}

func NewConfirmationRepository(pool *pgxpool.Pool) *ConfirmationRepository {
	return &ConfirmationRepository{pool: pool}
}

func (r *ConfirmationRepository) Enqueue(ctx context.Context, address, txHash string) error {
	q := `
INSERT INTO pending_confirmations (address, tx_hash, status)
VALUES ($1, $2, 'pending')
ON CONFLICT (tx_hash) DO NOTHING
`
	_, err := r.pool.Exec(ctx, q, address, txHash)
	return err
}

func (r *ConfirmationRepository) ClaimPending(ctx context.Context, limit int32) ([]jobs.PendingJob, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
UPDATE pending_confirmations
SET status = 'claimed', attempts = attempts + 1
WHERE id IN (
  SELECT id FROM pending_confirmations
  WHERE status IN ('pending', 'retry') AND available_at <= now()
  ORDER BY id
  LIMIT $1
  FOR UPDATE SKIP LOCKED
)
RETURNING id, address, tx_hash, attempts, available_at
`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []jobs.PendingJob
	for rows.Next() {
		var job jobs.PendingJob
		if err := rows.Scan(&job.ID, &job.Address, &job.TXHash, &job.Attempts, &job.AvailableAt); err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *ConfirmationRepository) MarkConfirmed(ctx context.Context, jobID int64) error {
	q := `UPDATE pending_confirmations SET status = 'confirmed', resolved_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, jobID)
	return err
}

func (r *ConfirmationRepository) MarkRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error {
	q := `UPDATE pending_confirmations SET status = 'retry', available_at = $2, last_error = $3 WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, jobID, nextAvailableAt, lastError)
	return err
}

func (r *ConfirmationRepository) MarkFailed(ctx context.Context, jobID int64, lastError string) error {
	q := `UPDATE pending_confirmations SET status = 'failed', last_error = $2, resolved_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, jobID, lastError)
	return err
}
