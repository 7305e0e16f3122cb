package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codemicah/okx-credit-score/internal/domain/credit"
)

type SyncHistoryRepository struct {
	pool *pgxpool.Pool
}

func NewSyncHistoryRepository(pool *pgxpool.Pool) *SyncHistoryRepository {
	return &SyncHistoryRepository{pool: pool}
}

func (r *SyncHistoryRepository) Record(ctx context.Context, rec credit.HistoryRecord) error {
	q := `
INSERT INTO sync_history (id, address, volume_micro, trade_count, tx_hash, status)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err := r.pool.Exec(ctx, q, rec.ID, rec.Address, rec.VolumeMicro, rec.TradeCount, rec.TXHash, rec.Status)
	return err
}

func (r *SyncHistoryRepository) MarkStatus(ctx context.Context, id, status string) error {
	q := `UPDATE sync_history SET status = $2, updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, status)
	return err
}

// MarkStatusByTXHash resolves a row the orchestrator left pending. Rows that
// already reached a terminal status are untouched, so the API and the
// standalone worker can race on the same submission.
func (r *SyncHistoryRepository) MarkStatusByTXHash(ctx context.Context, txHash, status string) error {
	q := `UPDATE sync_history SET status = $2, updated_at = now() WHERE tx_hash = $1 AND status = 'pending'`
	_, err := r.pool.Exec(ctx, q, txHash, status)
	return err
}

func (r *SyncHistoryRepository) ListByAddress(ctx context.Context, address string, limit int32) ([]credit.HistoryRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `
SELECT id, address, volume_micro, trade_count, tx_hash, status
FROM sync_history
WHERE address = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, address, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []credit.HistoryRecord
	for rows.Next() {
		var rec credit.HistoryRecord
		if err := rows.Scan(&rec.ID, &rec.Address, &rec.VolumeMicro, &rec.TradeCount, &rec.TXHash, &rec.Status); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
