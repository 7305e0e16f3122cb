// Package jobs resolves score submissions whose confirmation timed out. The
// orchestrator reports LedgerTimeout and moves on; the watcher keeps polling
// the ledger receipt until the outcome is known and tells subscribed sessions
// over the hub.
package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/codemicah/okx-credit-score/internal/domain/credit"
	"github.com/codemicah/okx-credit-score/internal/ledger"
	"github.com/codemicah/okx-credit-score/internal/ws"
)

type PendingJob struct {
	ID          int64
	Address     string
	TXHash      string
	Attempts    int32
	AvailableAt time.Time
}

type PendingRepository interface {
	ClaimPending(ctx context.Context, limit int32) ([]PendingJob, error)
	MarkConfirmed(ctx context.Context, jobID int64) error
	MarkRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, jobID int64, lastError string) error
}

// HistoryRepository updates the sync_history rows that were left pending when
// the orchestrator's confirmation wait timed out.
type HistoryRepository interface {
	MarkStatusByTXHash(ctx context.Context, txHash, status string) error
}

type Publisher interface {
	Publish(topic string, payload []byte)
}

type Watcher struct {
	pendingRepo  PendingRepository
	historyRepo  HistoryRepository
	ledger       ledger.Ledger
	hub          Publisher
	maxAttempts  int32
	now          func() time.Time
	retryBackoff func(attempt int32) time.Duration
}

func NewWatcher(pendingRepo PendingRepository, historyRepo HistoryRepository, l ledger.Ledger, hub Publisher) *Watcher {
	return &Watcher{
		pendingRepo: pendingRepo,
		historyRepo: historyRepo,
		ledger:      l,
		hub:         hub,
		maxAttempts: 30,
		now:         func() time.Time { return time.Now().UTC() },
		retryBackoff: func(attempt int32) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			return time.Duration(attempt*10) * time.Second
		},
	}
}

func (w *Watcher) RunOnce(ctx context.Context, batchSize int32) error {
	pending, err := w.pendingRepo.ClaimPending(ctx, batchSize)
	if err != nil {
		return err
	}

	for _, job := range pending {
		if err := w.processJob(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) processJob(ctx context.Context, job PendingJob) error {
	status, err := w.ledger.Receipt(ctx, job.TXHash)
	if err != nil {
		return w.retryOrFail(ctx, job, err.Error())
	}

	switch status {
	case ledger.ReceiptConfirmed:
		if err := w.pendingRepo.MarkConfirmed(ctx, job.ID); err != nil {
			return err
		}
		w.markHistory(ctx, job, credit.StatusConfirmed)
		w.publish(ctx, job, "score_confirmed")
		return nil
	case ledger.ReceiptRejected:
		if err := w.pendingRepo.MarkFailed(ctx, job.ID, "ledger_rejected"); err != nil {
			return err
		}
		w.markHistory(ctx, job, credit.StatusFailed)
		w.publish(ctx, job, "score_rejected")
		return nil
	default:
		return w.retryOrFail(ctx, job, "still_pending")
	}
}

func (w *Watcher) retryOrFail(ctx context.Context, job PendingJob, reason string) error {
	if job.Attempts >= w.maxAttempts {
		if err := w.pendingRepo.MarkFailed(ctx, job.ID, reason); err != nil {
			return err
		}
		w.markHistory(ctx, job, credit.StatusFailed)
		return nil
	}
	next := w.now().Add(w.retryBackoff(job.Attempts))
	return w.pendingRepo.MarkRetry(ctx, job.ID, next, reason)
}

func (w *Watcher) markHistory(ctx context.Context, job PendingJob, status string) {
	if w.historyRepo == nil {
		return
	}
	_ = w.historyRepo.MarkStatusByTXHash(ctx, job.TXHash, status)
}

func (w *Watcher) publish(ctx context.Context, job PendingJob, event string) {
	if w.hub == nil {
		return
	}
	data := map[string]any{
		"address": job.Address,
		"txHash":  job.TXHash,
	}
	if event == "score_confirmed" {
		if state, err := w.ledger.State(ctx, job.Address); err == nil {
			data["score"] = state.Score
		}
	}
	payload, _ := json.Marshal(map[string]any{
		"event": event,
		"data":  data,
	})
	w.hub.Publish(ws.ConfirmationTopic(job.Address), payload)
}
