// Package credit drives one end-to-end score synchronization: acquire fresh
// trading metrics, submit them to the ledger, and hold for durable
// confirmation. The orchestrator makes a single attempt and never retries on
// its own; two calls mean two independent ledger submissions.
package credit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codemicah/okx-credit-score/internal/addr"
	"github.com/codemicah/okx-credit-score/internal/ledger"
	"github.com/codemicah/okx-credit-score/internal/tradedata"
)

// Sync record statuses as persisted in sync_history.
const (
	StatusConfirmed = "confirmed"
	StatusPending   = "pending"
	StatusFailed    = "failed"
)

// SyncError wraps whatever broke a sync attempt. Code is machine-readable
// for the HTTP layer and for log search.
type SyncError struct {
	Code  string
	Cause error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed (%s): %v", e.Code, e.Cause)
}

func (e *SyncError) Unwrap() error { return e.Cause }

const (
	CodeDataSourceUnavailable = "data_source_unavailable"
	CodeDataSourceError       = "data_source_error"
	CodeLedgerRejected        = "ledger_rejected"
	CodeLedgerTimeout         = "ledger_timeout"
	CodeInvalidAddress        = "invalid_address"
)

// SyncResult is returned to the caller and not persisted beyond the history
// row. Volume is in whole currency units for display.
type SyncResult struct {
	Address        string  `json:"address"`
	VolumeUSD      float64 `json:"volume"`
	TradeCount     uint64  `json:"tradeCount"`
	ConfirmationID string  `json:"confirmationId"`
}

type HistoryRecord struct {
	ID          string
	Address     string
	VolumeMicro uint64
	TradeCount  uint64
	TXHash      string
	Status      string
}

type HistoryRepository interface {
	Record(ctx context.Context, rec HistoryRecord) error
	MarkStatus(ctx context.Context, id, status string) error
}

// PendingRepository queues submissions whose confirmation timed out so the
// watcher can resolve them later.
type PendingRepository interface {
	Enqueue(ctx context.Context, address, txHash string) error
}

type Service struct {
	provider       tradedata.Provider
	writer         ledger.Writer
	history        HistoryRepository
	pending        PendingRepository
	confirmTimeout time.Duration
}

func NewService(provider tradedata.Provider, writer ledger.Writer, history HistoryRepository, pending PendingRepository, confirmTimeout time.Duration) *Service {
	if confirmTimeout <= 0 {
		confirmTimeout = 30 * time.Second
	}
	return &Service{
		provider:       provider,
		writer:         writer,
		history:        history,
		pending:        pending,
		confirmTimeout: confirmTimeout,
	}
}

// Metrics acquires fresh trading metrics without touching the ledger.
func (s *Service) Metrics(ctx context.Context, address string) (tradedata.Metrics, error) {
	normalized, err := addr.Normalize(address)
	if err != nil {
		return tradedata.Metrics{}, &SyncError{Code: CodeInvalidAddress, Cause: err}
	}
	metrics, err := s.provider.Acquire(ctx, normalized)
	if err != nil {
		return tradedata.Metrics{}, wrapAcquireError(err)
	}
	return metrics, nil
}

// SyncScore runs the full protocol. If metrics acquisition fails, the ledger
// is never contacted. A confirmation timeout leaves the submission queued as
// pending; its outcome is indeterminate until the watcher resolves it.
func (s *Service) SyncScore(ctx context.Context, address string) (*SyncResult, error) {
	normalized, err := addr.Normalize(address)
	if err != nil {
		return nil, &SyncError{Code: CodeInvalidAddress, Cause: err}
	}

	metrics, err := s.provider.Acquire(ctx, normalized)
	if err != nil {
		return nil, wrapAcquireError(err)
	}

	txHash, err := s.writer.SubmitScoreUpdate(ctx, normalized, metrics.VolumeMicro, metrics.TradeCount)
	if err != nil {
		return nil, wrapLedgerError(err)
	}

	recordID := uuid.NewString()
	if s.history != nil {
		_ = s.history.Record(ctx, HistoryRecord{
			ID:          recordID,
			Address:     normalized,
			VolumeMicro: metrics.VolumeMicro,
			TradeCount:  metrics.TradeCount,
			TXHash:      txHash,
			Status:      StatusPending,
		})
	}

	confirmCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	if err := s.writer.WaitConfirmed(confirmCtx, txHash); err != nil {
		switch {
		case errors.Is(err, ledger.ErrTimeout):
			if s.pending != nil {
				_ = s.pending.Enqueue(ctx, normalized, txHash)
			}
			return nil, &SyncError{Code: CodeLedgerTimeout, Cause: err}
		case errors.Is(err, ledger.ErrRejected):
			if s.history != nil {
				_ = s.history.MarkStatus(ctx, recordID, StatusFailed)
			}
			return nil, &SyncError{Code: CodeLedgerRejected, Cause: err}
		default:
			return nil, &SyncError{Code: CodeLedgerRejected, Cause: err}
		}
	}

	if s.history != nil {
		_ = s.history.MarkStatus(ctx, recordID, StatusConfirmed)
	}

	return &SyncResult{
		Address:        normalized,
		VolumeUSD:      metrics.VolumeUSD(),
		TradeCount:     metrics.TradeCount,
		ConfirmationID: txHash,
	}, nil
}

func wrapAcquireError(err error) *SyncError {
	if errors.Is(err, tradedata.ErrMalformed) {
		return &SyncError{Code: CodeDataSourceError, Cause: err}
	}
	return &SyncError{Code: CodeDataSourceUnavailable, Cause: err}
}

func wrapLedgerError(err error) *SyncError {
	if errors.Is(err, ledger.ErrTimeout) {
		return &SyncError{Code: CodeLedgerTimeout, Cause: err}
	}
	return &SyncError{Code: CodeLedgerRejected, Cause: err}
}
