package postgres

import (
	"github.com/codemicah/okx-credit-score/internal/domain/credit"
	"github.com/codemicah/okx-credit-score/internal/http/handlers"
	"github.com/codemicah/okx-credit-score/internal/jobs"
)

var (
	_ credit.HistoryRepository = (*SyncHistoryRepository)(nil)
	_ jobs.HistoryRepository   = (*SyncHistoryRepository)(nil)
	_ handlers.HistoryReader   = (*SyncHistoryRepository)(nil)
	_ credit.PendingRepository = (*ConfirmationRepository)(nil)
	_ jobs.PendingRepository   = (*ConfirmationRepository)(nil)
)
