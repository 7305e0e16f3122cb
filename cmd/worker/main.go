package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codemicah/okx-credit-score/internal/config"
	"github.com/codemicah/okx-credit-score/internal/db"
	"github.com/codemicah/okx-credit-score/internal/jobs"
	"github.com/codemicah/okx-credit-score/internal/ledger"
	"github.com/codemicah/okx-credit-score/internal/observability"
	postgresrepo "github.com/codemicah/okx-credit-score/internal/repository/postgres"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	ldg, err := ledger.NewLedgerFromConfig(cfg)
	if err != nil {
		logger.Error("failed to build ledger client", "err", err)
		os.Exit(1)
	}

	// Realtime delivery happens in the API process, which runs its own
	// watcher against the shared table; this standalone worker only resolves
	// rows that outlive an API restart.
	watcher := jobs.NewWatcher(
		postgresrepo.NewConfirmationRepository(pool),
		postgresrepo.NewSyncHistoryRepository(pool),
		ldg,
		nil,
	)

	interval := cfg.WorkerPollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("confirmation watcher started", "interval", interval.String(), "batch_size", cfg.WorkerBatchSize)
	for {
		select {
		case <-sigCtx.Done():
			logger.Info("confirmation watcher stopped")
			return
		case <-ticker.C:
			runCtx, runCancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := watcher.RunOnce(runCtx, cfg.WorkerBatchSize)
			runCancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watcher run failed", "err", err)
			}
		}
	}
}
