package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codemicah/okx-credit-score/internal/auth"
	"github.com/codemicah/okx-credit-score/internal/config"
	"github.com/codemicah/okx-credit-score/internal/db"
	"github.com/codemicah/okx-credit-score/internal/domain/credit"
	"github.com/codemicah/okx-credit-score/internal/domain/lending"
	"github.com/codemicah/okx-credit-score/internal/http/handlers"
	"github.com/codemicah/okx-credit-score/internal/jobs"
	"github.com/codemicah/okx-credit-score/internal/ledger"
	"github.com/codemicah/okx-credit-score/internal/observability"
	postgresrepo "github.com/codemicah/okx-credit-score/internal/repository/postgres"
	"github.com/codemicah/okx-credit-score/internal/server"
	"github.com/codemicah/okx-credit-score/internal/session"
	"github.com/codemicah/okx-credit-score/internal/tradedata"
	"github.com/codemicah/okx-credit-score/internal/ws"
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

	provider, err := tradedata.NewProviderFromConfig(cfg)
	if err != nil {
		logger.Error("failed to build trading data provider", "err", err)
		os.Exit(1)
	}
	ldg, err := ledger.NewLedgerFromConfig(cfg)
	if err != nil {
		logger.Error("failed to build ledger client", "err", err)
		os.Exit(1)
	}

	guard := session.NewGuard()
	jwtManager := auth.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSigningKey, cfg.JWTSessionTTL)

	confirmationRepo := postgresrepo.NewConfirmationRepository(pool)
	syncHistoryRepo := postgresrepo.NewSyncHistoryRepository(pool)
	creditService := credit.NewService(
		provider,
		ldg,
		syncHistoryRepo,
		confirmationRepo,
		cfg.ConfirmTimeout,
	)
	lendingService := lending.NewService(ldg, cfg.ETHPriceUSD, cfg.ConfirmTimeout)

	hub := ws.NewHub()
	watcher := jobs.NewWatcher(confirmationRepo, syncHistoryRepo, ldg, hub)

	watcherCtx, watcherStop := context.WithCancel(context.Background())
	defer watcherStop()
	go func() {
		ticker := time.NewTicker(cfg.WorkerPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-watcherCtx.Done():
				return
			case <-ticker.C:
				runCtx, runCancel := context.WithTimeout(watcherCtx, 30*time.Second)
				if err := watcher.RunOnce(runCtx, cfg.WorkerBatchSize); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("confirmation watcher run failed", "err", err)
				}
				runCancel()
			}
		}
	}()

	r := server.NewRouter(cfg, logger, server.Dependencies{
		Pinger:         pool,
		SyncHandler:    handlers.NewSyncHandler(creditService, syncHistoryRepo, guard),
		LendingHandler: handlers.NewLendingHandler(lendingService, guard),
		SessionHandler: handlers.NewSessionHandler(jwtManager),
		WSHandler:      ws.NewHandler(hub),
		JWTManager:     jwtManager,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api server starting", "addr", cfg.Addr(), "data_source", cfg.DataSourceMode, "ledger", cfg.LedgerMode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info("api server stopped")
}
