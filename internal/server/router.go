package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codemicah/okx-credit-score/internal/auth"
	"github.com/codemicah/okx-credit-score/internal/config"
	"github.com/codemicah/okx-credit-score/internal/http/handlers"
	"github.com/codemicah/okx-credit-score/internal/http/middleware"
	"github.com/codemicah/okx-credit-score/internal/version"
	"github.com/codemicah/okx-credit-score/internal/ws"
)

const maxRequestBodyBytes = 1 << 20

type Dependencies struct {
	Pinger         handlers.Pinger
	SyncHandler    *handlers.SyncHandler
	LendingHandler *handlers.LendingHandler
	SessionHandler *handlers.SessionHandler
	WSHandler      *ws.Handler
	JWTManager     *auth.JWTManager
}

func NewRouter(cfg config.Config, logger *slog.Logger, deps Dependencies) *gin.Engine {
	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestBodyLimit(maxRequestBodyBytes))
	r.Use(func(c *gin.Context) {
		logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.Next()
	})

	health := handlers.NewHealthHandler(deps.Pinger)
	meta := handlers.NewMetaHandler(cfg.Env, version.Version)

	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/v1/meta", meta.GetMeta)

	if deps.SyncHandler != nil {
		r.POST("/update-score/:address", deps.SyncHandler.UpdateScore)
		r.GET("/trading-data/:address", deps.SyncHandler.TradingData)
		r.GET("/v1/sync-history/:address", deps.SyncHandler.SyncHistory)
	}

	if deps.LendingHandler != nil {
		r.GET("/v1/credit/:address", deps.LendingHandler.GetCredit)
		r.GET("/v1/loan/:address", deps.LendingHandler.GetLoan)
		r.GET("/v1/repay-quote/:address", deps.LendingHandler.GetRepayQuote)
	}

	if deps.SessionHandler != nil && deps.JWTManager != nil {
		r.POST("/v1/session", deps.SessionHandler.Bind)

		if deps.LendingHandler != nil {
			protected := r.Group("/v1")
			protected.Use(middleware.RequireSession(deps.JWTManager))
			protected.POST("/borrow", deps.LendingHandler.Borrow)
			protected.POST("/repay", deps.LendingHandler.Repay)
		}
	}

	if deps.WSHandler != nil {
		r.GET("/v1/ws", deps.WSHandler.HandleWebSocket)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}
