package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codemicah/okx-credit-score/internal/addr"
	"github.com/codemicah/okx-credit-score/internal/domain/credit"
	"github.com/codemicah/okx-credit-score/internal/session"
	"github.com/codemicah/okx-credit-score/internal/tradedata"
)

type SyncService interface {
	SyncScore(ctx context.Context, address string) (*credit.SyncResult, error)
	Metrics(ctx context.Context, address string) (tradedata.Metrics, error)
}

type HistoryReader interface {
	ListByAddress(ctx context.Context, address string, limit int32) ([]credit.HistoryRecord, error)
}

type SyncHandler struct {
	syncService SyncService
	history     HistoryReader
	guard       *session.Guard
}

func NewSyncHandler(syncService SyncService, history HistoryReader, guard *session.Guard) *SyncHandler {
	return &SyncHandler{syncService: syncService, history: history, guard: guard}
}

// UpdateScore runs one sync for the address in the path. Response shape
// matches the public contract: 200 {success,data} or 500 {error}.
func (h *SyncHandler) UpdateScore(c *gin.Context) {
	address := strings.ToLower(strings.TrimSpace(c.Param("address")))
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_address"})
		return
	}

	release, err := h.guard.Begin(address, "sync")
	if err != nil {
		op, _ := h.guard.Current(address)
		c.JSON(http.StatusConflict, gin.H{"error": "action_in_progress", "operation": op})
		return
	}
	defer release()

	result, err := h.syncService.SyncScore(c.Request.Context(), address)
	if err != nil {
		var syncErr *credit.SyncError
		if errors.As(err, &syncErr) && syncErr.Code == credit.CodeInvalidAddress {
			c.JSON(http.StatusBadRequest, gin.H{"error": syncErr.Code})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorCode(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// TradingData acquires metrics read-only; no ledger write happens here.
func (h *SyncHandler) TradingData(c *gin.Context) {
	address := strings.TrimSpace(c.Param("address"))
	metrics, err := h.syncService.Metrics(c.Request.Context(), address)
	if err != nil {
		var syncErr *credit.SyncError
		if errors.As(err, &syncErr) && syncErr.Code == credit.CodeInvalidAddress {
			c.JSON(http.StatusBadRequest, gin.H{"error": syncErr.Code})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorCode(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"volume":     metrics.VolumeUSD(),
		"tradeCount": metrics.TradeCount,
	})
}

// SyncHistory lists recent sync attempts for an address, newest first.
func (h *SyncHandler) SyncHistory(c *gin.Context) {
	normalized, err := addr.Normalize(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_address"})
		return
	}

	limit := int32(50)
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 32); err == nil {
			limit = int32(n)
		}
	}

	records, err := h.history.ListByAddress(c.Request.Context(), normalized, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	items := make([]gin.H, 0, len(records))
	for _, rec := range records {
		items = append(items, gin.H{
			"id":         rec.ID,
			"volume":     float64(rec.VolumeMicro) / 1e6,
			"tradeCount": rec.TradeCount,
			"txHash":     rec.TXHash,
			"status":     rec.Status,
		})
	}
	c.JSON(http.StatusOK, gin.H{"address": normalized, "history": items})
}

func errorCode(err error) string {
	var syncErr *credit.SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Code
	}
	return "internal_error"
}
