package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codemicah/okx-credit-score/internal/domain/credit"
	"github.com/codemicah/okx-credit-score/internal/http/middleware"
	"github.com/codemicah/okx-credit-score/internal/session"
	"github.com/codemicah/okx-credit-score/internal/tradedata"
)

const testAddr = "0xab5801a7d398351b8be11c439e05c5b3259aec9b"

type syncServiceMock struct {
	result  *credit.SyncResult
	err     error
	metrics tradedata.Metrics
	block   chan struct{}
	started chan struct{}
}

func (m *syncServiceMock) SyncScore(_ context.Context, _ string) (*credit.SyncResult, error) {
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
	return m.result, m.err
}

func (m *syncServiceMock) Metrics(_ context.Context, _ string) (tradedata.Metrics, error) {
	return m.metrics, m.err
}

type historyReaderMock struct {
	records []credit.HistoryRecord
	gotAddr string
}

func (m *historyReaderMock) ListByAddress(_ context.Context, address string, _ int32) ([]credit.HistoryRecord, error) {
	m.gotAddr = address
	return m.records, nil
}

func newSyncRouter(svc SyncService, history HistoryReader, guard *session.Guard) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewSyncHandler(svc, history, guard)
	r.POST("/update-score/:address", h.UpdateScore)
	r.GET("/trading-data/:address", h.TradingData)
	r.GET("/v1/sync-history/:address", h.SyncHistory)
	return r
}

func TestUpdateScoreSuccessShape(t *testing.T) {
	svc := &syncServiceMock{result: &credit.SyncResult{
		Address:        testAddr,
		VolumeUSD:      2000,
		TradeCount:     50,
		ConfirmationID: "0xfeed",
	}}
	r := newSyncRouter(svc, &historyReaderMock{}, session.NewGuard())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/update-score/"+testAddr, nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	var body struct {
		Success bool              `json:"success"`
		Data    credit.SyncResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if !body.Success || body.Data.ConfirmationID != "0xfeed" || body.Data.VolumeUSD != 2000 {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestUpdateScoreFailureIs500(t *testing.T) {
	svc := &syncServiceMock{err: &credit.SyncError{Code: credit.CodeDataSourceUnavailable, Cause: fmt.Errorf("down")}}
	r := newSyncRouter(svc, &historyReaderMock{}, session.NewGuard())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/update-score/"+testAddr, nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] != credit.CodeDataSourceUnavailable {
		t.Fatalf("unexpected error code: %s", body["error"])
	}
}

func TestUpdateScoreConcurrentRejected(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	svc := &syncServiceMock{
		result:  &credit.SyncResult{Address: testAddr, ConfirmationID: "0x1"},
		block:   block,
		started: started,
	}
	r := newSyncRouter(svc, &historyReaderMock{}, session.NewGuard())

	var wg sync.WaitGroup
	first := httptest.NewRecorder()
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/update-score/"+testAddr, nil))
	}()

	// Wait until the first request holds the busy slot.
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first request never reached the service")
	}

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/update-score/"+testAddr, nil))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 while busy, got %d", second.Code)
	}

	close(block)
	wg.Wait()
	if first.Code != http.StatusOK {
		t.Fatalf("first request should succeed, got %d", first.Code)
	}

	// Slot released: a new request is granted.
	svc.block = nil
	svc.started = nil
	third := httptest.NewRecorder()
	r.ServeHTTP(third, httptest.NewRequest(http.MethodPost, "/update-score/"+testAddr, nil))
	if third.Code != http.StatusOK {
		t.Fatalf("expected grant after completion, got %d", third.Code)
	}
}

func TestTradingDataReadOnly(t *testing.T) {
	svc := &syncServiceMock{metrics: tradedata.Metrics{VolumeMicro: 1_500_000, TradeCount: 3}}
	r := newSyncRouter(svc, &historyReaderMock{}, session.NewGuard())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trading-data/"+testAddr, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	var body struct {
		Volume     float64 `json:"volume"`
		TradeCount uint64  `json:"tradeCount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body.Volume != 1.5 || body.TradeCount != 3 {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestSyncHistoryListsRecords(t *testing.T) {
	history := &historyReaderMock{records: []credit.HistoryRecord{
		{ID: "rec-1", Address: testAddr, VolumeMicro: 2_000_000_000, TradeCount: 50, TXHash: "0xfeed", Status: credit.StatusConfirmed},
		{ID: "rec-2", Address: testAddr, VolumeMicro: 0, TradeCount: 0, TXHash: "0xdead", Status: credit.StatusPending},
	}}
	r := newSyncRouter(&syncServiceMock{}, history, session.NewGuard())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/sync-history/"+testAddr, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if history.gotAddr != testAddr {
		t.Fatalf("history queried with %q", history.gotAddr)
	}
	var body struct {
		Address string `json:"address"`
		History []struct {
			ID     string  `json:"id"`
			Volume float64 `json:"volume"`
			TXHash string  `json:"txHash"`
			Status string  `json:"status"`
		} `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(body.History) != 2 || body.History[0].Volume != 2000 || body.History[1].Status != credit.StatusPending {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestSyncHistoryBadAddress(t *testing.T) {
	r := newSyncRouter(&syncServiceMock{}, &historyReaderMock{}, session.NewGuard())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/sync-history/not-an-address", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

// A sync and a borrow for the same address share one busy slot, regardless of
// which session token the borrow presents.
func TestSyncBlocksBorrowForSameAddress(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	syncSvc := &syncServiceMock{
		result:  &credit.SyncResult{Address: testAddr, ConfirmationID: "0x1"},
		block:   block,
		started: started,
	}
	lendSvc := &lendingServiceMock{tx: "0xabc"}
	guard := session.NewGuard()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	sh := NewSyncHandler(syncSvc, &historyReaderMock{}, guard)
	lh := NewLendingHandler(lendSvc, guard)
	r.POST("/update-score/:address", sh.UpdateScore)
	bind := func(c *gin.Context) {
		c.Set(middleware.ContextAddress, testAddr)
		c.Set(middleware.ContextSessionID, "session-1")
	}
	r.POST("/v1/borrow", bind, lh.Borrow)

	var wg sync.WaitGroup
	first := httptest.NewRecorder()
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/update-score/"+testAddr, nil))
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("sync never reached the service")
	}

	borrow := httptest.NewRecorder()
	r.ServeHTTP(borrow, httptest.NewRequest(http.MethodPost, "/v1/borrow", nil))
	if borrow.Code != http.StatusConflict {
		t.Fatalf("expected 409 while sync in flight, got %d", borrow.Code)
	}
	var body struct {
		Error     string `json:"error"`
		Operation string `json:"operation"`
	}
	if err := json.Unmarshal(borrow.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body.Error != "action_in_progress" || body.Operation != "sync" {
		t.Fatalf("unexpected body: %s", borrow.Body.String())
	}

	close(block)
	wg.Wait()
	if first.Code != http.StatusOK {
		t.Fatalf("sync should succeed, got %d", first.Code)
	}

	after := httptest.NewRecorder()
	r.ServeHTTP(after, httptest.NewRequest(http.MethodPost, "/v1/borrow", nil))
	if after.Code != http.StatusOK {
		t.Fatalf("borrow should be granted once sync finished, got %d", after.Code)
	}
}
