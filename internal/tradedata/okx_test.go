package tradedata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestOKXProvider(t *testing.T, baseURL string) *OKXProvider {
	t.Helper()
	p, err := NewOKXProvider(baseURL, "key", "sign", "pass", "31337", 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestOKXAcquireSumsAmounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("OK-ACCESS-KEY") != "key" {
			t.Errorf("missing api key header")
		}
		if r.URL.Query().Get("limit") != "100" {
			t.Errorf("unexpected limit: %s", r.URL.Query().Get("limit"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"0","data":[{"transactionList":[
			{"amount":"1200.50"},
			{"amount":"not-a-number"},
			{"amount":""},
			{"amount":"799.50"}
		]}]}`))
	}))
	defer srv.Close()

	m, err := newTestOKXProvider(t, srv.URL).Acquire(context.Background(), "0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.VolumeMicro != 2000_000_000 {
		t.Fatalf("unexpected volume: %d", m.VolumeMicro)
	}
	if m.TradeCount != 4 {
		t.Fatalf("unexpected trade count: %d", m.TradeCount)
	}
}

func TestOKXAcquireEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"0","data":[]}`))
	}))
	defer srv.Close()

	m, err := newTestOKXProvider(t, srv.URL).Acquire(context.Background(), "0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.VolumeMicro != 0 || m.TradeCount != 0 {
		t.Fatalf("expected zero metrics, got %+v", m)
	}
}

func TestOKXAcquireMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway error</html>`))
	}))
	defer srv.Close()

	_, err := newTestOKXProvider(t, srv.URL).Acquire(context.Background(), "0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestOKXAcquireErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"50011","msg":"rate limited","data":[]}`))
	}))
	defer srv.Close()

	_, err := newTestOKXProvider(t, srv.URL).Acquire(context.Background(), "0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestOKXAcquireAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestOKXProvider(t, srv.URL).Acquire(context.Background(), "0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestOKXAcquireTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := newTestOKXProvider(t, srv.URL).Acquire(context.Background(), "0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
