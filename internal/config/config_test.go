package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("DATA_SOURCE_MODE", "")
	t.Setenv("LEDGER_MODE", "")
	t.Setenv("ETH_PRICE_USD", "")
	t.Setenv("CONFIRM_TIMEOUT", "")

	cfg := Load()

	if cfg.Port != "3001" {
		t.Fatalf("expected default port 3001, got %s", cfg.Port)
	}
	if cfg.Env != "local" {
		t.Fatalf("expected default env local, got %s", cfg.Env)
	}
	if cfg.DataSourceMode != "synthetic" || cfg.LedgerMode != "stub" {
		t.Fatalf("expected safe local modes, got %s/%s", cfg.DataSourceMode, cfg.LedgerMode)
	}
	if cfg.ETHPriceUSD != 3000 {
		t.Fatalf("expected default ETH price 3000, got %d", cfg.ETHPriceUSD)
	}
	if cfg.ConfirmTimeout != 30*time.Second {
		t.Fatalf("expected default confirm timeout 30s, got %s", cfg.ConfirmTimeout)
	}
	if cfg.Addr() != ":3001" {
		t.Fatalf("unexpected listen addr: %s", cfg.Addr())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATA_SOURCE_MODE", "okx")
	t.Setenv("LEDGER_MODE", "rpc")
	t.Setenv("LEDGER_HTTP_RPC", "http://10.0.0.5:8545")
	t.Setenv("ETH_PRICE_USD", "2800")
	t.Setenv("CONFIRM_TIMEOUT", "45s")
	t.Setenv("WORKER_BATCH_SIZE", "50")

	cfg := Load()

	if cfg.Port != "9000" || cfg.Env != "production" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.DataSourceMode != "okx" || cfg.LedgerMode != "rpc" {
		t.Fatalf("mode overrides not applied: %s/%s", cfg.DataSourceMode, cfg.LedgerMode)
	}
	if cfg.LedgerHTTPRPC != "http://10.0.0.5:8545" {
		t.Fatalf("rpc url override not applied: %s", cfg.LedgerHTTPRPC)
	}
	if cfg.ETHPriceUSD != 2800 || cfg.ConfirmTimeout != 45*time.Second || cfg.WorkerBatchSize != 50 {
		t.Fatalf("numeric overrides not applied: %+v", cfg)
	}
}

func TestLoadIgnoresGarbageNumerics(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "not-a-number")
	t.Setenv("CONFIRM_TIMEOUT", "soon")

	cfg := Load()

	if cfg.DBMaxConns != 25 {
		t.Fatalf("expected fallback DBMaxConns 25, got %d", cfg.DBMaxConns)
	}
	if cfg.ConfirmTimeout != 30*time.Second {
		t.Fatalf("expected fallback confirm timeout, got %s", cfg.ConfirmTimeout)
	}
}
