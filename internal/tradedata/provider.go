// Package tradedata acquires raw trading metrics for an address from the
// upstream trading-history source. Two providers exist: a synthetic one for
// local and test runs, and the live OKX DEX API client. The variant is picked
// once at startup; business logic only ever sees the Provider interface.
package tradedata

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable marks a transport or auth failure reaching the upstream
	// source. The caller surfaces it; no automatic retry.
	ErrUnavailable = errors.New("trading data source unavailable")

	// ErrMalformed marks a structurally invalid upstream payload. Malformed
	// responses never degrade to zero metrics.
	ErrMalformed = errors.New("malformed trading data response")
)

// Metrics are produced fresh on every acquisition and are not persisted here;
// the ledger owns the durable copy. Volume is in 6-decimal micro-units.
type Metrics struct {
	VolumeMicro uint64
	TradeCount  uint64
}

// VolumeUSD returns the whole-currency display value of the volume.
func (m Metrics) VolumeUSD() float64 {
	return float64(m.VolumeMicro) / 1e6
}

type Provider interface {
	Acquire(ctx context.Context, address string) (Metrics, error)
}
