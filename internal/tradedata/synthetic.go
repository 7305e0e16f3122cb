package tradedata

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"
)

const (
	maxSyntheticVolumeUSD = 50000
	maxSyntheticTrades    = 100
)

// SyntheticProvider generates pseudo-random metrics without touching the
// network. Addresses containing the zero marker always yield zero metrics so
// the no-score path can be exercised deterministically.
type SyntheticProvider struct {
	zeroMarker string

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSyntheticProvider(zeroMarker string) *SyntheticProvider {
	return NewSyntheticProviderWithSeed(zeroMarker, time.Now().UnixNano())
}

func NewSyntheticProviderWithSeed(zeroMarker string, seed int64) *SyntheticProvider {
	return &SyntheticProvider{
		zeroMarker: strings.ToLower(strings.TrimSpace(zeroMarker)),
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (p *SyntheticProvider) Acquire(_ context.Context, address string) (Metrics, error) {
	if p.zeroMarker != "" && strings.Contains(strings.ToLower(address), p.zeroMarker) {
		return Metrics{}, nil
	}

	p.mu.Lock()
	volumeUSD := uint64(p.rng.Int63n(maxSyntheticVolumeUSD + 1))
	trades := uint64(p.rng.Intn(maxSyntheticTrades))
	p.mu.Unlock()

	return Metrics{
		VolumeMicro: volumeUSD * 1_000_000,
		TradeCount:  trades,
	}, nil
}
