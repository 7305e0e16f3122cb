// Package scoring mirrors the score formula applied by the on-chain credit
// ledger. The ledger recomputes the score itself from submitted metrics; this
// local copy exists for display estimates and for the stub ledger, and must
// never gate a write decision.
package scoring

const (
	MaxScore = 1000

	baseActive         = 200
	maxVolumeComponent = 500
	volumeStepUSD      = 1000
	volumeStepPoints   = 50
	maxFreqComponent   = 300
	freqPointsPerTrade = 3

	microPerUSD = 1_000_000
)

// Score derives the bounded reputation score from raw trading metrics. Volume
// is taken in 6-decimal micro-units.
func Score(volumeMicro, tradeCount uint64) uint64 {
	var base uint64
	if tradeCount > 0 {
		base = baseActive
	}

	volumeUSD := volumeMicro / microPerUSD
	volumeComponent := (volumeUSD / volumeStepUSD) * volumeStepPoints
	if volumeComponent > maxVolumeComponent {
		volumeComponent = maxVolumeComponent
	}

	freqComponent := tradeCount * freqPointsPerTrade
	if freqComponent > maxFreqComponent {
		freqComponent = maxFreqComponent
	}

	total := base + volumeComponent + freqComponent
	if total > MaxScore {
		total = MaxScore
	}
	return total
}
