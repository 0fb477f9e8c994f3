package selector

import (
	"sort"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
)

// WinRateLookup returns the trailing win rate for a symbol over the
// selector's lookback window, defaulting to 0.50 when there is no history.
type WinRateLookup func(symbol string) float64

// MarketConditionFit scores how favorable current market conditions are for
// a given signal, in [0,1].
type MarketConditionFit func(signal domain.Signal) float64

const riskRewardCap = 5.0

// quality computes the composite ranking score from spec.md §4.2.
func quality(signal domain.Signal, winRate WinRateLookup, fit MarketConditionFit) float64 {
	rr := signal.Levels.RiskReward(signal.Direction)
	normalizedRR := rr / riskRewardCap
	if normalizedRR > 1 {
		normalizedRR = 1
	}
	if normalizedRR < 0 {
		normalizedRR = 0
	}

	return 0.40*signal.Score +
		0.30*winRate(signal.Symbol) +
		0.20*fit(signal) +
		0.10*normalizedRR
}

// rankedCandidate pairs a signal with its computed quality for sorting.
type rankedCandidate struct {
	signal  domain.Signal
	quality float64
}

// rank orders candidates by quality descending, tie-broken by raw score then
// recency (spec §4.2's tie-break rule).
func rank(candidates []rankedCandidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.quality != b.quality {
			return a.quality > b.quality
		}
		if a.signal.Score != b.signal.Score {
			return a.signal.Score > b.signal.Score
		}
		return a.signal.CreatedAt.After(b.signal.CreatedAt)
	})
}
