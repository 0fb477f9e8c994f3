package signalgen

import (
	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/indicators"
)

// FilterResult names which filter rejected a candidate, for logging.
type FilterResult struct {
	Passed bool
	Reason string
}

func passed() FilterResult { return FilterResult{Passed: true} }
func rejected(reason string) FilterResult { return FilterResult{Passed: false, Reason: reason} }

// runFilters applies spec.md §4.1's six filters in order, short-circuiting
// on the first failure.
func runFilters(cfg Config, dir domain.Direction, score float64, confluence domain.ConfluenceFlags, levels domain.Levels, higherTFTrend int, snap indicators.Snapshot) FilterResult {
	if score < cfg.MinScore {
		return rejected("score below minimum")
	}
	if confluence.Count() < cfg.MinConfluenceFlags {
		return rejected("insufficient confluence")
	}
	if !higherTimeframeAgrees(dir, higherTFTrend) {
		return rejected("higher timeframe disagrees")
	}
	if !srDistanceOK(cfg, dir, levels, snap) {
		return rejected("glued to support/resistance level")
	}
	if !momentumOK(cfg, dir, snap) {
		return rejected("momentum filter failed")
	}
	if levels.RiskReward(dir) < cfg.MinRiskReward {
		return rejected("risk/reward below minimum")
	}
	return passed()
}

// higherTimeframeAgrees implements filter 3: the higher timeframe trend sign
// (-1 bearish, 0 neutral, 1 bullish) must not contradict direction.
func higherTimeframeAgrees(dir domain.Direction, higherTFTrend int) bool {
	if higherTFTrend == 0 {
		return true
	}
	if dir == domain.DirectionLong {
		return higherTFTrend > 0
	}
	return higherTFTrend < 0
}

// srDistanceOK implements filter 4: entries must not be glued to the level
// they're trading off of.
func srDistanceOK(cfg Config, dir domain.Direction, levels domain.Levels, snap indicators.Snapshot) bool {
	if dir == domain.DirectionLong {
		support, ok := nearestSupport(snap.Lows, levels.Entry)
		if !ok {
			return true
		}
		return (levels.Entry-support)/levels.Entry >= cfg.MinSRDistancePct
	}
	resistance, ok := nearestResistance(snap.Highs, levels.Entry)
	if !ok {
		return true
	}
	return (resistance-levels.Entry)/levels.Entry >= cfg.MinSRDistancePct
}

// momentumOK implements filter 5: RSI(14) in band and MACD histogram sign
// agrees with direction.
func momentumOK(cfg Config, dir domain.Direction, snap indicators.Snapshot) bool {
	rsi := snap.LastRSI14()
	if rsi < cfg.RSILow || rsi > cfg.RSIHigh {
		return false
	}
	hist := snap.LastMACDHist()
	if dir == domain.DirectionLong {
		return hist >= 0
	}
	return hist <= 0
}

// trendSign returns -1/0/1 describing the dominant EMA/MACD trend of a
// snapshot, used for the multi-timeframe agreement filter.
func trendSign(snap indicators.Snapshot) int {
	long, short := trendScore(snap)
	switch {
	case long > short && long > 0.1:
		return 1
	case short > long && short > 0.1:
		return -1
	default:
		return 0
	}
}
