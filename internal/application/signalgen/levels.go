package signalgen

import (
	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/indicators"
)

// buildLevels constructs entry/stop/target levels per spec.md §4.1's
// "Level construction" rules.
func buildLevels(dir domain.Direction, bars []domain.Bar, snap indicators.Snapshot) domain.Levels {
	close := snap.LastClose()
	entry := close

	atrPct := 0.0
	if close != 0 {
		atrPct = snap.LastATR() / close
	}
	kSL := 0.02 + clamp01(atrPct/0.05)*0.01 // k_sl in [0.02, 0.03]

	if dir == domain.DirectionLong {
		if support, ok := nearestSupport(snap.Lows, close); ok {
			if (close-support)/close <= 0.005 {
				entry = support
			}
		}
		stopLoss := entry * (1 - kSL)
		if support, ok := nearestSupport(snap.Lows, close); ok {
			stopLoss = minf(stopLoss, support*0.995)
		}
		return domain.Levels{
			Entry:    entry,
			StopLoss: stopLoss,
			TP1:      entry * 1.05,
			TP2:      entry * 1.10,
			TP3:      entry * 1.15,
		}
	}

	if resistance, ok := nearestResistance(snap.Highs, close); ok {
		if (resistance-close)/close <= 0.005 {
			entry = resistance
		}
	}
	stopLoss := entry * (1 + kSL)
	if resistance, ok := nearestResistance(snap.Highs, close); ok {
		stopLoss = maxf(stopLoss, resistance*1.005)
	}
	return domain.Levels{
		Entry:    entry,
		StopLoss: stopLoss,
		TP1:      entry * 0.95,
		TP2:      entry * 0.90,
		TP3:      entry * 0.85,
	}
}

// roundToTick rounds price to the nearest exchange tick size.
func roundToTick(price, tickSize float64) float64 {
	if tickSize <= 0 {
		return price
	}
	steps := float64(int64(price/tickSize + 0.5))
	return steps * tickSize
}

// roundLevels rounds every price in l to the exchange's tick size before
// persisting (spec §4.1's "Round to exchange tick size before persisting").
// A non-positive tickSize (lookup unavailable) leaves l unchanged.
func roundLevels(l domain.Levels, tickSize float64) domain.Levels {
	if tickSize <= 0 {
		return l
	}
	return domain.Levels{
		Entry:    roundToTick(l.Entry, tickSize),
		StopLoss: roundToTick(l.StopLoss, tickSize),
		TP1:      roundToTick(l.TP1, tickSize),
		TP2:      roundToTick(l.TP2, tickSize),
		TP3:      roundToTick(l.TP3, tickSize),
	}
}
