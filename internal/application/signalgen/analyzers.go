package signalgen

import (
	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/indicators"
)

// trendScore measures direction and strength of price action against the
// EMA stack, ADX, and MACD alignment (spec §4.1, weight 0.30).
func trendScore(snap indicators.Snapshot) (long, short float64) {
	close := snap.LastClose()
	ema20, ema50, ema200 := indicators.Last(snap.EMA20), indicators.Last(snap.EMA50), indicators.Last(snap.EMA200)
	macdHist := snap.LastMACDHist()
	plusDI, minusDI := snap.LastPlusDI(), snap.LastMinusDI()
	adx := snap.LastADX()

	bullish := 0
	bearish := 0
	total := 5

	if close > ema20 {
		bullish++
	} else {
		bearish++
	}
	if ema20 > ema50 {
		bullish++
	} else {
		bearish++
	}
	if ema50 > ema200 {
		bullish++
	} else {
		bearish++
	}
	if macdHist > 0 {
		bullish++
	} else {
		bearish++
	}
	if plusDI > minusDI {
		bullish++
	} else {
		bearish++
	}

	strength := adx / 50
	if strength > 1 {
		strength = 1
	}
	if strength < 0.2 {
		strength = 0.2 // a weak trend still contributes some signal
	}

	long = float64(bullish) / float64(total) * strength
	short = float64(bearish) / float64(total) * strength
	return clamp01(long), clamp01(short)
}

// smoothTrailScore measures proximity to structural support/resistance and
// bounce confirmation (spec §4.1, weight 0.25, the "Smooth-Trail" analyzer).
func smoothTrailScore(snap indicators.Snapshot) (long, short float64) {
	close := snap.LastClose()
	if close == 0 {
		return 0, 0
	}

	if support, ok := nearestSupport(snap.Lows, close); ok {
		dist := (close - support) / close
		if dist >= 0 {
			proximity := 1 - clamp01(dist/0.05)
			bounced := close > snap.Lows[len(snap.Lows)-1]
			if bounced {
				long = clamp01(proximity*0.7 + 0.3)
			} else {
				long = clamp01(proximity)
			}
		}
	}

	if resistance, ok := nearestResistance(snap.Highs, close); ok {
		dist := (resistance - close) / close
		if dist >= 0 {
			proximity := 1 - clamp01(dist/0.05)
			rejected := close < snap.Highs[len(snap.Highs)-1]
			if rejected {
				short = clamp01(proximity*0.7 + 0.3)
			} else {
				short = clamp01(proximity)
			}
		}
	}
	return long, short
}

// liquidityScore measures volume spike relative to the 20-bar mean and OBV
// alignment (spec §4.1, weight 0.20).
func liquidityScore(bars []domain.Bar, snap indicators.Snapshot) (long, short float64) {
	last := bars[len(bars)-1]
	if last.Range() == 0 {
		return 0, 0 // identical candle edge case (spec §4.1 Edge cases)
	}

	meanVol := indicators.VolumeMean(snap.Volume, 20)
	if meanVol == 0 {
		return 0, 0
	}
	spike := snap.Volume[len(snap.Volume)-1] / meanVol
	spikeScore := clamp01((spike - 1) / 2) // 1x mean -> 0, 3x mean -> 1

	obv := snap.OBV
	obvRising := len(obv) >= 2 && obv[len(obv)-1] > obv[len(obv)-2]
	bullishCandle := last.Close > last.Open

	if obvRising && bullishCandle {
		long = spikeScore
	}
	if !obvRising && !bullishCandle {
		short = spikeScore
	}
	return long, short
}

// smartMoneyScore measures VWAP position, volume-delta sign, and an
// order-block heuristic (spec §4.1, weight 0.25).
func smartMoneyScore(bars []domain.Bar, snap indicators.Snapshot) (long, short float64) {
	last := bars[len(bars)-1]
	vwap := snap.LastVWAP()
	if vwap == 0 {
		return 0, 0
	}

	aboveVWAP := last.Close > vwap
	volumeDeltaUp := last.Close > last.Open

	orderBlockLong, orderBlockShort := orderBlockHeuristic(bars)

	if aboveVWAP && volumeDeltaUp {
		long = clamp01(0.5 + orderBlockLong*0.5)
	}
	if !aboveVWAP && !volumeDeltaUp {
		short = clamp01(0.5 + orderBlockShort*0.5)
	}
	return long, short
}

// orderBlockHeuristic approximates institutional accumulation/distribution:
// a high-volume reversal candle within the last 10 bars followed by
// continuation in its direction.
func orderBlockHeuristic(bars []domain.Bar) (long, short float64) {
	n := len(bars)
	lookback := 10
	if n < lookback+1 {
		return 0, 0
	}
	window := bars[n-lookback-1 : n-1]

	meanVol := 0.0
	for _, b := range window {
		meanVol += b.Volume
	}
	meanVol /= float64(len(window))

	for _, b := range window {
		if meanVol == 0 || b.Volume < meanVol*1.5 {
			continue
		}
		if b.Close > b.Open && bars[n-1].Close > b.Close {
			long = 1
		}
		if b.Close < b.Open && bars[n-1].Close < b.Close {
			short = 1
		}
	}
	return long, short
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
