package indicators

import "github.com/alejandrodnm/cryptosignal/internal/domain"

// Snapshot is the full set of indicator series computed once per
// (symbol, timeframe) analysis pass, shared across the four analyzer
// functions so none of them recomputes the same series twice.
type Snapshot struct {
	Closes []float64
	Highs  []float64
	Lows   []float64
	Volume []float64

	RSI14 []float64
	RSI21 []float64

	EMA12  []float64
	EMA20  []float64
	EMA26  []float64
	EMA50  []float64
	EMA200 []float64

	MACD MACDResult
	BB   BollingerBands
	ADX  ADXResult
	Stoch StochasticResult
	ATR14 []float64
	OBV   []float64
	VWAP  []float64
}

// Compute builds a Snapshot from a closed, ascending-order bar slice.
func Compute(bars []domain.Bar) Snapshot {
	closes := domain.Closes(bars)
	highs := domain.Highs(bars)
	lows := domain.Lows(bars)
	volume := domain.Volumes(bars)

	return Snapshot{
		Closes: closes,
		Highs:  highs,
		Lows:   lows,
		Volume: volume,

		RSI14: RSI(closes, 14),
		RSI21: RSI(closes, 21),

		EMA12:  EMA(closes, 12),
		EMA20:  EMA(closes, 20),
		EMA26:  EMA(closes, 26),
		EMA50:  EMA(closes, 50),
		EMA200: EMA(closes, 200),

		MACD:  MACD(closes, 12, 26, 9),
		BB:    Bollinger(closes, 20, 2),
		ADX:   ADX(highs, lows, closes, 14),
		Stoch: Stochastic(highs, lows, closes, 14, 3, 3),
		ATR14: ATR(highs, lows, closes, 14),
		OBV:   OBV(closes, volume),
		VWAP:  VWAP(highs, lows, closes, volume),
	}
}

// Last* helpers return the most recent value of their series; used pervasively
// by the analyzer functions which only care about the current bar's reading.

func (s Snapshot) LastClose() float64   { return Last(s.Closes) }
func (s Snapshot) LastRSI14() float64   { return Last(s.RSI14) }
func (s Snapshot) LastADX() float64     { return Last(s.ADX.ADX) }
func (s Snapshot) LastPlusDI() float64  { return Last(s.ADX.PlusDI) }
func (s Snapshot) LastMinusDI() float64 { return Last(s.ADX.MinusDI) }
func (s Snapshot) LastATR() float64     { return Last(s.ATR14) }
func (s Snapshot) LastOBV() float64     { return Last(s.OBV) }
func (s Snapshot) LastVWAP() float64    { return Last(s.VWAP) }
func (s Snapshot) LastMACDHist() float64 {
	return Last(s.MACD.Histogram)
}
