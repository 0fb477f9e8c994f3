package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uptrendCloses(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestEMA_SeedsWithSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	ema := EMA(closes, 3)
	require.Len(t, ema, 5)
	assert.InDelta(t, 2.0, ema[2], 1e-9)
	assert.NotZero(t, ema[3])
	assert.NotZero(t, ema[4])
}

func TestEMA_ShortSeriesReturnsZeros(t *testing.T) {
	ema := EMA([]float64{1, 2}, 5)
	assert.Equal(t, []float64{0, 0}, ema)
}

func TestRSI_StrongUptrendApproachesHundred(t *testing.T) {
	closes := uptrendCloses(40, 100, 1)
	rsi := RSI(closes, 14)
	last := rsi[len(rsi)-1]
	assert.Greater(t, last, 90.0)
}

func TestRSI_FlatSeriesIsNeutral(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 50
	}
	rsi := RSI(closes, 14)
	assert.InDelta(t, 50.0, rsi[len(rsi)-1], 1e-9)
}

func TestMACD_HistogramPositiveInUptrend(t *testing.T) {
	// An accelerating uptrend: on a straight line the MACD line is constant
	// and the histogram is exactly zero.
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i*i)/10
	}
	res := MACD(closes, 12, 26, 9)
	last := res.Histogram[len(res.Histogram)-1]
	assert.Greater(t, last, 0.0)
}

func TestBollinger_FlatSeriesZeroWidth(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 10
	}
	bb := Bollinger(closes, 20, 2)
	last := len(closes) - 1
	assert.InDelta(t, 10.0, bb.Middle[last], 1e-9)
	assert.InDelta(t, bb.Middle[last], bb.Upper[last], 1e-9)
	assert.InDelta(t, bb.Middle[last], bb.Lower[last], 1e-9)
}

func TestATR_ZeroRangeBarsYieldZero(t *testing.T) {
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := range highs {
		highs[i] = 10
		lows[i] = 10
		closes[i] = 10
	}
	atr := ATR(highs, lows, closes, 14)
	assert.InDelta(t, 0.0, atr[len(atr)-1], 1e-9)
}

func TestOBV_AccumulatesOnUpCloses(t *testing.T) {
	closes := []float64{10, 11, 10, 12}
	volumes := []float64{0, 5, 5, 5}
	obv := OBV(closes, volumes)
	assert.Equal(t, []float64{0, 5, 0, 5}, obv)
}

func TestVWAP_EqualsTypicalPriceOnFirstBar(t *testing.T) {
	highs := []float64{11, 12}
	lows := []float64{9, 10}
	closes := []float64{10, 11}
	volumes := []float64{100, 100}
	vwap := VWAP(highs, lows, closes, volumes)
	assert.InDelta(t, 10.0, vwap[0], 1e-9)
}

func TestADX_RequiresMinimumHistory(t *testing.T) {
	n := 20
	highs := uptrendCloses(n, 10, 0.1)
	lows := uptrendCloses(n, 9, 0.1)
	closes := uptrendCloses(n, 9.5, 0.1)
	res := ADX(highs, lows, closes, 14)
	assert.Len(t, res.ADX, n)
}

func TestStochastic_RangeIsBounded(t *testing.T) {
	n := 30
	highs := uptrendCloses(n, 10, 0.2)
	lows := uptrendCloses(n, 9, 0.2)
	closes := uptrendCloses(n, 9.5, 0.2)
	res := Stochastic(highs, lows, closes, 14, 3, 3)
	for _, v := range res.K {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestVolumeMean_ClampsToAvailableHistory(t *testing.T) {
	volumes := []float64{1, 2, 3}
	assert.InDelta(t, 2.0, VolumeMean(volumes, 10), 1e-9)
}
