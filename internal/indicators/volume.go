package indicators

// OBV computes the On-Balance-Volume running series: volume is added on an
// up close, subtracted on a down close, unchanged on a flat close.
func OBV(closes, volumes []float64) []float64 {
	n := len(closes)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	for i := 1; i < n; i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// VWAP computes the volume-weighted average price, cumulative from the
// start of the supplied window (callers pass a session-scoped slice when a
// true intraday VWAP reset is needed).
func VWAP(highs, lows, closes, volumes []float64) []float64 {
	n := len(closes)
	out := make([]float64, n)
	var cumPV, cumV float64
	for i := 0; i < n; i++ {
		typical := (highs[i] + lows[i] + closes[i]) / 3
		cumPV += typical * volumes[i]
		cumV += volumes[i]
		if cumV == 0 {
			out[i] = typical
			continue
		}
		out[i] = cumPV / cumV
	}
	return out
}

// VolumeMean returns the simple mean of the last `period` volumes, used by
// the Liquidity analyzer's spike-detection ratio.
func VolumeMean(volumes []float64, period int) float64 {
	n := len(volumes)
	if n == 0 || period <= 0 {
		return 0
	}
	if n < period {
		period = n
	}
	return sum(volumes[n-period:]) / float64(period)
}
