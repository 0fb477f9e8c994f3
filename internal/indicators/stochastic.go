package indicators

// StochasticResult holds %K and %D series.
type StochasticResult struct {
	K []float64
	D []float64
}

// Stochastic computes the slow stochastic oscillator: %K over kPeriod bars,
// smoothed by kSmooth, %D is an SMA of %K over dPeriod (standard 14,3,3).
func Stochastic(highs, lows, closes []float64, kPeriod, kSmooth, dPeriod int) StochasticResult {
	n := len(closes)
	res := StochasticResult{K: make([]float64, n), D: make([]float64, n)}
	if kPeriod <= 0 || n < kPeriod {
		return res
	}

	rawK := make([]float64, n)
	for i := kPeriod - 1; i < n; i++ {
		hh := highs[i-kPeriod+1]
		ll := lows[i-kPeriod+1]
		for j := i - kPeriod + 2; j <= i; j++ {
			hh = maxf(hh, highs[j])
			ll = minf(ll, lows[j])
		}
		if hh == ll {
			rawK[i] = 50
			continue
		}
		rawK[i] = 100 * (closes[i] - ll) / (hh - ll)
	}

	smoothedK := sma(rawK, kSmooth, kPeriod-1)
	copy(res.K, smoothedK)
	res.D = sma(res.K, dPeriod, kPeriod-1+kSmooth-1)
	return res
}

// sma computes a simple moving average of period `period`, only producing
// output once index >= start+period-1, leaving earlier entries zero.
func sma(series []float64, period, start int) []float64 {
	n := len(series)
	out := make([]float64, n)
	if period <= 0 {
		return out
	}
	for i := start + period - 1; i < n; i++ {
		out[i] = sum(series[i-period+1:i+1]) / float64(period)
	}
	return out
}
