package indicators

// TrueRange computes the per-bar true range series given highs, lows, closes.
func TrueRange(highs, lows, closes []float64) []float64 {
	n := len(closes)
	tr := make([]float64, n)
	if n == 0 {
		return tr
	}
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := abs(highs[i] - closes[i-1])
		lc := abs(lows[i] - closes[i-1])
		tr[i] = maxf(hl, maxf(hc, lc))
	}
	return tr
}

// ATR computes the Wilder-smoothed Average True Range for the given period.
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	if period <= 0 || n <= period {
		return out
	}
	tr := TrueRange(highs, lows, closes)

	var seed float64
	for i := 1; i <= period; i++ {
		seed += tr[i]
	}
	seed /= float64(period)
	out[period] = seed

	prev := seed
	for i := period + 1; i < n; i++ {
		v := (prev*float64(period-1) + tr[i]) / float64(period)
		out[i] = v
		prev = v
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
