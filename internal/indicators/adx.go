package indicators

// ADXResult holds the directional indicators alongside ADX itself, since the
// Trend analyzer needs +DI/-DI sign as well as ADX magnitude.
type ADXResult struct {
	PlusDI  []float64
	MinusDI []float64
	ADX     []float64
}

// ADX computes Wilder's Average Directional Index with its supporting +DI/-DI
// series for the given period (standard configuration: 14).
func ADX(highs, lows, closes []float64, period int) ADXResult {
	n := len(closes)
	res := ADXResult{
		PlusDI:  make([]float64, n),
		MinusDI: make([]float64, n),
		ADX:     make([]float64, n),
	}
	if period <= 0 || n <= period*2 {
		return res
	}

	tr := TrueRange(highs, lows, closes)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}

	smoothTR := wilderSmooth(tr, period)
	smoothPlusDM := wilderSmooth(plusDM, period)
	smoothMinusDM := wilderSmooth(minusDM, period)

	dx := make([]float64, n)
	for i := period; i < n; i++ {
		if smoothTR[i] == 0 {
			continue
		}
		res.PlusDI[i] = 100 * smoothPlusDM[i] / smoothTR[i]
		res.MinusDI[i] = 100 * smoothMinusDM[i] / smoothTR[i]
		denom := res.PlusDI[i] + res.MinusDI[i]
		if denom == 0 {
			continue
		}
		dx[i] = 100 * abs(res.PlusDI[i]-res.MinusDI[i]) / denom
	}

	adxSeries := wilderSmooth(dx, period)
	copy(res.ADX[2*period:], adxSeries[2*period:])
	return res
}

// wilderSmooth applies Wilder's running smoothing (SMA-seeded) to a series,
// starting the seed at index `period`.
func wilderSmooth(series []float64, period int) []float64 {
	n := len(series)
	out := make([]float64, n)
	if n <= period {
		return out
	}
	var seed float64
	for i := 1; i <= period; i++ {
		seed += series[i]
	}
	seed /= float64(period)
	out[period] = seed

	prev := seed
	for i := period + 1; i < n; i++ {
		v := (prev*float64(period-1) + series[i]) / float64(period)
		out[i] = v
		prev = v
	}
	return out
}
