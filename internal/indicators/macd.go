package indicators

// MACDResult holds the MACD line, signal line, and histogram series, all
// aligned to the input closes slice by index.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the standard 12/26/9 moving-average-convergence-divergence
// indicator: MACD = EMA(fast) - EMA(slow); Signal = EMA(MACD, signalPeriod);
// Histogram = MACD - Signal.
func MACD(closes []float64, fast, slow, signalPeriod int) MACDResult {
	n := len(closes)
	res := MACDResult{
		MACD:      make([]float64, n),
		Signal:    make([]float64, n),
		Histogram: make([]float64, n),
	}
	if n < slow {
		return res
	}

	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	for i := slow - 1; i < n; i++ {
		res.MACD[i] = emaFast[i] - emaSlow[i]
	}

	macdLine := res.MACD[slow-1:]
	signalSeed := EMA(macdLine, signalPeriod)
	for i, v := range signalSeed {
		idx := i + slow - 1
		if v == 0 && i < signalPeriod-1 {
			continue
		}
		res.Signal[idx] = v
		res.Histogram[idx] = res.MACD[idx] - v
	}
	return res
}
