package indicators

// EMA computes the exponential moving average series for the given period
// over closes, SMA-seeded over the first `period` values as is standard.
// The returned slice is the same length as closes; entries before the seed
// window are NaN-free zero values (callers only read the tail).
func EMA(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += closes[i]
	}
	seed := sum / float64(period)
	out[period-1] = seed

	k := 2.0 / float64(period+1)
	prev := seed
	for i := period; i < len(closes); i++ {
		v := (closes[i]-prev)*k + prev
		out[i] = v
		prev = v
	}
	return out
}

// Last returns the last element of a series, or 0 for an empty series.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}
