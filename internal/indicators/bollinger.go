package indicators

import "math"

// BollingerBands holds the middle (SMA), upper, and lower band series.
type BollingerBands struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// Bollinger computes Bollinger Bands with the given period and standard
// deviation multiplier (the standard configuration is period=20, mult=2).
func Bollinger(closes []float64, period int, mult float64) BollingerBands {
	n := len(closes)
	bb := BollingerBands{
		Middle: make([]float64, n),
		Upper:  make([]float64, n),
		Lower:  make([]float64, n),
	}
	if period <= 0 || n < period {
		return bb
	}
	for i := period - 1; i < n; i++ {
		window := closes[i-period+1 : i+1]
		mean := sum(window) / float64(period)
		var variance float64
		for _, v := range window {
			d := v - mean
			variance += d * d
		}
		stddev := math.Sqrt(variance / float64(period))
		bb.Middle[i] = mean
		bb.Upper[i] = mean + mult*stddev
		bb.Lower[i] = mean - mult*stddev
	}
	return bb
}

func sum(vs []float64) float64 {
	var s float64
	for _, v := range vs {
		s += v
	}
	return s
}
