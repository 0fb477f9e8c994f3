package signalgen

// Weights are the per-analyzer contributions to the composite signal score
// (spec §4.1).
type Weights struct {
	Trend       float64
	SmoothTrail float64
	Liquidity   float64
	SmartMoney  float64
}

// DefaultWeights matches the table in spec.md §4.1.
func DefaultWeights() Weights {
	return Weights{
		Trend:       0.30,
		SmoothTrail: 0.25,
		Liquidity:   0.20,
		SmartMoney:  0.25,
	}
}

// Config tunes the Generator's filters and worker pool.
type Config struct {
	Weights Weights

	MinScore          float64 // filter 1: score >= MinScore
	MinConfluenceFlags int    // filter 2
	MinSRDistancePct   float64 // filter 4
	MinRiskReward      float64 // filter 6
	RSILow, RSIHigh    float64 // filter 5 band

	GapATRMultiple float64 // edge case: gap > GapATRMultiple * ATR(14) skips the cycle

	Workers int // 0 = runtime.NumCPU() * 2
}

// DefaultConfig matches spec.md §4.1's filter thresholds.
func DefaultConfig() Config {
	return Config{
		Weights:            DefaultWeights(),
		MinScore:           0.65,
		MinConfluenceFlags: 2,
		MinSRDistancePct:   0.01,
		MinRiskReward:      1.0,
		RSILow:             30,
		RSIHigh:            70,
		GapATRMultiple:     10,
	}
}
