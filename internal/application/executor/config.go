package executor

import "time"

// Config tunes the Multi-Account Executor (spec §4.4).
type Config struct {
	// Deadline bounds the whole fan-out; any account task still running
	// when it fires yields FAILED/Timeout.
	Deadline time.Duration

	// BalanceFetchTimeout bounds the free-balance lookup per account.
	BalanceFetchTimeout time.Duration

	// CallTimeout bounds every other per-account exchange call (ExchangeInfo,
	// SubmitMarketOrder) independent of the aggregate fan-out Deadline (spec
	// §6.7's exchangeCallTimeout).
	CallTimeout time.Duration

	// SpotScoreThreshold and SpotTimeframes gate the spot-vs-futures market
	// routing decision for dual-market accounts. SpotMaxVolatility is carried
	// here but routeMarket does not read it.
	SpotScoreThreshold float64
	SpotMaxVolatility  float64
	SpotTimeframes     map[string]bool
}

// DefaultConfig matches spec.md's defaults.
func DefaultConfig() Config {
	return Config{
		Deadline:            30 * time.Second,
		BalanceFetchTimeout: 3 * time.Second,
		CallTimeout:         10 * time.Second,
		SpotScoreThreshold:  0.75,
		SpotMaxVolatility:   0.10,
		SpotTimeframes:      map[string]bool{"4h": true, "1d": true},
	}
}
