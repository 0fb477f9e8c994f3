package positionmonitor

import "time"

// Config tunes the Position Monitor (spec §4.5).
type Config struct {
	PollInterval time.Duration

	// CallTimeout bounds each account's FetchOpenPositions call (spec
	// §6.7's exchangeCallTimeout).
	CallTimeout time.Duration
}

// DefaultConfig matches spec.md's ~60s poll cadence.
func DefaultConfig() Config {
	return Config{PollInterval: 60 * time.Second, CallTimeout: 10 * time.Second}
}
