package selector

import "time"

// Config tunes the Best-Signal Selector (spec §4.2, §6.7).
type Config struct {
	MinScore               float64
	MaxSignalAge           time.Duration
	Cooldown               time.Duration
	MaxConcurrentPositions int
	MaxDailySignals        int
}

// DefaultConfig matches spec.md's defaults.
func DefaultConfig() Config {
	return Config{
		MinScore:               0.65,
		MaxSignalAge:           24 * time.Hour,
		Cooldown:               5 * time.Minute,
		MaxConcurrentPositions: 5,
		MaxDailySignals:        10,
	}
}
