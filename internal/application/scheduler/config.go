package scheduler

import "time"

// Config tunes the cycle driver (spec §2, §5).
type Config struct {
	// Interval is the wall-clock spacing between cycle starts.
	Interval time.Duration

	// Deadline bounds one full cycle (scan → select → risk → execute). A
	// cycle still running when the next tick fires is left to finish; the
	// next tick is simply skipped rather than stacked (spec §5's
	// "skip, don't stack" overrun policy).
	Deadline time.Duration

	// Symbols and Timeframes are the scan universe fed to signalgen.ScanAll.
	Symbols    []string
	Timeframes []string

	// BarLookback is how many closed bars are read per (symbol, timeframe).
	BarLookback int

	// DryRun runs exactly one cycle and returns, skipping execution.
	DryRun bool
}

// DefaultConfig matches spec.md's defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    60 * time.Second,
		Deadline:    60 * time.Second,
		BarLookback: 250,
	}
}
