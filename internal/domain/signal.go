package domain

import (
	"fmt"
	"time"
)

// Direction is the side a Signal recommends.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

// SignalStatus is the lifecycle state of a Signal (spec §3.1).
type SignalStatus string

const (
	SignalActive     SignalStatus = "active"
	SignalConsumed   SignalStatus = "consumed"
	SignalExpired    SignalStatus = "expired"
	SignalSuperseded SignalStatus = "superseded"
)

// ConfluenceFlags is the boolean map over the five analyzers (spec §3.1).
type ConfluenceFlags struct {
	Trend       bool
	SmoothTrail bool
	Liquidity   bool
	SmartMoney  bool
	Volume      bool
}

// Count returns how many flags are set, used by the "at least 2 confluence
// flags true" filter (spec §4.1 filter 2).
func (c ConfluenceFlags) Count() int {
	n := 0
	for _, v := range []bool{c.Trend, c.SmoothTrail, c.Liquidity, c.SmartMoney, c.Volume} {
		if v {
			n++
		}
	}
	return n
}

// Levels holds the entry/exit price ladder for a Signal. Monotone in the
// signal's direction per invariant (I3).
type Levels struct {
	Entry    float64
	StopLoss float64
	TP1      float64
	TP2      float64
	TP3      float64
}

// Validate checks invariant (I3): for LONG, stopLoss < entry <= tp1 < tp2 < tp3;
// for SHORT the inequalities reverse.
func (l Levels) Validate(dir Direction) error {
	if dir == DirectionLong {
		if !(l.StopLoss < l.Entry && l.Entry <= l.TP1 && l.TP1 < l.TP2 && l.TP2 < l.TP3) {
			return fmt.Errorf("domain: levels violate (I3) for LONG: sl=%v entry=%v tp1=%v tp2=%v tp3=%v",
				l.StopLoss, l.Entry, l.TP1, l.TP2, l.TP3)
		}
		return nil
	}
	if !(l.StopLoss > l.Entry && l.Entry >= l.TP1 && l.TP1 > l.TP2 && l.TP2 > l.TP3) {
		return fmt.Errorf("domain: levels violate (I3) for SHORT: sl=%v entry=%v tp1=%v tp2=%v tp3=%v",
			l.StopLoss, l.Entry, l.TP1, l.TP2, l.TP3)
	}
	return nil
}

// RiskReward computes (tp1-entry)/(entry-stopLoss) for LONG, mirrored for SHORT.
func (l Levels) RiskReward(dir Direction) float64 {
	if dir == DirectionLong {
		risk := l.Entry - l.StopLoss
		if risk <= 0 {
			return 0
		}
		return (l.TP1 - l.Entry) / risk
	}
	risk := l.StopLoss - l.Entry
	if risk <= 0 {
		return 0
	}
	return (l.Entry - l.TP1) / risk
}

// Signal is one scored directional output of the Signal Generator (spec §3.1).
type Signal struct {
	ID        int64
	GroupID   string // opaque id shared by all Orders produced from this signal
	Symbol    string
	Timeframe Timeframe
	CreatedAt time.Time

	Direction  Direction
	Score      float64
	Levels     Levels
	Confluence ConfluenceFlags

	// Context is an opaque indicator snapshot, informational only for consumers.
	Context map[string]float64

	Status SignalStatus
}

// ValidateLevels is a thin wrapper invoked right after construction, before
// persistence, implementing (I3) as a post-condition of the generator.
func (s Signal) ValidateLevels() error {
	return s.Levels.Validate(s.Direction)
}

// Age returns how long ago the signal was created.
func (s Signal) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}
