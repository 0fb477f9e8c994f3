package domain

import "time"

// MarketType distinguishes spot from perpetual-futures accounts, since
// sizing and order routing differ between the two (spec §3.1, §4.4).
type MarketType string

const (
	MarketSpot    MarketType = "SPOT"
	MarketFutures MarketType = "FUTURES"
	MarketBoth    MarketType = "BOTH" // account trades either market; executor routes per-signal
)

// SizingMode selects how RiskManager.SizePosition turns a signal into an
// order quantity for a given account (spec §4.5).
type SizingMode string

const (
	SizingFixed          SizingMode = "FIXED"
	SizingPercentBalance SizingMode = "PERCENT_BALANCE"
	SizingKelly          SizingMode = "KELLY"
)

// PolicyEnvelope is the per-account risk policy enforced by the RiskManager
// before an order is ever sent to the exchange.
type PolicyEnvelope struct {
	SizingMode          SizingMode
	FixedSize           float64 // notional, used when SizingMode == FIXED
	BalancePercent      float64 // fraction of balance used as notional, used when SizingMode == PERCENT_BALANCE, 0..1
	KellyFraction       float64 // fraction of full Kelly applied, 0..1
	MaxLeverage         float64
	MaxOpenPositions    int
	MaxDailyLoss        float64 // fraction of equity, (0, 0.20]
	StopOnDailyLoss     bool    // halts the account once MaxDailyLoss is breached
	MaxDailySignals     int
	MaxRiskPerTrade     float64 // fraction of equity, (0, 0.10]
	MinScore            float64
	AllowedSymbols      []string // empty means all symbols allowed
	MaxPositionNotional float64
}

// Account is one exchange credential slot the executor fans orders out to.
type Account struct {
	ID         string
	Label      string
	MarketType MarketType
	Policy     PolicyEnvelope

	// IsActive, IsVerified and AutoTradeEnabled are the three explicit halves
	// of the eligibility invariant (spec §3.1); DailyLossTripped is the
	// fourth, derived from TodayRealizedPnL/Balance rather than stored.
	IsActive         bool
	IsVerified       bool
	AutoTradeEnabled bool
	LastVerifiedAt   time.Time

	// Balance is the last-known available equity as supplied by the account
	// source. The executor sizes from a fresh FetchBalance and does not
	// write the result back here; environment-slot accounts leave it at 0.
	Balance float64

	// TotalPnL, TodayRealizedPnL and TodayTradesCount are state fields
	// refreshed from the Order store (spec §3.1's Account.State).
	TotalPnL         float64
	TodayRealizedPnL float64
	TodayTradesCount int
}

// AllowsSymbol reports whether the account's policy permits trading symbol.
func (a Account) AllowsSymbol(symbol string) bool {
	if len(a.Policy.AllowedSymbols) == 0 {
		return true
	}
	for _, s := range a.Policy.AllowedSymbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// DailyLossTripped reports whether the account's realized loss today has
// breached its configured daily-loss breaker (spec §3.1's ¬dailyLossTripped
// eligibility clause). Realized PnL only, per spec.md §9's open-question
// decision — mark-to-market does not count. The fraction is measured against
// Balance when it is positive, falling back to MaxPositionNotional as an
// equity proxy so the breaker still functions for accounts whose source
// supplies no balance.
func (a Account) DailyLossTripped() bool {
	if !a.Policy.StopOnDailyLoss || a.Policy.MaxDailyLoss <= 0 {
		return false
	}
	if a.TodayRealizedPnL >= 0 {
		return false
	}
	equity := a.Balance
	if equity <= 0 {
		equity = a.Policy.MaxPositionNotional
	}
	if equity <= 0 {
		return false
	}
	return -a.TodayRealizedPnL/equity >= a.Policy.MaxDailyLoss
}

// Eligible implements spec.md §3.1's account invariant in full: isActive ∧
// isVerified ∧ autoTradeEnabled ∧ ¬dailyLossTripped.
func (a Account) Eligible() bool {
	return a.IsActive && a.IsVerified && a.AutoTradeEnabled && !a.DailyLossTripped()
}
