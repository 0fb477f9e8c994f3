package risk

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
)

// SizeResult is the outcome of SizePosition: either a computed order size or
// a skip with a human-readable reason (spec §4.3's `{skip, reason}` case).
type SizeResult struct {
	Skip       bool
	SkipReason string
	Quantity   float64
	NotionalUsd float64
}

// WinLossStats feeds the KELLY sizing mode; callers compute this from
// historical order outcomes for the account/symbol.
type WinLossStats struct {
	WinRate       float64
	AvgWinLossRatio float64
}

// SizePosition computes the order quantity for one account against one
// signal, applying the account's configured sizing mode (spec §4.3).
// openNotional is the sum of |notional| across the account's currently open
// positions; it enforces invariant I4, the per-account exposure cap.
func (m *Manager) SizePosition(ctx context.Context, signal domain.Signal, account domain.Account, balance float64, stats WinLossStats, exchMinNotional, lotStep, openNotional float64) SizeResult {
	bal := decimal.NewFromFloat(balance)
	maxNotional := decimal.NewFromFloat(account.Policy.MaxPositionNotional)

	var notional decimal.Decimal
	switch account.Policy.SizingMode {
	case domain.SizingFixed:
		notional = decimal.NewFromFloat(account.Policy.FixedSize)
	case domain.SizingPercentBalance:
		notional = bal.Mul(decimal.NewFromFloat(account.Policy.BalancePercent))
	case domain.SizingKelly:
		kellyFraction := account.Policy.KellyFraction
		if kellyFraction <= 0 {
			kellyFraction = m.cfg.DefaultKellyFraction
		}
		fStar := stats.WinRate - (1-stats.WinRate)/maxf(stats.AvgWinLossRatio, 0.01)
		fStar = clamp(fStar, 0, 0.25)
		notional = bal.Mul(decimal.NewFromFloat(fStar)).Mul(decimal.NewFromFloat(kellyFraction))
	default:
		return SizeResult{Skip: true, SkipReason: "unknown sizing mode"}
	}

	if maxNotional.IsPositive() && notional.GreaterThan(maxNotional) {
		notional = maxNotional
	}

	entry := decimal.NewFromFloat(signal.Levels.Entry)
	if entry.IsZero() {
		return SizeResult{Skip: true, SkipReason: "entry price is zero"}
	}

	leverage := decimal.NewFromFloat(maxf(account.Policy.MaxLeverage, 1))
	quantity := notional.Mul(leverage).Div(entry)

	if lotStep > 0 {
		quantity = roundDownToStep(quantity, decimal.NewFromFloat(lotStep))
	}

	notionalAtEntry := quantity.Mul(entry)
	if exchMinNotional > 0 && notionalAtEntry.LessThan(decimal.NewFromFloat(exchMinNotional)) {
		return SizeResult{Skip: true, SkipReason: "below min notional"}
	}

	if maxNotional.IsPositive() {
		maxOpen := account.Policy.MaxOpenPositions
		if maxOpen <= 0 {
			maxOpen = 1
		}
		exposureCap := maxNotional.Mul(decimal.NewFromFloat(float64(maxOpen)))
		totalExposure := decimal.NewFromFloat(openNotional).Add(notionalAtEntry)
		if totalExposure.GreaterThan(exposureCap) {
			return SizeResult{Skip: true, SkipReason: "account open exposure limit exceeded"}
		}
	}

	riskDistance := decimal.NewFromFloat(signal.Levels.Entry - signal.Levels.StopLoss).Abs()
	riskPct := riskDistance.Div(entry)
	riskUsd := notional.Mul(riskPct)

	maxRiskPerTrade := account.Policy.MaxRiskPerTrade
	if maxRiskPerTrade <= 0 {
		maxRiskPerTrade = 0.02 // conservative default when the account policy omits it
	}
	if riskUsd.GreaterThan(bal.Mul(decimal.NewFromFloat(maxRiskPerTrade))) {
		return SizeResult{Skip: true, SkipReason: "risk per trade exceeds account limit"}
	}

	qf, _ := quantity.Float64()
	nf, _ := notional.Float64()
	return SizeResult{Quantity: qf, NotionalUsd: nf}
}

func roundDownToStep(v, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return v
	}
	steps := v.Div(step).Floor()
	return steps.Mul(step)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
