package signalgen

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/indicators"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

// TickSizeLookup resolves a symbol's exchange tick size for level rounding
// (spec §4.1). Implementations typically cache ExchangeInfo results from one
// of the account pool's exchange clients.
type TickSizeLookup func(symbol string) float64

// Generator is the Signal Generator (spec §4.1): given a (symbol, timeframe)
// and its closed bar history, it produces at most one Signal.
type Generator struct {
	cfg      Config
	bars     ports.BarStore
	clock    func() time.Time
	tickSize TickSizeLookup
}

// New constructs a Generator reading bars through store for the
// multi-timeframe agreement check. tickSize may be nil, in which case
// levels are persisted unrounded (no tick size available).
func New(cfg Config, store ports.BarStore, tickSize TickSizeLookup) *Generator {
	if tickSize == nil {
		tickSize = func(string) float64 { return 0 }
	}
	return &Generator{cfg: cfg, bars: store, clock: time.Now, tickSize: tickSize}
}

// Analyze runs the full technical-analysis pipeline for one (symbol,
// timeframe) pair. It never returns an error for data-quality problems
// (InsufficientData, MalformedBars, DataAnomaly) — those simply yield a nil
// signal, per spec.md §4.1's non-throwing failure kinds.
func (g *Generator) Analyze(ctx context.Context, symbol string, tf domain.Timeframe, bars []domain.Bar) (*domain.Signal, error) {
	if len(bars) < domain.MinBars {
		slog.Debug("signalgen: insufficient data", "symbol", symbol, "timeframe", tf, "bars", len(bars))
		return nil, nil
	}

	now := g.clock()
	if !barsWellFormed(bars, tf, now) {
		slog.Warn("signalgen: malformed bars", "symbol", symbol, "timeframe", tf)
		return nil, nil
	}

	snap := indicators.Compute(bars)

	if gapExceedsATR(bars, snap, g.cfg.GapATRMultiple) {
		slog.Warn("signalgen: data anomaly, gap exceeds ATR multiple", "symbol", symbol, "timeframe", tf)
		return nil, nil
	}

	longScore, shortScore, confluence := g.score(bars, snap)
	dir := domain.DirectionLong
	score := longScore
	if shortScore > longScore {
		dir = domain.DirectionShort
		score = shortScore
	}

	levels := buildLevels(dir, bars, snap)

	higherTrend := 0
	if higherTF := tf.HigherTimeframe(); higherTF != "" && g.bars != nil {
		if higherBars, err := g.bars.ReadBars(ctx, symbol, higherTF, domain.MinBars); err == nil && len(higherBars) >= domain.MinBars {
			higherTrend = trendSign(indicators.Compute(higherBars))
		}
	}

	result := runFilters(g.cfg, dir, score, confluence, levels, higherTrend, snap)
	if !result.Passed {
		slog.Debug("signalgen: filtered out", "symbol", symbol, "timeframe", tf, "reason", result.Reason)
		return nil, nil
	}

	levels = roundLevels(levels, g.tickSize(symbol))

	signal := &domain.Signal{
		GroupID:    uuid.NewString(),
		Symbol:     symbol,
		Timeframe:  tf,
		CreatedAt:  now,
		Direction:  dir,
		Score:      score,
		Levels:     levels,
		Confluence: confluence,
		Context:    snapshotContext(snap),
		Status:     domain.SignalActive,
	}

	if err := signal.ValidateLevels(); err != nil {
		slog.Error("signalgen: invariant violation, aborting", "symbol", symbol, "timeframe", tf, "err", err)
		return nil, fmt.Errorf("signalgen: %w", err)
	}

	return signal, nil
}

// score runs the four weighted analyzers and derives the confluence flags.
func (g *Generator) score(bars []domain.Bar, snap indicators.Snapshot) (longScore, shortScore float64, confluence domain.ConfluenceFlags) {
	w := g.cfg.Weights

	trendLong, trendShort := trendScore(snap)
	trailLong, trailShort := smoothTrailScore(snap)
	liqLong, liqShort := liquidityScore(bars, snap)
	smLong, smShort := smartMoneyScore(bars, snap)

	longScore = w.Trend*trendLong + w.SmoothTrail*trailLong + w.Liquidity*liqLong + w.SmartMoney*smLong
	shortScore = w.Trend*trendShort + w.SmoothTrail*trailShort + w.Liquidity*liqShort + w.SmartMoney*smShort

	dominant := trendLong
	if shortScore > longScore {
		dominant = trendShort
	}
	confluence.Trend = dominant > 0
	confluence.SmoothTrail = maxf(trailLong, trailShort) > 0
	confluence.Liquidity = maxf(liqLong, liqShort) > 0
	confluence.SmartMoney = maxf(smLong, smShort) > 0
	confluence.Volume = maxf(liqLong, liqShort) > 0.3

	return clamp01(longScore), clamp01(shortScore), confluence
}

// barsWellFormed rejects clock-skewed bars (spec §4.1 edge cases).
func barsWellFormed(bars []domain.Bar, tf domain.Timeframe, now time.Time) bool {
	skewLimit := now.Add(2 * time.Duration(tf.Millis()) * time.Millisecond).UnixMilli()
	for _, b := range bars {
		if b.OpenTime > skewLimit {
			return false
		}
	}
	return true
}

// gapExceedsATR implements the gap edge case: a jump from the previous bar's
// close to the last bar's open greater than GapATRMultiple times ATR(14)
// skips the cycle for this symbol.
func gapExceedsATR(bars []domain.Bar, snap indicators.Snapshot, multiple float64) bool {
	n := len(bars)
	if n < 2 || multiple <= 0 {
		return false
	}
	atr := snap.LastATR()
	if atr == 0 {
		return false
	}
	gap := abs(bars[n-1].Open - bars[n-2].Close)
	return gap > multiple*atr
}

func snapshotContext(snap indicators.Snapshot) map[string]float64 {
	return map[string]float64{
		"rsi14":   snap.LastRSI14(),
		"adx":     snap.LastADX(),
		"atr14":   snap.LastATR(),
		"macdHist": snap.LastMACDHist(),
		"vwap":    snap.LastVWAP(),
		"obv":     snap.LastOBV(),
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
