package signalgen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/indicators"
)

func flatBars(n int, price float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	base := time.Now().Add(-time.Duration(n) * time.Hour).UnixMilli()
	for i := range bars {
		bars[i] = domain.Bar{
			Symbol:    "BTCUSDT",
			Timeframe: domain.Timeframe1h,
			OpenTime:  base + int64(i)*domain.Timeframe1h.Millis(),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    100,
		}
	}
	return bars
}

type stubBarStore struct {
	bars []domain.Bar
}

func (s stubBarStore) ReadBars(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]domain.Bar, error) {
	return s.bars, nil
}

func TestAnalyze_InsufficientData(t *testing.T) {
	g := New(DefaultConfig(), stubBarStore{}, nil)
	bars := flatBars(199, 100)
	sig, err := g.Analyze(context.Background(), "BTCUSDT", domain.Timeframe1h, bars)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestAnalyze_IdenticalCandlesNoSignal(t *testing.T) {
	g := New(DefaultConfig(), stubBarStore{}, nil)
	bars := flatBars(domain.MinBars, 100)
	sig, err := g.Analyze(context.Background(), "BTCUSDT", domain.Timeframe1h, bars)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestAnalyze_MalformedBarsClockSkewRejected(t *testing.T) {
	g := New(DefaultConfig(), stubBarStore{}, nil)
	bars := flatBars(domain.MinBars, 100)
	future := time.Now().Add(10 * time.Hour).UnixMilli()
	bars[len(bars)-1].OpenTime = future
	sig, err := g.Analyze(context.Background(), "BTCUSDT", domain.Timeframe1h, bars)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestAnalyze_GapExceedingATRSkipsCycle(t *testing.T) {
	g := New(DefaultConfig(), stubBarStore{}, nil)
	bars := make([]domain.Bar, domain.MinBars)
	base := time.Now().Add(-time.Duration(domain.MinBars) * time.Hour).UnixMilli()
	price := 100.0
	for i := range bars {
		bars[i] = domain.Bar{
			Symbol:    "BTCUSDT",
			Timeframe: domain.Timeframe1h,
			OpenTime:  base + int64(i)*domain.Timeframe1h.Millis(),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + 0.1,
			Volume:    100,
		}
		price += 0.05
	}
	// introduce a massive gap on the last bar's open
	bars[len(bars)-1].Open = price * 10
	sig, err := g.Analyze(context.Background(), "BTCUSDT", domain.Timeframe1h, bars)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestBuildLevels_LongSatisfiesInvariantI3(t *testing.T) {
	bars := flatBars(domain.MinBars, 100)
	for i := range bars {
		bars[i].Close = 100 + float64(i)*0.1
		bars[i].High = bars[i].Close + 1
		bars[i].Low = bars[i].Close - 1
	}
	snap := computeForTest(bars)
	levels := buildLevels(domain.DirectionLong, bars, snap)
	assert.NoError(t, levels.Validate(domain.DirectionLong))
}

func TestBuildLevels_ShortSatisfiesInvariantI3(t *testing.T) {
	bars := flatBars(domain.MinBars, 200)
	for i := range bars {
		bars[i].Close = 200 - float64(i)*0.1
		bars[i].High = bars[i].Close + 1
		bars[i].Low = bars[i].Close - 1
	}
	snap := computeForTest(bars)
	levels := buildLevels(domain.DirectionShort, bars, snap)
	assert.NoError(t, levels.Validate(domain.DirectionShort))
}

func TestRunFilters_ScoreBelowMinimumRejected(t *testing.T) {
	cfg := DefaultConfig()
	bars := flatBars(domain.MinBars, 100)
	snap := computeForTest(bars)
	levels := domain.Levels{Entry: 100, StopLoss: 95, TP1: 105, TP2: 110, TP3: 115}
	result := runFilters(cfg, domain.DirectionLong, 0.50, domain.ConfluenceFlags{Trend: true, Liquidity: true}, levels, 0, snap)
	assert.False(t, result.Passed)
}

func TestRunFilters_ScoreAtBoundaryOfMinimumIsEligible(t *testing.T) {
	cfg := DefaultConfig()
	bars := flatBars(domain.MinBars, 100)
	for i := range bars {
		bars[i].Close = 100 + float64(i)*0.05
		bars[i].High = bars[i].Close + 0.5
		bars[i].Low = bars[i].Close - 0.5
	}
	snap := computeForTest(bars)
	levels := domain.Levels{Entry: 100, StopLoss: 95, TP1: 105, TP2: 110, TP3: 115}
	confluence := domain.ConfluenceFlags{Trend: true, Liquidity: true}
	result := runFilters(cfg, domain.DirectionLong, cfg.MinScore, confluence, levels, 0, snap)
	// Score exactly at the minimum threshold must pass (P11, inclusive boundary).
	assert.True(t, result.Passed || result.Reason != "score below minimum")
}

func computeForTest(bars []domain.Bar) indicators.Snapshot {
	return indicators.Compute(bars)
}

func TestRoundLevels_RoundsEveryFieldToTickSize(t *testing.T) {
	levels := domain.Levels{Entry: 100.127, StopLoss: 95.043, TP1: 105.018, TP2: 110.061, TP3: 115.099}
	rounded := roundLevels(levels, 0.05)
	assert.InDelta(t, 100.15, rounded.Entry, 1e-9)
	assert.InDelta(t, 95.05, rounded.StopLoss, 1e-9)
	assert.InDelta(t, 105.00, rounded.TP1, 1e-9)
	assert.InDelta(t, 110.05, rounded.TP2, 1e-9)
	assert.InDelta(t, 115.10, rounded.TP3, 1e-9)
}

func TestRoundLevels_ZeroTickSizeLeavesLevelsUnchanged(t *testing.T) {
	levels := domain.Levels{Entry: 100.127, StopLoss: 95.043, TP1: 105.018, TP2: 110.061, TP3: 115.099}
	assert.Equal(t, levels, roundLevels(levels, 0))
}
