package scheduler

import (
	"context"
	"math"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

// marketStats is the 24h realized-volatility and volume figure the Risk
// Manager's filters 4 and 6 check against (spec §4.3).
type marketStats struct {
	Volatility24h float64
	Volume24h     float64
}

// computeMarketStats reads the last 24 hourly bars for symbol and derives a
// realized-volatility estimate (population stdev of hourly simple returns,
// (close-prevClose)/prevClose) and a summed
// 24h volume, the same shape the generator already consumes through
// ports.BarStore.
func computeMarketStats(ctx context.Context, bars ports.BarStore, symbol string) (marketStats, error) {
	hourly, err := bars.ReadBars(ctx, symbol, domain.Timeframe1h, 24)
	if err != nil {
		return marketStats{}, err
	}
	if len(hourly) < 2 {
		return marketStats{}, nil
	}

	returns := make([]float64, 0, len(hourly)-1)
	volume := 0.0
	for i, b := range hourly {
		volume += b.Volume
		if i == 0 {
			continue
		}
		prev := hourly[i-1].Close
		if prev <= 0 {
			continue
		}
		returns = append(returns, (b.Close-prev)/prev)
	}

	return marketStats{Volatility24h: stdev(returns), Volume24h: volume}, nil
}

func stdev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}
