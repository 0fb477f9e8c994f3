package ports

import (
	"context"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
)

// BarStore reads closed OHLCV candles persisted by the ingestion pipeline.
type BarStore interface {
	// ReadBars returns the most recent `limit` closed bars for
	// (symbol, timeframe) in ascending order, no duplicates, no gaps within
	// the window unless the source exchange itself had a gap.
	ReadBars(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]domain.Bar, error)
}
