package ports

import (
	"context"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
)

// Balance is the free/used/total split returned by fetchBalance.
type Balance struct {
	Free  float64
	Used  float64
	Total float64
}

// ExchangeInfo carries the tick/lot/min-notional constraints for a symbol.
type ExchangeInfo struct {
	TickSize    float64
	LotStep     float64
	MinNotional float64
}

// FilledOrder is the exchange's acknowledgment of a submitted market order.
type FilledOrder struct {
	ExchangeOrderID string
	FilledPrice     float64
	FilledQty       float64
}

// ExchangeClient is the capability set the core requires from any venue
// (spot or futures), polymorphic over the concrete exchange SDK. Every call
// accepts a deadline via ctx and must fail with a typed error when it
// cannot complete in time.
type ExchangeClient interface {
	FetchBalance(ctx context.Context, quoteAsset string) (Balance, error)
	FetchMarkPrice(ctx context.Context, symbol string) (float64, error)
	SubmitMarketOrder(ctx context.Context, symbol string, dir domain.Direction, quantity float64, leverage float64) (FilledOrder, error)
	FetchOpenPositions(ctx context.Context) ([]domain.Position, error)
	ExchangeInfo(ctx context.Context, symbol string) (ExchangeInfo, error)
}
