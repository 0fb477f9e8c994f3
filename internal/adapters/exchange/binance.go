// Package exchange adapts the Binance spot and futures SDKs to
// ports.ExchangeClient, one instance per account credential slot.
//
// Grounded on yohannesjx-sniperterminal's execution_service.go: client
// construction, the testnet toggle, exchange-info/tick-size caching, and
// the balance/position/order calls. Generalized from that donor's single
// global *ExecutionService with package-level state into a client type
// that can be constructed per account, since the core fans orders out to
// many accounts concurrently (spec §4.4).
package exchange

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

// requestsPerSecond is a conservative per-account call budget, well under
// Binance's per-IP request-weight limits, since one process may hold a
// Client per account and fan calls out concurrently during a cycle.
const requestsPerSecond = 10

// symbolProfile caches a symbol's tick/lot/min-notional filters so every
// order doesn't re-fetch exchange info (donor's symbolInfo map).
type symbolProfile struct {
	tickSize    float64
	stepSize    float64
	minNotional float64
}

// Client wraps one account's Binance credentials for either the spot or
// the futures venue. Binance.UseTestnet is a package-level SDK switch, so
// every Client constructed with useTestnet true shares testnet routing —
// fine in practice since an account is never simultaneously live and
// testnet within one process.
type Client struct {
	marketType domain.MarketType

	spot    *binance.Client
	futures *futures.Client

	mu      sync.Mutex
	symbols map[string]symbolProfile

	limiter *rate.Limiter
}

// NewClient builds a venue client for one account's API credentials.
// marketType selects spot vs futures routing; ports.ExchangeClient calls
// that don't apply to the selected venue (e.g. FetchOpenPositions on
// spot) return an empty result rather than erroring, since a spot-only
// account never has leveraged positions to reconcile.
func NewClient(apiKey, secretKey string, marketType domain.MarketType, useTestnet bool) *Client {
	c := &Client{
		marketType: marketType,
		symbols:    make(map[string]symbolProfile),
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond*2),
	}
	if useTestnet {
		binance.UseTestnet = true
		futures.UseTestnet = true
	}
	switch marketType {
	case domain.MarketSpot:
		c.spot = binance.NewClient(apiKey, secretKey)
	default: // FUTURES and BOTH both need a futures client; BOTH routes per-signal
		c.futures = futures.NewClient(apiKey, secretKey)
		if marketType == domain.MarketBoth {
			c.spot = binance.NewClient(apiKey, secretKey)
		}
	}
	return c
}

func (c *Client) FetchBalance(ctx context.Context, quoteAsset string) (ports.Balance, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return ports.Balance{}, fmt.Errorf("exchange: rate limit wait: %w", err)
	}
	if c.futures != nil {
		res, err := c.futures.NewGetBalanceService().Do(ctx)
		if err != nil {
			return ports.Balance{}, fmt.Errorf("exchange: fetch futures balance: %w", err)
		}
		for _, b := range res {
			if b.Asset != quoteAsset {
				continue
			}
			free, _ := strconv.ParseFloat(b.AvailableBalance, 64)
			total, _ := strconv.ParseFloat(b.Balance, 64)
			return ports.Balance{Free: free, Used: total - free, Total: total}, nil
		}
		return ports.Balance{}, nil
	}

	res, err := c.spot.NewGetAccountService().Do(ctx)
	if err != nil {
		return ports.Balance{}, fmt.Errorf("exchange: fetch spot balance: %w", err)
	}
	for _, b := range res.Balances {
		if b.Asset != quoteAsset {
			continue
		}
		free, _ := strconv.ParseFloat(b.Free, 64)
		locked, _ := strconv.ParseFloat(b.Locked, 64)
		return ports.Balance{Free: free, Used: locked, Total: free + locked}, nil
	}
	return ports.Balance{}, nil
}

func (c *Client) FetchMarkPrice(ctx context.Context, symbol string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("exchange: rate limit wait: %w", err)
	}
	if c.futures != nil {
		res, err := c.futures.NewPremiumIndexService().Symbol(symbol).Do(ctx)
		if err != nil {
			return 0, fmt.Errorf("exchange: fetch mark price: %w", err)
		}
		if len(res) == 0 {
			return 0, fmt.Errorf("exchange: no mark price for %s", symbol)
		}
		return strconv.ParseFloat(res[0].MarkPrice, 64)
	}

	res, err := c.spot.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("exchange: fetch price: %w", err)
	}
	if len(res) == 0 {
		return 0, fmt.Errorf("exchange: no price for %s", symbol)
	}
	return strconv.ParseFloat(res[0].Price, 64)
}

// SubmitMarketOrder places a MARKET order for quantity, rounded to the
// symbol's lot step. On futures it sets leverage first,
// since Binance rejects an order whose notional exceeds the symbol's
// current leverage bracket.
func (c *Client) SubmitMarketOrder(ctx context.Context, symbol string, dir domain.Direction, quantity, leverage float64) (ports.FilledOrder, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return ports.FilledOrder{}, fmt.Errorf("exchange: rate limit wait: %w", err)
	}
	profile := c.profileFor(ctx, symbol)
	qty := roundToStep(quantity, profile.stepSize)
	qtyStr := formatAtStep(qty, profile.stepSize)

	if c.futures != nil {
		if leverage > 0 {
			if _, err := c.futures.NewChangeLeverageService().Symbol(symbol).Leverage(int(leverage)).Do(ctx); err != nil {
				return ports.FilledOrder{}, fmt.Errorf("exchange: set leverage: %w", err)
			}
		}
		side := futures.SideTypeBuy
		if dir == domain.DirectionShort {
			side = futures.SideTypeSell
		}
		order, err := c.futures.NewCreateOrderService().
			Symbol(symbol).
			Side(side).
			Type(futures.OrderTypeMarket).
			Quantity(qtyStr).
			Do(ctx)
		if err != nil {
			return ports.FilledOrder{}, fmt.Errorf("exchange: submit futures order: %w", err)
		}
		return fillFromFutures(order), nil
	}

	side := binance.SideTypeBuy
	if dir == domain.DirectionShort {
		side = binance.SideTypeSell
	}
	order, err := c.spot.NewCreateOrderService().
		Symbol(symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(qtyStr).
		Do(ctx)
	if err != nil {
		return ports.FilledOrder{}, fmt.Errorf("exchange: submit spot order: %w", err)
	}
	return fillFromSpot(order), nil
}

func fillFromFutures(order *futures.CreateOrderResponse) ports.FilledOrder {
	price, _ := strconv.ParseFloat(order.AvgPrice, 64)
	qty, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)
	return ports.FilledOrder{
		ExchangeOrderID: strconv.FormatInt(order.OrderID, 10),
		FilledPrice:     price,
		FilledQty:       qty,
	}
}

func fillFromSpot(order *binance.CreateOrderResponse) ports.FilledOrder {
	var notional, qty float64
	for _, fill := range order.Fills {
		price, _ := strconv.ParseFloat(fill.Price, 64)
		q, _ := strconv.ParseFloat(fill.Quantity, 64)
		notional += price * q
		qty += q
	}
	avgPrice := 0.0
	if qty > 0 {
		avgPrice = notional / qty
	}
	return ports.FilledOrder{
		ExchangeOrderID: strconv.FormatInt(order.OrderID, 10),
		FilledPrice:     avgPrice,
		FilledQty:       qty,
	}
}

// FetchOpenPositions reports currently open futures positions for
// reconciliation by the Position Monitor. Spot accounts never carry
// leveraged positions, so they report none.
func (c *Client) FetchOpenPositions(ctx context.Context) ([]domain.Position, error) {
	if c.futures == nil {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("exchange: rate limit wait: %w", err)
	}
	risks, err := c.futures.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchange: fetch position risk: %w", err)
	}

	var out []domain.Position
	for _, p := range risks {
		amt, _ := strconv.ParseFloat(p.PositionAmt, 64)
		if amt == 0 {
			continue
		}
		entry, _ := strconv.ParseFloat(p.EntryPrice, 64)
		unrealized, _ := strconv.ParseFloat(p.UnRealizedProfit, 64)
		dir := domain.DirectionLong
		if amt < 0 {
			dir = domain.DirectionShort
		}
		out = append(out, domain.Position{
			Symbol:        p.Symbol,
			MarketType:    domain.MarketFutures,
			Direction:     dir,
			Quantity:      math.Abs(amt),
			EntryPrice:    entry,
			UnrealizedPnL: unrealized,
			Status:        domain.PositionOpen,
		})
	}
	return out, nil
}

// ExchangeInfo returns the cached tick/lot/min-notional filters for
// symbol, fetching and populating the cache on first use (donor's
// FetchExchangeInfo, but lazy and per-symbol instead of a single
// preload-everything call at startup).
func (c *Client) ExchangeInfo(ctx context.Context, symbol string) (ports.ExchangeInfo, error) {
	profile := c.profileFor(ctx, symbol)
	return ports.ExchangeInfo{TickSize: profile.tickSize, LotStep: profile.stepSize, MinNotional: profile.minNotional}, nil
}

func (c *Client) profileFor(ctx context.Context, symbol string) symbolProfile {
	c.mu.Lock()
	profile, ok := c.symbols[symbol]
	c.mu.Unlock()
	if ok {
		return profile
	}

	profile = c.fetchSymbolProfile(ctx, symbol)
	c.mu.Lock()
	c.symbols[symbol] = profile
	c.mu.Unlock()
	return profile
}

func (c *Client) fetchSymbolProfile(ctx context.Context, symbol string) symbolProfile {
	profile := symbolProfile{tickSize: 0.01, stepSize: 0.001, minNotional: 10}

	if err := c.limiter.Wait(ctx); err != nil {
		return profile
	}

	if c.futures != nil {
		info, err := c.futures.NewExchangeInfoService().Do(ctx)
		if err != nil {
			return profile
		}
		for _, s := range info.Symbols {
			if s.Symbol != symbol {
				continue
			}
			for _, f := range s.Filters {
				applyFilter(&profile, f)
			}
			return profile
		}
		return profile
	}

	info, err := c.spot.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return profile
	}
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		for _, f := range s.Filters {
			applyFilter(&profile, f)
		}
		return profile
	}
	return profile
}

func applyFilter(profile *symbolProfile, f map[string]interface{}) {
	switch f["filterType"] {
	case "PRICE_FILTER":
		if v, ok := f["tickSize"].(string); ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				profile.tickSize = parsed
			}
		}
	case "LOT_SIZE":
		if v, ok := f["stepSize"].(string); ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				profile.stepSize = parsed
			}
		}
	case "MIN_NOTIONAL", "NOTIONAL":
		if v, ok := f["minNotional"].(string); ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				profile.minNotional = parsed
			}
		}
	}
}

// roundToStep aligns a quantity to the exchange's lot step (donor's
// RoundToPrecision).
func roundToStep(value, step float64) float64 {
	if step == 0 {
		return value
	}
	return math.Floor(value/step+0.5) * step
}

// formatAtStep renders a rounded quantity with the decimal precision the
// step size implies (donor's getPrecision).
func formatAtStep(value, step float64) string {
	precision := 0
	if step > 0 && step < 1 {
		precision = int(math.Ceil(-math.Log10(step)))
	}
	return strconv.FormatFloat(value, 'f', precision, 64)
}
