package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/cryptosignal/internal/application/risk"
	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

// WinLossLookup feeds KELLY sizing with an account's trailing win/loss stats
// for a symbol.
type WinLossLookup func(accountID, symbol string) risk.WinLossStats

// Executor is the Multi-Account Executor (spec §4.4): fans one validated
// signal out to every eligible account concurrently, recording one Order
// per account.
type Executor struct {
	cfg       Config
	accounts  ports.AccountStore
	orders    ports.OrderStore
	positions ports.PositionStore
	risk      *risk.Manager
	notifier  ports.Notifier
	winLoss   WinLossLookup
}

// New constructs an Executor. winLoss may be nil, in which case KELLY sizing
// gets zero-valued stats (0 win rate), for which Manager.SizePosition clamps
// the Kelly fraction to 0, so KELLY accounts are sized to zero notional.
func New(cfg Config, accounts ports.AccountStore, orders ports.OrderStore, positions ports.PositionStore, riskMgr *risk.Manager, notifier ports.Notifier, winLoss WinLossLookup) *Executor {
	if winLoss == nil {
		winLoss = func(string, string) risk.WinLossStats { return risk.WinLossStats{} }
	}
	return &Executor{cfg: cfg, accounts: accounts, orders: orders, positions: positions, risk: riskMgr, notifier: notifier, winLoss: winLoss}
}

// ExecuteOnAll implements spec.md §4.4's executeOnAll(signal) → Summary.
func (e *Executor) ExecuteOnAll(ctx context.Context, signal domain.Signal) (ports.Summary, error) {
	accounts, err := e.accounts.ListEligibleAccounts(ctx)
	if err != nil {
		return ports.Summary{}, err
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, e.cfg.Deadline)
	defer cancel()

	results := make([]domain.Order, len(accounts))
	var wg sync.WaitGroup
	for i, account := range accounts {
		wg.Add(1)
		go func(i int, account domain.Account) {
			defer wg.Done()
			results[i] = e.runOne(deadlineCtx, signal, account)
		}(i, account)
	}
	wg.Wait()

	summary := ports.Summary{GroupID: signal.GroupID, TotalAccounts: len(accounts), PerAccount: results}
	for _, o := range results {
		if o.Status == domain.OrderFilled {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	if e.notifier != nil {
		if err := e.notifier.PublishSummary(ctx, summary); err != nil {
			slog.Warn("executor: publish summary failed", "group_id", signal.GroupID, "err", err)
		}
	}
	return summary, nil
}

// runOne executes the per-account protocol (spec §4.4 step 2) for one
// account, always returning a terminal Order.
func (e *Executor) runOne(ctx context.Context, signal domain.Signal, account domain.Account) domain.Order {
	order := domain.Order{
		ID:         uuid.NewString(),
		GroupID:    signal.GroupID,
		AccountID:  account.ID,
		Symbol:     signal.Symbol,
		Direction:  signal.Direction,
		StopLoss:   signal.Levels.StopLoss,
		TakeProfit: signal.Levels.TP1,
		EntryPrice: signal.Levels.Entry,
		Status:     domain.OrderPending,
		CreatedAt:  time.Now(),
	}

	if existing, ok, err := e.orders.FindByGroupAndAccount(ctx, signal.GroupID, account.ID); err == nil && ok && existing.Status.Terminal() {
		slog.Debug("executor: idempotent skip, terminal order already exists", "group_id", signal.GroupID, "account_id", account.ID)
		return existing
	}

	if ctx.Err() != nil {
		return e.fail(ctx, order, domain.ErrTimeout, "executor deadline already elapsed")
	}

	client, err := e.accounts.FetchDecryptedClient(ctx, account.ID)
	if err != nil {
		return e.fail(ctx, order, domain.ErrInvalidAPIKey, err.Error())
	}

	balanceCtx, cancelBal := context.WithTimeout(ctx, e.cfg.BalanceFetchTimeout)
	balance, err := client.FetchBalance(balanceCtx, quoteAsset(signal.Symbol))
	cancelBal()
	if err != nil {
		return e.fail(ctx, order, domain.ErrBalanceTimeout, err.Error())
	}

	infoCtx, cancelInfo := context.WithTimeout(ctx, e.cfg.CallTimeout)
	info, err := client.ExchangeInfo(infoCtx, signal.Symbol)
	cancelInfo()
	if err != nil {
		kind := domain.ErrInvalidSymbol
		if ctx.Err() != nil || infoCtx.Err() == context.DeadlineExceeded {
			kind = e.timeoutAwareKind(ctx, infoCtx, kind)
		}
		return e.fail(ctx, order, kind, err.Error())
	}

	openNotional := e.openNotional(ctx, account.ID)

	stats := e.winLoss(account.ID, signal.Symbol)
	sized := e.risk.SizePosition(ctx, signal, account, balance.Free, stats, info.MinNotional, info.LotStep, openNotional)
	if sized.Skip {
		return e.fail(ctx, order, domain.ErrSkippedBySizing, sized.SkipReason)
	}
	order.Quantity = sized.Quantity

	order.MarketType = e.routeMarket(signal, account)

	submitCtx, cancelSubmit := context.WithTimeout(ctx, e.cfg.CallTimeout)
	filled, err := client.SubmitMarketOrder(submitCtx, signal.Symbol, signal.Direction, sized.Quantity, maxf(account.Policy.MaxLeverage, 1))
	cancelSubmit()
	if err != nil {
		kind := domain.ErrExchangeReject
		if ctx.Err() != nil || submitCtx.Err() == context.DeadlineExceeded {
			kind = e.timeoutAwareKind(ctx, submitCtx, domain.ErrNetworkTimeout)
		}
		return e.fail(ctx, order, kind, err.Error())
	}

	order.Status = domain.OrderFilled
	order.ExchangeOrderID = filled.ExchangeOrderID
	order.FilledPrice = filled.FilledPrice
	order.FilledQuantity = filled.FilledQty
	order.UpdatedAt = time.Now()

	e.persistAndNotify(ctx, order)
	return order
}

// openNotional sums |quantity * entryPrice| across accountID's open
// positions, feeding risk.SizePosition's I4 exposure-cap check. A lookup
// failure is treated as zero exposure rather than blocking the cycle.
func (e *Executor) openNotional(ctx context.Context, accountID string) float64 {
	if e.positions == nil {
		return 0
	}
	open, err := e.positions.ListOpenByAccount(ctx, accountID)
	if err != nil {
		slog.Warn("executor: list open positions failed, treating exposure as zero", "account_id", accountID, "err", err)
		return 0
	}
	var total float64
	for _, p := range open {
		if p.Status != domain.PositionOpen {
			continue
		}
		total += abs(p.Quantity * p.EntryPrice)
	}
	return total
}

// timeoutAwareKind distinguishes the aggregate fan-out Deadline (outer) from
// a per-call CallTimeout (call) firing, since spec §5 reserves a distinct
// ErrorKind for each trigger. fallback is returned when neither context was
// the cause (e.g. a genuine exchange rejection).
func (e *Executor) timeoutAwareKind(outer, call context.Context, fallback domain.ErrorKind) domain.ErrorKind {
	if outer.Err() != nil {
		return domain.ErrTimeout
	}
	if call.Err() == context.DeadlineExceeded {
		return domain.ErrNetworkTimeout
	}
	return fallback
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// routeMarket implements spec.md §4.4 step 2's spot/futures choice. Accounts
// with an explicit market type are always respected. Dual-market accounts go
// to spot when the score and timeframe pass; cfg.SpotMaxVolatility is not
// consulted, so volatility plays no part in the choice.
func (e *Executor) routeMarket(signal domain.Signal, account domain.Account) domain.MarketType {
	if account.MarketType == domain.MarketSpot || account.MarketType == domain.MarketFutures {
		return account.MarketType
	}
	if signal.Score >= e.cfg.SpotScoreThreshold && e.cfg.SpotTimeframes[string(signal.Timeframe)] {
		return domain.MarketSpot
	}
	return domain.MarketFutures
}

func (e *Executor) fail(ctx context.Context, order domain.Order, kind domain.ErrorKind, detail string) domain.Order {
	order.Status = domain.OrderFailed
	order.ErrorKind = kind
	order.ErrorDetail = detail
	order.UpdatedAt = time.Now()
	e.persistAndNotify(ctx, order)
	return order
}

func (e *Executor) persistAndNotify(ctx context.Context, order domain.Order) {
	if err := e.orders.InsertOrder(ctx, order); err != nil {
		slog.Error("executor: insert order failed", "order_id", order.ID, "err", err)
	}
	if e.notifier != nil {
		if err := e.notifier.PublishOrderEvent(ctx, ports.OrderEvent{Order: order}); err != nil {
			slog.Warn("executor: publish order event failed", "order_id", order.ID, "err", err)
		}
	}
}

func quoteAsset(symbol string) string {
	for _, suffix := range []string{"USDT", "USDC", "BUSD"} {
		if len(symbol) > len(suffix) && symbol[len(symbol)-len(suffix):] == suffix {
			return suffix
		}
	}
	return "USDT"
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
