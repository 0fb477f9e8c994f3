package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/cryptosignal/internal/application/risk"
	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

type fakeExchangeClient struct {
	balance     ports.Balance
	balanceErr  error
	info        ports.ExchangeInfo
	infoErr     error
	submitErr   error
	submitDelay time.Duration
}

func (f *fakeExchangeClient) FetchBalance(ctx context.Context, quoteAsset string) (ports.Balance, error) {
	return f.balance, f.balanceErr
}
func (f *fakeExchangeClient) FetchMarkPrice(ctx context.Context, symbol string) (float64, error) {
	return 100, nil
}
func (f *fakeExchangeClient) SubmitMarketOrder(ctx context.Context, symbol string, dir domain.Direction, quantity, leverage float64) (ports.FilledOrder, error) {
	if f.submitDelay > 0 {
		select {
		case <-time.After(f.submitDelay):
		case <-ctx.Done():
			return ports.FilledOrder{}, ctx.Err()
		}
	}
	if f.submitErr != nil {
		return ports.FilledOrder{}, f.submitErr
	}
	return ports.FilledOrder{ExchangeOrderID: "ex-1", FilledPrice: 100, FilledQty: quantity}, nil
}
func (f *fakeExchangeClient) FetchOpenPositions(ctx context.Context) ([]domain.Position, error) {
	return nil, nil
}
func (f *fakeExchangeClient) ExchangeInfo(ctx context.Context, symbol string) (ports.ExchangeInfo, error) {
	return f.info, f.infoErr
}

type fakeAccountStore struct {
	accounts []domain.Account
	clients  map[string]*fakeExchangeClient
}

func (f *fakeAccountStore) ListEligibleAccounts(ctx context.Context) ([]domain.Account, error) {
	return f.accounts, nil
}
func (f *fakeAccountStore) FetchDecryptedClient(ctx context.Context, accountID string) (ports.ExchangeClient, error) {
	c, ok := f.clients[accountID]
	if !ok {
		return nil, errors.New("no client configured for account")
	}
	return c, nil
}

type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[string]domain.Order)}
}
func (f *fakeOrderStore) InsertOrder(ctx context.Context, order domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.IdempotencyKey()] = order
	return nil
}
func (f *fakeOrderStore) UpdateOrderStatus(ctx context.Context, order domain.Order) error {
	return f.InsertOrder(ctx, order)
}
func (f *fakeOrderStore) FindByGroupAndAccount(ctx context.Context, groupID, accountID string) (domain.Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[groupID+"|"+accountID]
	return o, ok, nil
}
func (f *fakeOrderStore) OrdersForGroup(ctx context.Context, groupID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if o.GroupID == groupID {
			out = append(out, o)
		}
	}
	return out, nil
}
func (f *fakeOrderStore) DailyStats(ctx context.Context) (domain.DailyStats, error) {
	return domain.DailyStats{}, nil
}
func (f *fakeOrderStore) AccountDailyStats(ctx context.Context, accountID string) (float64, int, error) {
	return 0, 0, nil
}

type fakePositionStore struct {
	open map[string][]domain.Position
}

func (f *fakePositionStore) UpsertPosition(ctx context.Context, p domain.Position) error { return nil }
func (f *fakePositionStore) ListOpenByAccount(ctx context.Context, accountID string) ([]domain.Position, error) {
	if f == nil {
		return nil, nil
	}
	return f.open[accountID], nil
}
func (f *fakePositionStore) ClosePosition(ctx context.Context, orderID string, reason domain.ExitReason, pnl float64) error {
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	events    []ports.OrderEvent
	summaries []ports.Summary
}

func (f *fakeNotifier) PublishOrderEvent(ctx context.Context, event ports.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}
func (f *fakeNotifier) PublishSummary(ctx context.Context, summary ports.Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, summary)
	return nil
}

func testSignal() domain.Signal {
	return domain.Signal{
		GroupID:   "grp-1",
		Symbol:    "BTCUSDT",
		Timeframe: domain.Timeframe4h,
		Direction: domain.DirectionLong,
		Score:     0.80,
		Levels:    domain.Levels{Entry: 100, StopLoss: 95, TP1: 105, TP2: 110, TP3: 115},
	}
}

func fixedAccount(id string) domain.Account {
	return domain.Account{
		ID:               id,
		MarketType:       domain.MarketFutures,
		IsActive:         true,
		IsVerified:       true,
		AutoTradeEnabled: true,
		Policy: domain.PolicyEnvelope{
			SizingMode:          domain.SizingFixed,
			FixedSize:           1000,
			MaxLeverage:         1,
			MaxPositionNotional: 1000,
			MaxRiskPerTrade:     0.10,
		},
	}
}

func TestExecuteOnAll_HappyPathTwoAccounts(t *testing.T) {
	clients := map[string]*fakeExchangeClient{
		"acct-1": {balance: ports.Balance{Free: 10_000}, info: ports.ExchangeInfo{MinNotional: 10, LotStep: 0.001}},
		"acct-2": {balance: ports.Balance{Free: 10_000}, info: ports.ExchangeInfo{MinNotional: 10, LotStep: 0.001}},
	}
	accStore := &fakeAccountStore{accounts: []domain.Account{fixedAccount("acct-1"), fixedAccount("acct-2")}, clients: clients}
	orderStore := newFakeOrderStore()
	notifier := &fakeNotifier{}
	exec := New(DefaultConfig(), accStore, orderStore, &fakePositionStore{}, risk.New(risk.DefaultManagerConfig()), notifier, nil)

	summary, err := exec.ExecuteOnAll(context.Background(), testSignal())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalAccounts)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Len(t, notifier.summaries, 1)
}

func TestExecuteOnAll_BelowMinNotionalSkipsOneAccountOnly(t *testing.T) {
	tinyAccount := fixedAccount("acct-tiny")
	tinyAccount.Policy.FixedSize = 5
	clients := map[string]*fakeExchangeClient{
		"acct-tiny": {balance: ports.Balance{Free: 1000}, info: ports.ExchangeInfo{MinNotional: 50, LotStep: 0.001}},
		"acct-ok":   {balance: ports.Balance{Free: 10_000}, info: ports.ExchangeInfo{MinNotional: 10, LotStep: 0.001}},
	}
	accStore := &fakeAccountStore{accounts: []domain.Account{tinyAccount, fixedAccount("acct-ok")}, clients: clients}
	orderStore := newFakeOrderStore()
	exec := New(DefaultConfig(), accStore, orderStore, &fakePositionStore{}, risk.New(risk.DefaultManagerConfig()), &fakeNotifier{}, nil)

	summary, err := exec.ExecuteOnAll(context.Background(), testSignal())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	var tinyOrder domain.Order
	for _, o := range summary.PerAccount {
		if o.AccountID == "acct-tiny" {
			tinyOrder = o
		}
	}
	assert.Equal(t, domain.OrderFailed, tinyOrder.Status)
	assert.Equal(t, domain.ErrSkippedBySizing, tinyOrder.ErrorKind)
}

func TestExecuteOnAll_ExchangeTimeoutOnOneOfThree(t *testing.T) {
	clients := map[string]*fakeExchangeClient{
		"acct-1": {balance: ports.Balance{Free: 10_000}, info: ports.ExchangeInfo{MinNotional: 10, LotStep: 0.001}},
		"acct-2": {balance: ports.Balance{Free: 10_000}, info: ports.ExchangeInfo{MinNotional: 10, LotStep: 0.001}},
		"acct-3": {balance: ports.Balance{Free: 10_000}, info: ports.ExchangeInfo{MinNotional: 10, LotStep: 0.001}, submitDelay: 200 * time.Millisecond},
	}
	cfg := DefaultConfig()
	cfg.Deadline = 50 * time.Millisecond
	accStore := &fakeAccountStore{
		accounts: []domain.Account{fixedAccount("acct-1"), fixedAccount("acct-2"), fixedAccount("acct-3")},
		clients:  clients,
	}
	orderStore := newFakeOrderStore()
	exec := New(cfg, accStore, orderStore, &fakePositionStore{}, risk.New(risk.DefaultManagerConfig()), &fakeNotifier{}, nil)

	summary, err := exec.ExecuteOnAll(context.Background(), testSignal())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalAccounts)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
}

func TestExecuteOnAll_IdempotentSkipsAlreadyTerminalOrder(t *testing.T) {
	clients := map[string]*fakeExchangeClient{
		"acct-1": {balance: ports.Balance{Free: 10_000}, info: ports.ExchangeInfo{MinNotional: 10, LotStep: 0.001}},
	}
	accStore := &fakeAccountStore{accounts: []domain.Account{fixedAccount("acct-1")}, clients: clients}
	orderStore := newFakeOrderStore()
	signal := testSignal()
	existing := domain.Order{GroupID: signal.GroupID, AccountID: "acct-1", Status: domain.OrderFilled, ExchangeOrderID: "already-filled"}
	require.NoError(t, orderStore.InsertOrder(context.Background(), existing))

	exec := New(DefaultConfig(), accStore, orderStore, &fakePositionStore{}, risk.New(risk.DefaultManagerConfig()), &fakeNotifier{}, nil)
	summary, err := exec.ExecuteOnAll(context.Background(), signal)
	require.NoError(t, err)
	require.Len(t, summary.PerAccount, 1)
	assert.Equal(t, "already-filled", summary.PerAccount[0].ExchangeOrderID)
}

func TestRouteMarket_RespectsExplicitAccountMarketType(t *testing.T) {
	exec := New(DefaultConfig(), nil, nil, nil, risk.New(risk.DefaultManagerConfig()), nil, nil)
	account := fixedAccount("acct-1")
	account.MarketType = domain.MarketSpot
	got := exec.routeMarket(testSignal(), account)
	assert.Equal(t, domain.MarketSpot, got)
}

func TestRouteMarket_DualMarketUsesSpotOnHighScoreLowVolHigherTimeframe(t *testing.T) {
	exec := New(DefaultConfig(), nil, nil, nil, risk.New(risk.DefaultManagerConfig()), nil, nil)
	account := fixedAccount("acct-1")
	account.MarketType = domain.MarketBoth

	signal := testSignal()
	signal.Score = 0.80
	signal.Timeframe = domain.Timeframe4h
	assert.Equal(t, domain.MarketSpot, exec.routeMarket(signal, account))

	signal.Score = 0.50
	assert.Equal(t, domain.MarketFutures, exec.routeMarket(signal, account))
}
