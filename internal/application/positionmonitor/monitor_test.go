package positionmonitor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

type fakeMonitorExchangeClient struct {
	open []domain.Position
}

func (f *fakeMonitorExchangeClient) FetchBalance(ctx context.Context, quoteAsset string) (ports.Balance, error) {
	return ports.Balance{}, nil
}
func (f *fakeMonitorExchangeClient) FetchMarkPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, nil
}
func (f *fakeMonitorExchangeClient) SubmitMarketOrder(ctx context.Context, symbol string, dir domain.Direction, quantity, leverage float64) (ports.FilledOrder, error) {
	return ports.FilledOrder{}, nil
}
func (f *fakeMonitorExchangeClient) FetchOpenPositions(ctx context.Context) ([]domain.Position, error) {
	return f.open, nil
}
func (f *fakeMonitorExchangeClient) ExchangeInfo(ctx context.Context, symbol string) (ports.ExchangeInfo, error) {
	return ports.ExchangeInfo{}, nil
}

type fakeMonitorAccountStore struct {
	accounts []domain.Account
	clients  map[string]*fakeMonitorExchangeClient
}

func (f *fakeMonitorAccountStore) ListEligibleAccounts(ctx context.Context) ([]domain.Account, error) {
	return f.accounts, nil
}
func (f *fakeMonitorAccountStore) FetchDecryptedClient(ctx context.Context, accountID string) (ports.ExchangeClient, error) {
	return f.clients[accountID], nil
}

type fakePositionStore struct {
	mu       sync.Mutex
	open     map[string]domain.Position // keyed by orderID
	closed   map[string]domain.ExitReason
	closedPnL map[string]float64
}

func newFakePositionStore(positions ...domain.Position) *fakePositionStore {
	f := &fakePositionStore{
		open:      make(map[string]domain.Position),
		closed:    make(map[string]domain.ExitReason),
		closedPnL: make(map[string]float64),
	}
	for _, p := range positions {
		f.open[p.OrderID] = p
	}
	return f
}

func (f *fakePositionStore) UpsertPosition(ctx context.Context, position domain.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open[position.OrderID] = position
	return nil
}

func (f *fakePositionStore) ListOpenByAccount(ctx context.Context, accountID string) ([]domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Position
	for _, p := range f.open {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePositionStore) ClosePosition(ctx context.Context, orderID string, exitReason domain.ExitReason, realizedPnL float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.open, orderID)
	f.closed[orderID] = exitReason
	f.closedPnL[orderID] = realizedPnL
	return nil
}

func TestReconcileAccount_UpdatesUnrealizedPnLForStillOpenPosition(t *testing.T) {
	local := domain.Position{OrderID: "ord-1", AccountID: "acct-1", Symbol: "BTCUSDT", Status: domain.PositionOpen}
	store := newFakePositionStore(local)
	clients := map[string]*fakeMonitorExchangeClient{
		"acct-1": {open: []domain.Position{{Symbol: "BTCUSDT", UnrealizedPnL: 42, EntryPrice: 101}}},
	}
	accounts := &fakeMonitorAccountStore{accounts: []domain.Account{{ID: "acct-1"}}, clients: clients}
	mon := New(DefaultConfig(), accounts, store)

	require.NoError(t, mon.reconcileAccount(context.Background(), domain.Account{ID: "acct-1"}))

	updated := store.open["ord-1"]
	assert.Equal(t, 42.0, updated.UnrealizedPnL)
	assert.Empty(t, store.closed)
}

func TestReconcileAccount_ClosesPositionNoLongerReportedByExchange(t *testing.T) {
	local := domain.Position{OrderID: "ord-1", AccountID: "acct-1", Symbol: "BTCUSDT", Status: domain.PositionOpen, UnrealizedPnL: 12}
	store := newFakePositionStore(local)
	clients := map[string]*fakeMonitorExchangeClient{"acct-1": {open: nil}}
	accounts := &fakeMonitorAccountStore{accounts: []domain.Account{{ID: "acct-1"}}, clients: clients}
	mon := New(DefaultConfig(), accounts, store)

	require.NoError(t, mon.reconcileAccount(context.Background(), domain.Account{ID: "acct-1"}))

	assert.Equal(t, domain.ExitTakeProfit, store.closed["ord-1"])
	assert.Equal(t, 12.0, store.closedPnL["ord-1"])
	_, stillOpen := store.open["ord-1"]
	assert.False(t, stillOpen)
}

func TestReconcileAccount_NoLocalPositionsIsANoop(t *testing.T) {
	store := newFakePositionStore()
	clients := map[string]*fakeMonitorExchangeClient{"acct-1": {open: nil}}
	accounts := &fakeMonitorAccountStore{accounts: []domain.Account{{ID: "acct-1"}}, clients: clients}
	mon := New(DefaultConfig(), accounts, store)

	require.NoError(t, mon.reconcileAccount(context.Background(), domain.Account{ID: "acct-1"}))
	assert.Empty(t, store.closed)
}
