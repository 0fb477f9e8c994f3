package positionmonitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

// Monitor is the Position Monitor (spec §4.5): a read-through reconciler
// that never places orders, only mirrors what each exchange account
// reports back into local Position/Order rows.
type Monitor struct {
	cfg       Config
	accounts  ports.AccountStore
	positions ports.PositionStore
}

// New constructs a Monitor.
func New(cfg Config, accounts ports.AccountStore, positions ports.PositionStore) *Monitor {
	return &Monitor{cfg: cfg, accounts: accounts, positions: positions}
}

// Run polls every account on cfg.PollInterval until ctx is cancelled,
// grounded on the donor's Scanner.Run ticker loop.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("position monitor starting", "interval", m.cfg.PollInterval)

	if err := m.reconcileAll(ctx); err != nil {
		slog.Error("position monitor: initial reconcile failed", "err", err)
	}

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("position monitor stopped")
			return nil
		case <-ticker.C:
			if err := m.reconcileAll(ctx); err != nil {
				slog.Error("position monitor: reconcile failed", "err", err)
			}
		}
	}
}

func (m *Monitor) reconcileAll(ctx context.Context) error {
	accounts, err := m.accounts.ListEligibleAccounts(ctx)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if err := m.reconcileAccount(ctx, account); err != nil {
			slog.Warn("position monitor: account reconcile failed", "account_id", account.ID, "err", err)
		}
	}
	return nil
}

// reconcileAccount syncs one account's exchange-reported open positions
// against the local store. Exchange truth wins: a local position no longer
// reported by the exchange is closed locally with its last-known PnL.
func (m *Monitor) reconcileAccount(ctx context.Context, account domain.Account) error {
	client, err := m.accounts.FetchDecryptedClient(ctx, account.ID)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
	remote, err := client.FetchOpenPositions(callCtx)
	cancel()
	if err != nil {
		return err
	}
	remoteBySymbol := make(map[string]domain.Position, len(remote))
	for _, p := range remote {
		remoteBySymbol[p.Symbol] = p
	}

	local, err := m.positions.ListOpenByAccount(ctx, account.ID)
	if err != nil {
		return err
	}

	for _, pos := range local {
		live, stillOpen := remoteBySymbol[pos.Symbol]
		if stillOpen {
			pos.UnrealizedPnL = live.UnrealizedPnL
			pos.EntryPrice = live.EntryPrice
			if err := m.positions.UpsertPosition(ctx, pos); err != nil {
				slog.Warn("position monitor: upsert failed", "order_id", pos.OrderID, "err", err)
			}
			continue
		}

		// The exchange gives no closing reason in this capability set, so the
		// sign of the last-known unrealized PnL is the best available signal.
		reason := domain.ExitManual
		switch {
		case pos.UnrealizedPnL < 0:
			reason = domain.ExitStopLoss
		case pos.UnrealizedPnL > 0:
			reason = domain.ExitTakeProfit
		}
		if err := m.positions.ClosePosition(ctx, pos.OrderID, reason, pos.UnrealizedPnL); err != nil {
			slog.Warn("position monitor: close failed", "order_id", pos.OrderID, "err", err)
		}
	}
	return nil
}
