package ports

import (
	"context"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
)

// OrderStore persists per-account execution records. The (groupId, accountId)
// pair is unique, enforcing executor idempotency (P3).
type OrderStore interface {
	InsertOrder(ctx context.Context, order domain.Order) error
	UpdateOrderStatus(ctx context.Context, order domain.Order) error

	// FindByGroupAndAccount looks up an existing order for the idempotency
	// check; ok is false if no row exists yet for this pair.
	FindByGroupAndAccount(ctx context.Context, groupID, accountID string) (order domain.Order, ok bool, err error)

	// OrdersForGroup returns every order produced for one signal execution,
	// used to build the executor summary and for daily reporting.
	OrdersForGroup(ctx context.Context, groupID string) ([]domain.Order, error)

	// DailyStats aggregates counts and PnL for report generation.
	DailyStats(ctx context.Context) (domain.DailyStats, error)

	// AccountDailyStats aggregates one account's realized PnL and trade
	// count for today, feeding the per-account daily-loss breaker (spec
	// §3.1's dailyLossTripped clause).
	AccountDailyStats(ctx context.Context, accountID string) (realizedPnL float64, tradesCount int, err error)
}
