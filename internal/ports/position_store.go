package ports

import (
	"context"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
)

// PositionStore persists the Position Monitor's read-through view of
// exchange-reported positions (spec §4.5 and §4.6).
type PositionStore interface {
	// UpsertPosition writes the latest entry price and unrealized PnL for an
	// open position, keyed by (orderID).
	UpsertPosition(ctx context.Context, position domain.Position) error

	// ListOpenByAccount returns the locally tracked open positions for one
	// account, used to detect exchange-side closes by diffing.
	ListOpenByAccount(ctx context.Context, accountID string) ([]domain.Position, error)

	// ClosePosition marks a position closed with its realized PnL and exit
	// reason, and is expected to also update the originating Order's PnL
	// and ClosedAt fields in the same logical transaction.
	ClosePosition(ctx context.Context, orderID string, exitReason domain.ExitReason, realizedPnL float64) error
}
