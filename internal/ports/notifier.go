package ports

import (
	"context"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
)

// OrderEvent is published once per per-account execution outcome.
type OrderEvent struct {
	Order domain.Order
}

// Summary is published once per executeOnAll invocation.
type Summary struct {
	GroupID       string
	TotalAccounts int
	Succeeded     int
	Failed        int
	PerAccount    []domain.Order
}

// Notifier publishes best-effort events; publish failures never propagate
// back into the scheduler or executor.
type Notifier interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
	PublishSummary(ctx context.Context, summary Summary) error
}
