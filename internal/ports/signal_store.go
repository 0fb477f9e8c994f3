package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
)

// SignalStore persists and advances the lifecycle of generated signals.
type SignalStore interface {
	InsertSignal(ctx context.Context, signal domain.Signal) (int64, error)

	// UpdateSignalStatus performs a conditional transition: it applies only
	// if the row's current status equals fromStatus, and reports whether the
	// transition happened. This is the concurrency anchor preventing double
	// consumption by overlapping selectors.
	UpdateSignalStatus(ctx context.Context, id int64, fromStatus, toStatus domain.SignalStatus) (bool, error)

	// ListActiveSignals returns active signals created at or after olderThan.
	ListActiveSignals(ctx context.Context, olderThan time.Time) ([]domain.Signal, error)

	// CountSignalsToday returns how many signals have reached consumed status
	// since the start of the current UTC day.
	CountSignalsToday(ctx context.Context) (int, error)

	// ExpireStaleSignals transitions active signals older than maxAge to expired.
	ExpireStaleSignals(ctx context.Context, maxAge time.Duration) (int, error)
}
