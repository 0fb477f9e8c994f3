package selector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

// Selector is the Best-Signal Selector (spec §4.2): picks at most one
// signal per cycle from the fresh pool, under portfolio constraints.
type Selector struct {
	cfg     Config
	store   ports.SignalStore
	winRate WinRateLookup
	fit     MarketConditionFit

	mu            sync.Mutex
	lastExecution time.Time
}

// New constructs a Selector. winRate/fit may be nil, in which case neutral
// defaults (0.50 win rate, 0.50 fit) are used.
func New(cfg Config, store ports.SignalStore, winRate WinRateLookup, fit MarketConditionFit) *Selector {
	if winRate == nil {
		winRate = func(string) float64 { return 0.50 }
	}
	if fit == nil {
		fit = func(domain.Signal) float64 { return 0.50 }
	}
	return &Selector{cfg: cfg, store: store, winRate: winRate, fit: fit}
}

// Select implements spec.md §4.2's select(now) contract. openPositionSymbols
// and the two portfolio counters are read by the caller from the current
// Order/Position state before invoking Select.
func (s *Selector) Select(ctx context.Context, now time.Time, openPositionSymbols map[string]bool, openPositionsCount, todaySignalsExecuted int) (*domain.Signal, error) {
	s.mu.Lock()
	last := s.lastExecution
	s.mu.Unlock()

	if !last.IsZero() && now.Sub(last) < s.cfg.Cooldown {
		slog.Debug("selector: cooldown gate blocks this cycle", "since_last", now.Sub(last))
		return nil, nil
	}

	if openPositionsCount >= s.cfg.MaxConcurrentPositions {
		slog.Debug("selector: portfolio full", "open", openPositionsCount, "max", s.cfg.MaxConcurrentPositions)
		return nil, nil
	}
	if todaySignalsExecuted >= s.cfg.MaxDailySignals {
		slog.Debug("selector: daily signal cap reached", "today", todaySignalsExecuted, "max", s.cfg.MaxDailySignals)
		return nil, nil
	}

	signals, err := s.store.ListActiveSignals(ctx, now.Add(-s.cfg.MaxSignalAge))
	if err != nil {
		return nil, err
	}

	candidates := make([]rankedCandidate, 0, len(signals))
	for _, sig := range signals {
		if sig.Score < s.cfg.MinScore {
			continue
		}
		if openPositionSymbols[sig.Symbol] {
			continue
		}
		candidates = append(candidates, rankedCandidate{signal: sig, quality: quality(sig, s.winRate, s.fit)})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	rank(candidates)

	for _, c := range candidates {
		ok, err := s.store.UpdateSignalStatus(ctx, c.signal.ID, domain.SignalActive, domain.SignalConsumed)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Lost the race to another scheduler invocation; try the next
			// candidate rather than returning None outright.
			continue
		}
		s.mu.Lock()
		s.lastExecution = now
		s.mu.Unlock()

		winner := c.signal
		winner.Status = domain.SignalConsumed
		return &winner, nil
	}

	return nil, nil
}
