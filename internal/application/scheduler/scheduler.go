package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/cryptosignal/internal/application/executor"
	"github.com/alejandrodnm/cryptosignal/internal/application/risk"
	"github.com/alejandrodnm/cryptosignal/internal/application/selector"
	"github.com/alejandrodnm/cryptosignal/internal/application/signalgen"
	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

// Scheduler is the cycle driver (spec §2, §5): ties signalgen → selector →
// risk → executor → notifier into one bounded cycle, grounded on the
// donor's Scanner.Run/runCycle/cycle three-layer split.
type Scheduler struct {
	cfg Config

	generator *signalgen.Generator
	selector  *selector.Selector
	risk      *risk.Manager
	executor  *executor.Executor
	notifier  ports.Notifier

	bars      ports.BarStore
	signals   ports.SignalStore
	orders    ports.OrderStore
	positions ports.PositionStore
	accounts  ports.AccountStore

	running bool
}

// New wires every stage of the cycle.
func New(
	cfg Config,
	generator *signalgen.Generator,
	sel *selector.Selector,
	riskMgr *risk.Manager,
	exec *executor.Executor,
	notifier ports.Notifier,
	bars ports.BarStore,
	signals ports.SignalStore,
	orders ports.OrderStore,
	positions ports.PositionStore,
	accounts ports.AccountStore,
) *Scheduler {
	return &Scheduler{
		cfg: cfg, generator: generator, selector: sel, risk: riskMgr, executor: exec, notifier: notifier,
		bars: bars, signals: signals, orders: orders, positions: positions, accounts: accounts,
	}
}

// Run ticks every cfg.Interval until ctx is cancelled. A cycle still running
// when the next tick fires is left alone and that tick is simply skipped
// (spec §5's "skip, don't stack" overrun policy), grounded on the donor's
// Scanner.Run.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler starting", "interval", s.cfg.Interval, "deadline", s.cfg.Deadline, "dry_run", s.cfg.DryRun)

	if err := s.runCycle(ctx); err != nil {
		slog.Error("cycle failed", "err", err)
		if s.cfg.DryRun {
			return err
		}
	}
	if s.cfg.DryRun {
		return nil
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			if s.running {
				slog.Warn("scheduler: previous cycle still running, skipping this tick")
				continue
			}
			if err := s.runCycle(ctx); err != nil {
				slog.Error("cycle failed", "err", err)
			}
		}
	}
}

// RunOnce executes exactly one cycle, for the -once CLI flag.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runCycle(ctx)
}

// runCycle bounds one cycle to cfg.Deadline and logs its outcome.
func (s *Scheduler) runCycle(ctx context.Context) error {
	s.running = true
	defer func() { s.running = false }()

	start := time.Now()
	cycleCtx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()

	summary, err := s.cycle(cycleCtx)
	slog.Info("cycle complete", "duration", time.Since(start).Round(time.Millisecond), "executed", summary.executed, "err", err)
	return err
}

type cycleSummary struct {
	generated int
	selected  bool
	executed  bool
}

// cycle runs the pure scan → select → validate → size → execute pipeline,
// grounded on the donor's cycle() method.
func (s *Scheduler) cycle(ctx context.Context) (cycleSummary, error) {
	pairs := s.pairs()
	signals := s.generator.ScanAll(ctx, pairs, s.bars, s.cfg.BarLookback)
	for i := range signals {
		if _, err := s.signals.InsertSignal(ctx, signals[i]); err != nil {
			slog.Warn("scheduler: insert signal failed", "symbol", signals[i].Symbol, "err", err)
		}
	}

	summary := cycleSummary{generated: len(signals)}
	if s.cfg.DryRun {
		return summary, nil
	}

	portfolio, err := s.assemblePortfolio(ctx)
	if err != nil {
		return summary, err
	}

	winner, err := s.selector.Select(ctx, time.Now(), openSymbolSet(portfolio.OpenPositions), len(portfolio.OpenPositions), portfolio.TodaySignalsExecuted)
	if err != nil {
		return summary, err
	}
	if winner == nil {
		return summary, nil
	}
	summary.selected = true

	decision := s.risk.ValidateCycle(ctx, *winner, portfolio)
	if !decision.Accept {
		slog.Info("scheduler: signal rejected at cycle level", "symbol", winner.Symbol, "kind", decision.Kind, "reason", decision.Reason)
		if _, err := s.signals.UpdateSignalStatus(ctx, winner.ID, domain.SignalConsumed, domain.SignalActive); err != nil {
			slog.Warn("scheduler: failed to return rejected signal to active", "signal_id", winner.ID, "err", err)
		}
		return summary, nil
	}

	if _, err := s.executor.ExecuteOnAll(ctx, *winner); err != nil {
		return summary, err
	}
	summary.executed = true
	return summary, nil
}

func (s *Scheduler) pairs() []signalgen.Pair {
	pairs := make([]signalgen.Pair, 0, len(s.cfg.Symbols)*len(s.cfg.Timeframes))
	for _, symbol := range s.cfg.Symbols {
		for _, tf := range s.cfg.Timeframes {
			pairs = append(pairs, signalgen.Pair{Symbol: symbol, Timeframe: domain.Timeframe(tf)})
		}
	}
	return pairs
}

// assemblePortfolio gathers the Risk Manager's read-only snapshot from the
// account, position, order, and bar stores (spec §4.3's implicit inputs).
func (s *Scheduler) assemblePortfolio(ctx context.Context) (risk.Portfolio, error) {
	accounts, err := s.accounts.ListEligibleAccounts(ctx)
	if err != nil {
		return risk.Portfolio{}, err
	}

	var openPositions []domain.Position
	var totalBalance float64
	for _, account := range accounts {
		totalBalance += account.Balance
		open, err := s.positions.ListOpenByAccount(ctx, account.ID)
		if err != nil {
			slog.Warn("scheduler: list open positions failed", "account_id", account.ID, "err", err)
			continue
		}
		openPositions = append(openPositions, open...)
	}

	stats, err := s.orders.DailyStats(ctx)
	if err != nil {
		return risk.Portfolio{}, err
	}
	dailyLossFrac := 0.0
	if totalBalance > 0 && stats.TotalPnL < 0 {
		dailyLossFrac = -stats.TotalPnL / totalBalance
	}

	todaySignals, err := s.signals.CountSignalsToday(ctx)
	if err != nil {
		return risk.Portfolio{}, err
	}

	volatility := make(map[string]float64, len(s.cfg.Symbols))
	volume := make(map[string]float64, len(s.cfg.Symbols))
	for _, symbol := range s.cfg.Symbols {
		stats, err := computeMarketStats(ctx, s.bars, symbol)
		if err != nil {
			slog.Warn("scheduler: market stats failed", "symbol", symbol, "err", err)
			continue
		}
		volatility[symbol] = stats.Volatility24h
		volume[symbol] = stats.Volume24h
	}

	return risk.Portfolio{
		OpenPositions:         openPositions,
		DailyRealizedLossFrac: dailyLossFrac,
		TodaySignalsExecuted:  todaySignals,
		Volatility24h:         volatility,
		Volume24h:             volume,
	}, nil
}

func openSymbolSet(positions []domain.Position) map[string]bool {
	out := make(map[string]bool, len(positions))
	for _, p := range positions {
		if p.Status == domain.PositionOpen {
			out[p.Symbol] = true
		}
	}
	return out
}
