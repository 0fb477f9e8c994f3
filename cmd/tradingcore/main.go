// Command tradingcore runs the signal generation and multi-account
// execution core (spec.md §2), grounded on the donor's cmd/scanner flag
// parsing and signal.NotifyContext shutdown but wired to the
// scan → select → risk → execute → monitor pipeline instead of that
// donor's Polymarket scanner.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alejandrodnm/cryptosignal/config"
	"github.com/alejandrodnm/cryptosignal/internal/adapters/accounts"
	"github.com/alejandrodnm/cryptosignal/internal/adapters/notify"
	"github.com/alejandrodnm/cryptosignal/internal/adapters/store"
	"github.com/alejandrodnm/cryptosignal/internal/application/executor"
	"github.com/alejandrodnm/cryptosignal/internal/application/positionmonitor"
	"github.com/alejandrodnm/cryptosignal/internal/application/risk"
	"github.com/alejandrodnm/cryptosignal/internal/application/scheduler"
	"github.com/alejandrodnm/cryptosignal/internal/application/selector"
	"github.com/alejandrodnm/cryptosignal/internal/application/signalgen"
	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one cycle and exit")
	dryRun := flag.Bool("dry-run", false, "scan and store signals but skip execution")
	report := flag.Bool("report", false, "print the daily performance report and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("tradingcore starting",
		"config", *configPath,
		"interval", cfg.CycleInterval(),
		"once", *once,
		"dry_run", *dryRun,
		"report", *report,
		"symbols", cfg.Universe.Symbols,
		"timeframes", cfg.Universe.Timeframes,
	)

	db, err := store.Open(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *report {
		runReport(ctx, db)
		return
	}

	accountsStore := accounts.New(cfg.Accounts.CredentialSlotPrefix, cfg.Accounts.MaxSlots, cfg.Exchange.Testnet, accounts.NoStoreAccounts{}, db.AccountDailyStats)
	notifier := buildNotifier(cfg)

	genCfg := signalgen.DefaultConfig()
	genCfg.MinScore = cfg.Cycle.MinSignalStoreScore
	genCfg.Workers = cfg.Cycle.AnalysisWorkers
	generator := signalgen.New(genCfg, db, tickSizeLookup(accountsStore, cfg.ExchangeCallTimeout()))

	selCfg := selector.DefaultConfig()
	selCfg.MinScore = cfg.Cycle.MinSelectorScore
	selCfg.MaxSignalAge = cfg.MaxSignalAge()
	selCfg.Cooldown = cfg.CycleCooldown()
	selCfg.MaxConcurrentPositions = cfg.Risk.MaxConcurrentPositions
	selCfg.MaxDailySignals = cfg.Risk.MaxDailySignals
	sel := selector.New(selCfg, db, neutralWinRate, neutralMarketFit)

	riskCfg := risk.DefaultManagerConfig()
	riskCfg.MaxConcurrentPositions = cfg.Risk.MaxConcurrentPositions
	riskCfg.MaxDailyLossGlobal = cfg.Risk.MaxDailyLossGlobal
	riskCfg.MaxVolatility = cfg.Risk.MaxVolatility
	riskCfg.MinVolume24h = cfg.Risk.MinVolume24h
	riskCfg.QualityOverrideScore = cfg.Risk.QualityOverrideScore
	riskCfg.DefaultKellyFraction = cfg.Risk.DefaultKellyFraction
	riskMgr := risk.New(riskCfg)

	execCfg := executor.DefaultConfig()
	execCfg.Deadline = cfg.ExecutorDeadline()
	execCfg.CallTimeout = cfg.ExchangeCallTimeout()
	exec := executor.New(execCfg, accountsStore, db, db, riskMgr, notifier, neutralWinLoss)

	monitorCfg := positionmonitor.DefaultConfig()
	monitorCfg.CallTimeout = cfg.ExchangeCallTimeout()
	monitor := positionmonitor.New(monitorCfg, accountsStore, db)
	go func() {
		if err := monitor.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("position monitor exited", "err", err)
		}
	}()

	schedCfg := scheduler.DefaultConfig()
	schedCfg.Interval = cfg.CycleInterval()
	schedCfg.Deadline = cfg.CycleDeadline()
	schedCfg.Symbols = cfg.Universe.Symbols
	schedCfg.Timeframes = cfg.Universe.Timeframes
	schedCfg.DryRun = *dryRun

	sched := scheduler.New(schedCfg, generator, sel, riskMgr, exec, notifier, db, db, db, db, accountsStore)

	var runErr error
	if *once {
		runErr = sched.RunOnce(ctx)
	} else {
		runErr = sched.Run(ctx)
	}
	if runErr != nil {
		slog.Error("tradingcore exited with error", "err", runErr)
		os.Exit(1)
	}

	slog.Info("tradingcore stopped cleanly")
}

// buildNotifier wires in Telegram alongside the console notifier when
// configured; the console is always active since it also drives -report.
func buildNotifier(cfg *config.Config) ports.Notifier {
	console := notify.NewConsole()
	if !cfg.Telegram.Enabled || cfg.Telegram.Token == "" {
		return console
	}
	tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		slog.Warn("telegram notifier disabled: init failed", "err", err)
		return console
	}
	return multiNotifier{console, tg}
}

// multiNotifier fans every event out to each of its notifiers, logging
// (not failing) individual publish errors so one broken channel never
// blocks the others.
type multiNotifier []ports.Notifier

func (m multiNotifier) PublishOrderEvent(ctx context.Context, event ports.OrderEvent) error {
	for _, n := range m {
		if err := n.PublishOrderEvent(ctx, event); err != nil {
			slog.Warn("notifier: publish order event failed", "err", err)
		}
	}
	return nil
}

func (m multiNotifier) PublishSummary(ctx context.Context, summary ports.Summary) error {
	for _, n := range m {
		if err := n.PublishSummary(ctx, summary); err != nil {
			slog.Warn("notifier: publish summary failed", "err", err)
		}
	}
	return nil
}

// neutralWinRate and neutralMarketFit are the selector's ranking inputs
// until a dedicated trailing-stats store is built; both are bounded [0,1]
// and yield to MinScore rather than real bias (documented simplification).
func neutralWinRate(string) float64 { return 0.5 }

func neutralMarketFit(domain.Signal) float64 { return 0.5 }

func neutralWinLoss(accountID, symbol string) risk.WinLossStats {
	return risk.WinLossStats{WinRate: 0.5, AvgWinLossRatio: 1.0}
}

// tickSizeLookup builds a signalgen.TickSizeLookup backed by one eligible
// account's ExchangeInfo call, cached per symbol for the process lifetime
// since tick sizes don't change within a deployment's uptime.
func tickSizeLookup(accountsStore *accounts.Store, callTimeout time.Duration) signalgen.TickSizeLookup {
	var mu sync.Mutex
	cache := make(map[string]float64)

	return func(symbol string) float64 {
		mu.Lock()
		if v, ok := cache[symbol]; ok {
			mu.Unlock()
			return v
		}
		mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()

		accts, err := accountsStore.ListEligibleAccounts(ctx)
		if err != nil || len(accts) == 0 {
			return 0
		}
		client, err := accountsStore.FetchDecryptedClient(ctx, accts[0].ID)
		if err != nil {
			return 0
		}
		info, err := client.ExchangeInfo(ctx, symbol)
		if err != nil {
			return 0
		}

		mu.Lock()
		cache[symbol] = info.TickSize
		mu.Unlock()
		return info.TickSize
	}
}

func runReport(ctx context.Context, db *store.Store) {
	stats, err := db.DailyStats(ctx)
	if err != nil {
		slog.Error("failed to compute daily report", "err", err)
		os.Exit(1)
	}
	notify.DailyReport(os.Stdout, stats)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
