package signalgen

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

// Pair is one (symbol, timeframe) unit of analysis work.
type Pair struct {
	Symbol    string
	Timeframe domain.Timeframe
}

// ScanAll runs Analyze over every pair concurrently using a bounded worker
// pool of min(cfg.Workers, len(pairs)) goroutines. Workers defaults to
// runtime.NumCPU()*2 when cfg.Workers <= 0.
func (g *Generator) ScanAll(ctx context.Context, pairs []Pair, bars ports.BarStore, limit int) []domain.Signal {
	workers := g.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if workers > len(pairs) && len(pairs) > 0 {
		workers = len(pairs)
	}

	workCh := make(chan Pair, len(pairs))
	resultCh := make(chan domain.Signal, len(pairs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range workCh {
				barSlice, err := bars.ReadBars(ctx, p.Symbol, p.Timeframe, limit)
				if err != nil {
					slog.Warn("signalgen: read bars failed", "symbol", p.Symbol, "timeframe", p.Timeframe, "err", err)
					continue
				}
				signal, err := g.Analyze(ctx, p.Symbol, p.Timeframe, barSlice)
				if err != nil {
					slog.Error("signalgen: analyze failed", "symbol", p.Symbol, "timeframe", p.Timeframe, "err", err)
					continue
				}
				if signal != nil {
					resultCh <- *signal
				}
			}
		}()
	}

	for _, p := range pairs {
		workCh <- p
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	signals := make([]domain.Signal, 0, len(pairs))
	for s := range resultCh {
		signals = append(signals, s)
	}
	return signals
}
