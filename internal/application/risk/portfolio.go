package risk

import "github.com/alejandrodnm/cryptosignal/internal/domain"

// Portfolio is the read-only snapshot the Risk Manager checks a signal
// against. It is assembled by the scheduler from the Order/Position stores
// before each cycle's validateCycle call.
type Portfolio struct {
	OpenPositions         []domain.Position
	DailyRealizedLossFrac float64 // today's realized loss as a fraction of equity
	TodaySignalsExecuted  int

	// Per-symbol market data needed by the volatility/liquidity checks.
	Volatility24h map[string]float64
	Volume24h     map[string]float64
}

// openPositionsFor returns the subset of open positions matching symbol.
func (p Portfolio) openPositionsFor(symbol string) []domain.Position {
	var out []domain.Position
	for _, pos := range p.OpenPositions {
		if pos.Symbol == symbol && pos.Status == domain.PositionOpen {
			out = append(out, pos)
		}
	}
	return out
}
