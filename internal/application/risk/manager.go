package risk

import (
	"context"
	"time"

	"github.com/alejandrodnm/cryptosignal/internal/domain"
)

// Config holds the thresholds the Risk Manager checks a cycle/account
// against (spec §4.3, §6.7).
type Config struct {
	MaxConcurrentPositions int
	MaxDailyLossGlobal     float64
	MaxVolatility          float64
	MinVolume24h           float64
	QualityOverrideScore   float64
	DefaultKellyFraction   float64
}

// DefaultManagerConfig matches spec.md's defaults.
func DefaultManagerConfig() Config {
	return Config{
		MaxConcurrentPositions: 5,
		MaxDailyLossGlobal:     0.20,
		MaxVolatility:          0.15,
		MinVolume24h:           1_000_000,
		QualityOverrideScore:   0.90,
		DefaultKellyFraction:   0.5,
	}
}

// Manager is the Risk Manager (spec §4.3): a pre-trade validator enforcing
// account, correlation, volatility, and exposure invariants.
type Manager struct {
	cfg Config
}

// New constructs a Manager with the given configuration.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// ValidateCycle runs the six ordered cycle-level checks from spec.md §4.3,
// returning on the first failure.
func (m *Manager) ValidateCycle(ctx context.Context, signal domain.Signal, portfolio Portfolio) domain.Decision {
	if signal.Direction != domain.DirectionLong && signal.Direction != domain.DirectionShort {
		return domain.Reject(domain.RejectMalformedSignal, "direction not LONG or SHORT")
	}
	if err := signal.ValidateLevels(); err != nil {
		return domain.Reject(domain.RejectMalformedSignal, err.Error())
	}

	if countOpen(portfolio.OpenPositions) >= m.cfg.MaxConcurrentPositions {
		return domain.Reject(domain.RejectPortfolioFull, "open position count at limit")
	}

	if portfolio.DailyRealizedLossFrac >= m.cfg.MaxDailyLossGlobal {
		return domain.Reject(domain.RejectDailyLossTripped, "today's realized loss fraction at or above limit")
	}

	if vol, ok := portfolio.Volatility24h[signal.Symbol]; ok && vol > m.cfg.MaxVolatility {
		return domain.Reject(domain.RejectVolatilityTooHigh, "24h realized volatility too high")
	}

	if m.correlationBlocks(signal, portfolio) {
		return domain.Reject(domain.RejectCorrelationTooHigh, "correlated open position trending against re-entry")
	}

	if vol24, ok := portfolio.Volume24h[signal.Symbol]; ok && vol24 < m.cfg.MinVolume24h {
		return domain.Reject(domain.RejectIlliquidSymbol, "symbol 24h volume below minimum")
	}

	return domain.Accepted()
}

// correlationBlocks implements spec.md §4.3's correlation rule: reject if an
// open position on the same symbol+side, younger than 4h, is currently
// underwater — unless the signal's score earns the quality override.
func (m *Manager) correlationBlocks(signal domain.Signal, portfolio Portfolio) bool {
	if signal.Score >= m.cfg.QualityOverrideScore {
		return false
	}
	now := time.Now()
	for _, p := range portfolio.openPositionsFor(signal.Symbol) {
		if p.Direction != signal.Direction {
			continue
		}
		if now.Sub(p.OpenedAt) >= 4*time.Hour {
			continue
		}
		if p.UnrealizedPnL <= 0 {
			return true
		}
	}
	return false
}

func countOpen(positions []domain.Position) int {
	n := 0
	for _, p := range positions {
		if p.Status == domain.PositionOpen {
			n++
		}
	}
	return n
}
