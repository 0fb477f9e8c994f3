// Package accounts resolves the executor's account universe from two
// sources merged by account id (spec §4.4 protocol step 1): environment
// credential slots, and accounts configured in the store. Grounded on
// sniperterminal's config/loader.go env-var reading style, generalized
// from its single hardcoded BINANCE_API_KEY/SECRET pair to N numbered
// slots.
package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/alejandrodnm/cryptosignal/internal/adapters/exchange"
	"github.com/alejandrodnm/cryptosignal/internal/domain"
	"github.com/alejandrodnm/cryptosignal/internal/ports"
)

// DailyStatsLookup feeds the daily-loss breaker (spec §3.1): callers
// compute today's realized PnL and trade count for an account from the
// Order store.
type DailyStatsLookup func(ctx context.Context, accountID string) (realizedPnL float64, tradesCount int, err error)

// Store implements ports.AccountStore over environment-configured
// credential slots plus an optional store-backed loader for accounts
// provisioned at runtime (spec §6.4's "store-configured accounts" path).
// Exchange clients are constructed once per account and cached, since
// they carry SDK-internal precision caches worth keeping warm across
// cycles.
type Store struct {
	slotPrefix string
	maxSlots   int
	testnet    bool

	storeLoader AccountRecordLoader
	dailyStats  DailyStatsLookup

	mu      sync.Mutex
	clients map[string]ports.ExchangeClient
}

// AccountRecordLoader is the store-backed half of the merge: accounts
// provisioned through the application (not the environment) with
// credentials opaquely resolvable by account id. Until a persisted
// accounts table exists, NoStoreAccounts satisfies this with an empty set.
type AccountRecordLoader interface {
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	DecryptedClient(ctx context.Context, accountID string) (ports.ExchangeClient, error)
}

// NoStoreAccounts is the stub AccountRecordLoader used when no
// store-configured accounts table is wired up yet; every account in this
// deployment comes from environment slots.
type NoStoreAccounts struct{}

func (NoStoreAccounts) ListAccounts(context.Context) ([]domain.Account, error) { return nil, nil }
func (NoStoreAccounts) DecryptedClient(context.Context, string) (ports.ExchangeClient, error) {
	return nil, fmt.Errorf("accounts: no store-configured account loader wired")
}

// New builds an AccountStore reading up to maxSlots credential slots named
// slotPrefix+N from the environment, merged with storeLoader's accounts.
// dailyStats may be nil, in which case every account is treated as having
// zero realized PnL/trades today (the daily-loss breaker never trips).
func New(slotPrefix string, maxSlots int, testnet bool, storeLoader AccountRecordLoader, dailyStats DailyStatsLookup) *Store {
	if storeLoader == nil {
		storeLoader = NoStoreAccounts{}
	}
	if dailyStats == nil {
		dailyStats = func(context.Context, string) (float64, int, error) { return 0, 0, nil }
	}
	return &Store{
		slotPrefix:  slotPrefix,
		maxSlots:    maxSlots,
		testnet:     testnet,
		storeLoader: storeLoader,
		dailyStats:  dailyStats,
		clients:     make(map[string]ports.ExchangeClient),
	}
}

// ListEligibleAccounts returns every account (env slot or store-backed)
// with credentials present and the full eligibility invariant satisfied:
// isActive ∧ isVerified ∧ autoTradeEnabled ∧ ¬dailyLossTripped (spec §3.1).
// Env accounts are merged by account id with store-configured accounts
// taking precedence on a collision.
func (s *Store) ListEligibleAccounts(ctx context.Context) ([]domain.Account, error) {
	merged := make(map[string]domain.Account)

	for _, account := range s.envAccounts() {
		merged[account.ID] = account
	}

	storeAccounts, err := s.storeLoader.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("accounts: list store accounts: %w", err)
	}
	for _, account := range storeAccounts {
		merged[account.ID] = account
	}

	out := make([]domain.Account, 0, len(merged))
	for _, account := range merged {
		realizedPnL, trades, err := s.dailyStats(ctx, account.ID)
		if err != nil {
			slog.Warn("accounts: daily stats lookup failed, treating as zero", "account_id", account.ID, "err", err)
		} else {
			account.TodayRealizedPnL = realizedPnL
			account.TodayTradesCount = trades
		}
		if account.Eligible() {
			out = append(out, account)
		}
	}
	return out, nil
}

// FetchDecryptedClient returns a cached, authenticated ExchangeClient for
// accountID, constructing one on first use.
func (s *Store) FetchDecryptedClient(ctx context.Context, accountID string) (ports.ExchangeClient, error) {
	s.mu.Lock()
	client, ok := s.clients[accountID]
	s.mu.Unlock()
	if ok {
		return client, nil
	}

	for _, account := range s.envAccounts() {
		if account.ID != accountID {
			continue
		}
		apiKey, secret := s.slotCredentials(account.ID)
		client := exchange.NewClient(apiKey, secret, account.MarketType, s.testnet)
		s.mu.Lock()
		s.clients[accountID] = client
		s.mu.Unlock()
		return client, nil
	}

	client, err := s.storeLoader.DecryptedClient(ctx, accountID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.clients[accountID] = client
	s.mu.Unlock()
	return client, nil
}

// envAccounts scans CREDENTIAL_SLOT_1 .. CREDENTIAL_SLOT_maxSlots and
// builds a domain.Account for every slot with both API_KEY and SECRET set.
func (s *Store) envAccounts() []domain.Account {
	var out []domain.Account
	for n := 1; n <= s.maxSlots; n++ {
		prefix := fmt.Sprintf("%s%d_", s.slotPrefix, n)
		apiKey := os.Getenv(prefix + "API_KEY")
		secret := os.Getenv(prefix + "API_SECRET")
		if apiKey == "" || secret == "" {
			continue
		}

		out = append(out, domain.Account{
			ID:               fmt.Sprintf("env-slot-%d", n),
			Label:            envOrDefault(prefix+"LABEL", fmt.Sprintf("slot-%d", n)),
			MarketType:       marketTypeFromEnv(prefix + "MARKET_TYPE"),
			Policy:           policyFromEnv(prefix),
			IsActive:         envBool(prefix+"ENABLED", true),
			IsVerified:       envBool(prefix+"IS_VERIFIED", true),
			AutoTradeEnabled: envBool(prefix+"AUTO_TRADE_ENABLED", true),
		})
	}
	return out
}

func (s *Store) slotCredentials(accountID string) (apiKey, secret string) {
	var n int
	if _, err := fmt.Sscanf(accountID, "env-slot-%d", &n); err != nil {
		return "", ""
	}
	prefix := fmt.Sprintf("%s%d_", s.slotPrefix, n)
	return os.Getenv(prefix + "API_KEY"), os.Getenv(prefix + "API_SECRET")
}

func marketTypeFromEnv(key string) domain.MarketType {
	switch strings.ToUpper(os.Getenv(key)) {
	case "SPOT":
		return domain.MarketSpot
	case "BOTH":
		return domain.MarketBoth
	default:
		return domain.MarketFutures
	}
}

func policyFromEnv(prefix string) domain.PolicyEnvelope {
	return domain.PolicyEnvelope{
		SizingMode:          sizingModeFromEnv(prefix + "SIZING_MODE"),
		FixedSize:           envFloat(prefix+"FIXED_SIZE", 50),
		BalancePercent:      envFloat(prefix+"BALANCE_PERCENT", 0.02),
		KellyFraction:       envFloat(prefix+"KELLY_FRACTION", 0.5),
		MaxLeverage:         envFloat(prefix+"MAX_LEVERAGE", 5),
		MaxOpenPositions:    envInt(prefix+"MAX_OPEN_POSITIONS", 3),
		MaxDailyLoss:        envFloat(prefix+"MAX_DAILY_LOSS", 0.10),
		StopOnDailyLoss:     envBool(prefix+"STOP_ON_DAILY_LOSS", true),
		MaxDailySignals:     envInt(prefix+"MAX_DAILY_SIGNALS", 10),
		MaxRiskPerTrade:     envFloat(prefix+"MAX_RISK_PER_TRADE", 0.02),
		MinScore:            envFloat(prefix+"MIN_SCORE", 0.65),
		AllowedSymbols:      envList(prefix + "ALLOWED_SYMBOLS"),
		MaxPositionNotional: envFloat(prefix+"MAX_POSITION_NOTIONAL", 5000),
	}
}

func sizingModeFromEnv(key string) domain.SizingMode {
	switch strings.ToUpper(os.Getenv(key)) {
	case "PERCENT_BALANCE":
		return domain.SizingPercentBalance
	case "KELLY":
		return domain.SizingKelly
	default:
		return domain.SizingFixed
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
