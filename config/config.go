package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration for the trading core.
type Config struct {
	Cycle      CycleConfig      `yaml:"cycle"`
	Risk       RiskConfig       `yaml:"risk"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Accounts   AccountsConfig   `yaml:"accounts"`
	Universe   UniverseConfig   `yaml:"universe"`
}

// UniverseConfig lists the (symbol, timeframe) pairs the Signal Generator
// scans every cycle.
type UniverseConfig struct {
	Symbols    []string `yaml:"symbols"`
	Timeframes []string `yaml:"timeframes"`
}

// CycleConfig controls the scheduler's tick/deadline/cooldown behavior
// (spec §6.7).
type CycleConfig struct {
	IntervalSeconds      int     `yaml:"interval_seconds"`       // cycleInterval
	DeadlineSeconds      int     `yaml:"deadline_seconds"`       // cycleDeadline
	CooldownSeconds      int     `yaml:"cooldown_seconds"`       // cycleCooldown
	ExecutorDeadlineSecs int     `yaml:"executor_deadline_secs"` // executorDeadline
	MinSignalStoreScore  float64 `yaml:"min_signal_store_score"`
	MinSelectorScore     float64 `yaml:"min_selector_score"`
	MaxSignalAgeHours    float64 `yaml:"max_signal_age_hours"`
	AnalysisWorkers      int     `yaml:"analysis_workers"` // 0 = NumCPU*2
}

// RiskConfig holds portfolio- and policy-level thresholds checked by the
// Risk Manager (spec §4.3, §6.7).
type RiskConfig struct {
	MaxConcurrentPositions int     `yaml:"max_concurrent_positions"`
	MaxDailySignals        int     `yaml:"max_daily_signals"`
	MaxDailyLossGlobal     float64 `yaml:"max_daily_loss_global"`
	MaxVolatility          float64 `yaml:"max_volatility"`
	MinVolume24h           float64 `yaml:"min_volume_24h"`
	QualityOverrideScore   float64 `yaml:"quality_override_score"`
	DefaultKellyFraction   float64 `yaml:"default_kelly_fraction"`
}

// ExchangeConfig contains the exchange API base configuration.
type ExchangeConfig struct {
	Testnet            bool `yaml:"testnet"`
	CallTimeoutSeconds int  `yaml:"call_timeout_seconds"` // exchangeCallTimeout
}

// StorageConfig controls where data is persisted.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // path to the SQLite file, or ":memory:"
}

// LogConfig controls logging level and format.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// TelegramConfig configures the optional Telegram notifier.
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	ChatID  int64  `yaml:"chat_id"`
	Token   string `yaml:"-"` // always read from env, never from the YAML file
}

// AccountsConfig controls how environment-configured accounts are discovered.
type AccountsConfig struct {
	CredentialSlotPrefix string `yaml:"credential_slot_prefix"`
	MaxSlots              int    `yaml:"max_slots"`
}

// Load reads the YAML config file and an optional .env file. Env vars
// override YAML values for the keys that carry secrets or deployment-time
// overrides (log level/format, Telegram token).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// CycleInterval returns the scheduler tick as a time.Duration.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.Cycle.IntervalSeconds) * time.Second
}

// CycleDeadline returns the per-cycle wallclock budget.
func (c *Config) CycleDeadline() time.Duration {
	return time.Duration(c.Cycle.DeadlineSeconds) * time.Second
}

// CycleCooldown returns the selector's throttle window.
func (c *Config) CycleCooldown() time.Duration {
	return time.Duration(c.Cycle.CooldownSeconds) * time.Second
}

// ExecutorDeadline returns the fan-out wallclock budget.
func (c *Config) ExecutorDeadline() time.Duration {
	return time.Duration(c.Cycle.ExecutorDeadlineSecs) * time.Second
}

// ExchangeCallTimeout returns the per-exchange-call timeout.
func (c *Config) ExchangeCallTimeout() time.Duration {
	return time.Duration(c.Exchange.CallTimeoutSeconds) * time.Second
}

// MaxSignalAge returns the age after which active signals expire.
func (c *Config) MaxSignalAge() time.Duration {
	return time.Duration(c.Cycle.MaxSignalAgeHours * float64(time.Hour))
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Cycle.IntervalSeconds <= 0 {
		cfg.Cycle.IntervalSeconds = 60
	}
	if cfg.Cycle.DeadlineSeconds <= 0 {
		cfg.Cycle.DeadlineSeconds = 60
	}
	if cfg.Cycle.CooldownSeconds <= 0 {
		cfg.Cycle.CooldownSeconds = 300
	}
	if cfg.Cycle.ExecutorDeadlineSecs <= 0 {
		cfg.Cycle.ExecutorDeadlineSecs = 30
	}
	if cfg.Cycle.MinSignalStoreScore <= 0 {
		cfg.Cycle.MinSignalStoreScore = 0.65
	}
	if cfg.Cycle.MinSelectorScore <= 0 {
		cfg.Cycle.MinSelectorScore = 0.65
	}
	if cfg.Cycle.MaxSignalAgeHours <= 0 {
		cfg.Cycle.MaxSignalAgeHours = 24
	}
	if cfg.Risk.MaxConcurrentPositions <= 0 {
		cfg.Risk.MaxConcurrentPositions = 5
	}
	if cfg.Risk.MaxDailySignals <= 0 {
		cfg.Risk.MaxDailySignals = 10
	}
	if cfg.Risk.MaxDailyLossGlobal <= 0 {
		cfg.Risk.MaxDailyLossGlobal = 0.20
	}
	if cfg.Risk.MaxVolatility <= 0 {
		cfg.Risk.MaxVolatility = 0.15
	}
	if cfg.Risk.MinVolume24h <= 0 {
		cfg.Risk.MinVolume24h = 1_000_000
	}
	if cfg.Risk.QualityOverrideScore <= 0 {
		cfg.Risk.QualityOverrideScore = 0.90
	}
	if cfg.Risk.DefaultKellyFraction <= 0 {
		cfg.Risk.DefaultKellyFraction = 0.5
	}
	if cfg.Exchange.CallTimeoutSeconds <= 0 {
		cfg.Exchange.CallTimeoutSeconds = 10
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "cryptosignal.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Accounts.CredentialSlotPrefix == "" {
		cfg.Accounts.CredentialSlotPrefix = "CREDENTIAL_SLOT_"
	}
	if cfg.Accounts.MaxSlots <= 0 {
		cfg.Accounts.MaxSlots = 10
	}
	if len(cfg.Universe.Symbols) == 0 {
		cfg.Universe.Symbols = []string{"BTCUSDT", "ETHUSDT"}
	}
	if len(cfg.Universe.Timeframes) == 0 {
		cfg.Universe.Timeframes = []string{"1h", "4h", "1d"}
	}
}
