package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mwagner-dev/wheelengine/internal/chain"
	"github.com/mwagner-dev/wheelengine/internal/pipeline"
)

// Config is the full configuration for a wheel engine process.
type Config struct {
	Strategy StrategyConfig `yaml:"strategy"`
	Broker   BrokerConfig   `yaml:"broker"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// StrategyConfig carries every pipeline threshold named in the
// component design: universe membership, the Stage 1/2/4 gap and
// liquidity bounds, the Stage 7 option chain criteria, and the
// Stage 8/9 sizing caps.
type StrategyConfig struct {
	Universe []string `yaml:"universe"`

	MinStockPrice float64 `yaml:"min_stock_price"`
	MaxStockPrice float64 `yaml:"max_stock_price"`
	MinAvgVolume  float64 `yaml:"min_avg_volume"`

	MaxGapFreq              float64 `yaml:"max_gap_freq"`
	MaxHistoricalVolatility float64 `yaml:"max_historical_volatility"`
	MaxOvernightGapPercent  float64 `yaml:"max_overnight_gap_percent"`

	ExecutionGapThreshold float64 `yaml:"execution_gap_threshold"`

	TargetDTE      int     `yaml:"target_dte"`
	MinPremium     float64 `yaml:"min_premium"`
	DeltaMin       float64 `yaml:"delta_min"`
	DeltaMax       float64 `yaml:"delta_max"`
	MinOpenInterest int64  `yaml:"min_open_interest"`

	MaxExposurePerTicker   float64 `yaml:"max_exposure_per_ticker"`
	MaxPortfolioAllocation float64 `yaml:"max_portfolio_allocation"`
	MaxTotalPositions      int     `yaml:"max_total_positions"`

	MaxEvaluated            *int `yaml:"max_evaluated"`
	MaxNewPositionsPerCycle *int `yaml:"max_new_positions_per_cycle"`

	OpportunityMaxAgeMinutes int     `yaml:"opportunity_max_age_minutes"`
	ProfitTargetPercent      float64 `yaml:"profit_target_percent"`
	SlippageFactor           float64 `yaml:"slippage_factor"`

	// CircuitBreakerMaxFailures/CooldownMinutes configure the order
	// executor's consecutive-failure safety net. Not part of the
	// documented stage table; an additive guard on top of it.
	CircuitBreakerMaxFailures   int `yaml:"circuit_breaker_max_failures"`
	CircuitBreakerCooldownMins int `yaml:"circuit_breaker_cooldown_minutes"`
}

// OpportunityMaxAge returns the Store retrieval window as a duration.
func (s StrategyConfig) OpportunityMaxAge() time.Duration {
	return time.Duration(s.OpportunityMaxAgeMinutes) * time.Minute
}

// ToPipelineConfig translates the YAML-facing StrategyConfig into the
// pipeline's internal Config, applying the max_evaluated/max_new_positions
// zero-means-null convention at the boundary rather than inside the
// pipeline itself.
func (s StrategyConfig) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.Config{
		Universe:                s.Universe,
		MinStockPrice:           s.MinStockPrice,
		MaxStockPrice:           s.MaxStockPrice,
		MinAvgVolume:            s.MinAvgVolume,
		MaxGapFrequency:         s.MaxGapFreq,
		MaxHistoricalVolatility: s.MaxHistoricalVolatility,
		MaxOvernightGapPercent:  s.MaxOvernightGapPercent,
		ExecutionGapThreshold:   s.ExecutionGapThreshold,
		Chain: chain.Criteria{
			TargetDTE:       s.TargetDTE,
			MinPremium:      s.MinPremium,
			DeltaMin:        s.DeltaMin,
			DeltaMax:        s.DeltaMax,
			MinOpenInterest: s.MinOpenInterest,
		},
		MaxExposurePerTicker:   s.MaxExposurePerTicker,
		MaxPortfolioAllocation: s.MaxPortfolioAllocation,
		MaxTotalPositions:      s.MaxTotalPositions,
		SlippageFactor:         s.SlippageFactor,
		OpportunityMaxAge:      s.OpportunityMaxAge(),
	}
	if s.MaxEvaluated != nil && *s.MaxEvaluated > 0 {
		cfg.MaxEvaluated = s.MaxEvaluated
	}
	if s.MaxNewPositionsPerCycle != nil && *s.MaxNewPositionsPerCycle > 0 {
		cfg.MaxNewPositionsPerCycle = s.MaxNewPositionsPerCycle
	}
	return cfg
}

// BrokerConfig selects and authenticates the broker adapter. APIKey
// and APISecret are read from the environment, never from the YAML
// file, so a config file is safe to commit.
type BrokerConfig struct {
	Kind         string  `yaml:"kind"` // "alpaca" | "paper"
	Paper        bool    `yaml:"paper"`
	APIKey       string  `yaml:"-"`
	APISecret    string  `yaml:"-"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

// StorageConfig controls where the Opportunity Store keeps its blob
// files and its SQLite read-acceleration index, plus the separate
// operational databases (cycle history, circuit breaker state) that
// back cmd/wheelreport and executor restart recovery.
type StorageConfig struct {
	BlobDir          string `yaml:"blob_dir"`
	IndexPath        string `yaml:"index_path"`
	CycleLogPath     string `yaml:"cycle_log_path"`
	BreakerStatePath string `yaml:"breaker_state_path"`
}

// ServerConfig controls the HTTP entrypoints.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// LogConfig controls structured-logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML config at path and layers .env / environment
// overrides on top. Broker credentials always come from the
// environment regardless of what the YAML file sets.
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

func applyEnvOverrides(cfg *Config) {
	cfg.Broker.APIKey = os.Getenv("ALPACA_API_KEY")
	cfg.Broker.APISecret = os.Getenv("ALPACA_API_SECRET")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BROKER_KIND"); v != "" {
		cfg.Broker.Kind = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Strategy.OpportunityMaxAgeMinutes <= 0 {
		cfg.Strategy.OpportunityMaxAgeMinutes = 30
	}
	if cfg.Strategy.ProfitTargetPercent <= 0 {
		cfg.Strategy.ProfitTargetPercent = 0.5
	}
	if cfg.Strategy.SlippageFactor <= 0 {
		cfg.Strategy.SlippageFactor = 0.01
	}
	if cfg.Strategy.CircuitBreakerMaxFailures <= 0 {
		cfg.Strategy.CircuitBreakerMaxFailures = 3
	}
	if cfg.Strategy.CircuitBreakerCooldownMins <= 0 {
		cfg.Strategy.CircuitBreakerCooldownMins = 60
	}
	if cfg.Broker.Kind == "" {
		cfg.Broker.Kind = "paper"
	}
	if cfg.Broker.RateLimitRPS <= 0 {
		cfg.Broker.RateLimitRPS = 3
	}
	if cfg.Storage.BlobDir == "" {
		cfg.Storage.BlobDir = "data"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "wheelengine_index.db"
	}
	if cfg.Storage.CycleLogPath == "" {
		cfg.Storage.CycleLogPath = "wheelengine_cycles.db"
	}
	if cfg.Storage.BreakerStatePath == "" {
		cfg.Storage.BreakerStatePath = "wheelengine_breaker.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.TimeoutSeconds <= 0 {
		cfg.Server.TimeoutSeconds = 300
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
