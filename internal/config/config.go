// Package config loads and validates the engine configuration from YAML.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/trendbox/internal/broker"
	"github.com/rxtech-lab/trendbox/internal/indicator"
	"github.com/rxtech-lab/trendbox/internal/notifier"
	"github.com/rxtech-lab/trendbox/internal/position"
	"github.com/rxtech-lab/trendbox/internal/risk"
	"github.com/rxtech-lab/trendbox/internal/strategy"
	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Risk defaults, from the strategy's production parameters.
const (
	DefaultRiskPerTrade        = 0.03
	DefaultMaxPositionFraction = 0.42
	DefaultPollInterval        = types.Duration(30 * time.Second)
	DefaultInterval            = "4h"
	DefaultStatePath           = "trendbox.db"
)

// RiskConfig is the per-trade risk budget.
type RiskConfig struct {
	// RiskPerTrade is the fraction of equity risked per trade.
	RiskPerTrade float64 `yaml:"risk_per_trade" validate:"gt=0,lte=1"`
	// MaxPositionFraction caps the position notional as a fraction of equity.
	MaxPositionFraction float64 `yaml:"max_position_fraction" validate:"gt=0,lte=1"`
}

// StrategyConfig groups the decision-stack knobs.
type StrategyConfig struct {
	Indicators indicator.Config        `yaml:"indicators"`
	BigTrend   strategy.BigTrendConfig `yaml:"big_trend"`
	Box        strategy.BoxConfig      `yaml:"box"`
	Regime     strategy.RegimeConfig   `yaml:"regime"`
	Signal     strategy.SignalConfig   `yaml:"signal"`
	Levels     risk.Config             `yaml:"levels"`
}

// Config is the full engine configuration.
type Config struct {
	// Symbols are the instruments to trade, each driven by its own worker.
	Symbols []string `yaml:"symbols" validate:"required,min=1,dive,required"`
	// Interval is the bar timeframe, e.g. "4h".
	Interval string `yaml:"interval"`
	// PollInterval is how often workers check for a newly closed bar.
	PollInterval types.Duration `yaml:"poll_interval"`
	// StatePath is the DuckDB file holding intents, positions and trades.
	StatePath string `yaml:"state_path"`

	Risk      RiskConfig             `yaml:"risk"`
	Strategy  StrategyConfig         `yaml:"strategy"`
	Position  position.ManagerConfig `yaml:"position"`
	Binance   broker.BinanceConfig   `yaml:"binance"`
	Notifier  *notifier.WebhookConfig `yaml:"notifier"`
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	return nil
}

func (c *Config) setDefaults() {
	if c.Interval == "" {
		c.Interval = DefaultInterval
	}

	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}

	if c.StatePath == "" {
		c.StatePath = DefaultStatePath
	}

	if c.Risk.RiskPerTrade <= 0 {
		c.Risk.RiskPerTrade = DefaultRiskPerTrade
	}

	if c.Risk.MaxPositionFraction <= 0 {
		c.Risk.MaxPositionFraction = DefaultMaxPositionFraction
	}
}

// Parse parses a YAML configuration document, applies defaults and
// validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse configuration", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read configuration file %s", path)
	}

	return Parse(data)
}
