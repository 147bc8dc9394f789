package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite is a test suite for configuration loading.
type ConfigTestSuite struct {
	suite.Suite
}

// TestConfigSuite runs the test suite.
func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

const minimalYAML = `
symbols:
  - BTCUSDT
binance:
  api_key: key
  secret_key: secret
`

func (suite *ConfigTestSuite) TestParseAppliesDefaults() {
	cfg, err := Parse([]byte(minimalYAML))
	suite.Require().NoError(err)

	suite.Equal([]string{"BTCUSDT"}, cfg.Symbols)
	suite.Equal(DefaultInterval, cfg.Interval)
	suite.Equal(DefaultPollInterval, cfg.PollInterval)
	suite.Equal(DefaultStatePath, cfg.StatePath)
	suite.Equal(DefaultRiskPerTrade, cfg.Risk.RiskPerTrade)
	suite.Equal(DefaultMaxPositionFraction, cfg.Risk.MaxPositionFraction)
	suite.Nil(cfg.Notifier)
}

func (suite *ConfigTestSuite) TestParseFullDocument() {
	document := `
symbols:
  - BTCUSDT
  - ETHUSDT
interval: 1h
poll_interval: 10s
state_path: /tmp/trendbox.db
risk:
  risk_per_trade: 0.01
  max_position_fraction: 0.25
strategy:
  indicators:
    fast_period: 10
    slow_period: 50
  box:
    window: 40
    escape_atr_mult: 1.5
    confirm_bars: 2
  regime:
    confirmation_bars: 4
  signal:
    exit_on_regime_flip: true
  levels:
    stop_atr_mult: 2.0
    target_atr_mult: 3.0
position:
  submit_timeout: 5s
binance:
  api_key: key
  secret_key: secret
  use_testnet: true
notifier:
  url: https://example.com/send
  token: t0k3n
`

	cfg, err := Parse([]byte(document))
	suite.Require().NoError(err)

	suite.Len(cfg.Symbols, 2)
	suite.Equal("1h", cfg.Interval)
	suite.Equal(types.Duration(10*time.Second), cfg.PollInterval)
	suite.Equal(0.01, cfg.Risk.RiskPerTrade)
	suite.Equal(10, cfg.Strategy.Indicators.FastPeriod)
	suite.Equal(40, cfg.Strategy.Box.Window)
	suite.Equal(4, cfg.Strategy.Regime.ConfirmationBars)
	suite.True(cfg.Strategy.Signal.ExitOnRegimeFlip)
	suite.Equal(2.0, cfg.Strategy.Levels.StopATRMult)
	suite.Equal(types.Duration(5*time.Second), cfg.Position.SubmitTimeout)
	suite.True(cfg.Binance.UseTestnet)
	suite.Require().NotNil(cfg.Notifier)
	suite.Equal("https://example.com/send", cfg.Notifier.URL)
}

func (suite *ConfigTestSuite) TestMissingSymbolsRejected() {
	_, err := Parse([]byte(`
binance:
  api_key: key
  secret_key: secret
`))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestRiskAboveOneRejected() {
	_, err := Parse([]byte(minimalYAML + `
risk:
  risk_per_trade: 1.5
`))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestMalformedYAMLRejected() {
	_, err := Parse([]byte("symbols: [unclosed"))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestLoadFromFile() {
	dir := suite.T().TempDir()
	path := filepath.Join(dir, "config.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte(minimalYAML), 0644))

	cfg, err := Load(path)
	suite.Require().NoError(err)
	suite.Equal([]string{"BTCUSDT"}, cfg.Symbols)
}

func (suite *ConfigTestSuite) TestLoadMissingFile() {
	_, err := Load("/nonexistent/config.yaml")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
