// Package indicator computes rolling exponential moving averages and the
// average true range over an ordered bar sequence. Updates are O(1) per bar;
// history is never re-scanned.
package indicator

import (
	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
)

// Default periods, matching the strategy's 4h-timeframe configuration.
const (
	DefaultFastPeriod  = 20
	DefaultSlowPeriod  = 100
	DefaultTrendPeriod = 20
	DefaultATRPeriod   = 14
)

// Config holds the periods for the derived series.
type Config struct {
	FastPeriod  int `yaml:"fast_period"`
	SlowPeriod  int `yaml:"slow_period"`
	TrendPeriod int `yaml:"trend_period"`
	ATRPeriod   int `yaml:"atr_period"`
}

func (c *Config) setDefaults() {
	if c.FastPeriod <= 0 {
		c.FastPeriod = DefaultFastPeriod
	}

	if c.SlowPeriod <= 0 {
		c.SlowPeriod = DefaultSlowPeriod
	}

	if c.TrendPeriod <= 0 {
		c.TrendPeriod = DefaultTrendPeriod
	}

	if c.ATRPeriod <= 0 {
		c.ATRPeriod = DefaultATRPeriod
	}
}

func (c *Config) validate() error {
	if c.FastPeriod >= c.SlowPeriod {
		return errors.Newf(errors.ErrCodeInvalidPeriod,
			"fast period (%d) must be smaller than slow period (%d)", c.FastPeriod, c.SlowPeriod)
	}

	return nil
}

// Engine maintains the EMA and ATR series for one symbol. Not safe for
// concurrent use; each symbol worker owns its own engine.
type Engine struct {
	symbol   string
	cfg      Config
	emaFast  *ema
	emaSlow  *ema
	emaTrend *ema
	atr      *atr
	count    int
	last     types.IndicatorSnapshot
}

// NewEngine creates an indicator engine for one symbol.
func NewEngine(symbol string, cfg Config) (*Engine, error) {
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Engine{
		symbol:   symbol,
		cfg:      cfg,
		emaFast:  newEMA(cfg.FastPeriod),
		emaSlow:  newEMA(cfg.SlowPeriod),
		emaTrend: newEMA(cfg.TrendPeriod),
		atr:      newATR(cfg.ATRPeriod),
	}, nil
}

// Reset discards all accumulated series state. Used when the bar sequence
// breaks and history must be replayed from scratch.
func (e *Engine) Reset() {
	e.emaFast = newEMA(e.cfg.FastPeriod)
	e.emaSlow = newEMA(e.cfg.SlowPeriod)
	e.emaTrend = newEMA(e.cfg.TrendPeriod)
	e.atr = newATR(e.cfg.ATRPeriod)
	e.count = 0
	e.last = types.IndicatorSnapshot{}
}

// WarmupBars is the number of bars required before Update and Latest stop
// reporting insufficient history. Classification must not run before then.
func (e *Engine) WarmupBars() int {
	return e.cfg.SlowPeriod
}

// BarCount is the number of bars observed so far.
func (e *Engine) BarCount() int {
	return e.count
}

// Update folds one closed bar into the derived series and returns the
// snapshot for that bar. Returns an InsufficientHistoryError until
// WarmupBars bars have been observed; the series still advance during
// warm-up, only the snapshot is withheld.
func (e *Engine) Update(bar types.Bar) (types.IndicatorSnapshot, error) {
	e.emaFast.update(bar.Close)
	e.emaSlow.update(bar.Close)
	e.emaTrend.update(bar.Close)
	e.atr.update(bar)
	e.count++

	if !e.warm() {
		return types.IndicatorSnapshot{}, errors.NewInsufficientHistoryError(
			e.WarmupBars(), e.count, e.symbol,
			"indicator warm-up incomplete",
		)
	}

	e.last = types.IndicatorSnapshot{
		Time:     bar.CloseTime,
		EMAFast:  e.emaFast.value,
		EMASlow:  e.emaSlow.value,
		EMATrend: e.emaTrend.value,
		ATR:      e.atr.value(),
	}

	return e.last, nil
}

// Latest returns the snapshot of the most recent bar, or an
// InsufficientHistoryError if warm-up is not complete.
func (e *Engine) Latest() (types.IndicatorSnapshot, error) {
	if !e.warm() {
		return types.IndicatorSnapshot{}, errors.NewInsufficientHistoryError(
			e.WarmupBars(), e.count, e.symbol,
			"indicator warm-up incomplete",
		)
	}

	return e.last, nil
}

func (e *Engine) warm() bool {
	return e.count >= e.WarmupBars() && e.emaSlow.ready() && e.atr.ready()
}
