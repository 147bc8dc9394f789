// Package strategy implements the trendbox decision stack: the big-trend
// classifier, the support/resistance box tracker, the market-regime detector
// and the signal generator that fuses them.
package strategy

import (
	"math"

	"github.com/rxtech-lab/trendbox/internal/types"
)

// BigTrendConfig controls the optional hysteresis of the classifier. With
// the zero value the classifier flips on a single-bar EMA crossover with no
// confirmation, which is the intended default behavior. The flip-on-one-bar
// instability is a known property of that default, not a defect to fix here;
// set ConfirmBars/MinSeparation to harden it.
type BigTrendConfig struct {
	// ConfirmBars is how many consecutive snapshots the new direction must
	// hold before the classifier flips. 0 means flip immediately.
	ConfirmBars int `yaml:"confirm_bars"`
	// MinSeparation is the minimum |EMAFast-EMASlow| distance, as a fraction
	// of EMASlow, required before a flip is accepted. 0 disables the check.
	MinSeparation float64 `yaml:"min_separation"`
}

// BigTrendClassifier classifies the large-timeframe direction from the EMA
// arrangement of a single snapshot: BULLISH when the fast EMA is above the
// slow EMA, BEARISH when below. On exact equality the previous state is
// retained; there is deliberately no third state.
type BigTrendClassifier struct {
	cfg     BigTrendConfig
	current types.BigTrend
	pending types.BigTrend
	streak  int
}

// NewBigTrendClassifier creates a classifier. Until the first strict
// inequality is observed, an exact EMA tie reports BULLISH.
func NewBigTrendClassifier(cfg BigTrendConfig) *BigTrendClassifier {
	return &BigTrendClassifier{
		cfg:     cfg,
		current: types.BigTrendBullish,
	}
}

// Classify returns the big trend for the latest snapshot.
func (c *BigTrendClassifier) Classify(snap types.IndicatorSnapshot) types.BigTrend {
	var observed types.BigTrend

	switch {
	case snap.EMAFast > snap.EMASlow:
		observed = types.BigTrendBullish
	case snap.EMAFast < snap.EMASlow:
		observed = types.BigTrendBearish
	default:
		// Exact equality retains the previous state.
		c.pending = ""
		c.streak = 0

		return c.current
	}

	if observed == c.current {
		c.pending = ""
		c.streak = 0

		return c.current
	}

	if c.cfg.MinSeparation > 0 && snap.EMASlow != 0 {
		separation := math.Abs(snap.EMAFast-snap.EMASlow) / math.Abs(snap.EMASlow)
		if separation < c.cfg.MinSeparation {
			return c.current
		}
	}

	if c.cfg.ConfirmBars <= 0 {
		c.current = observed
		c.pending = ""
		c.streak = 0

		return c.current
	}

	if observed != c.pending {
		c.pending = observed
		c.streak = 0
	}

	c.streak++
	if c.streak >= c.cfg.ConfirmBars {
		c.current = observed
		c.pending = ""
		c.streak = 0
	}

	return c.current
}
