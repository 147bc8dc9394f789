package strategy

import (
	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
)

// DefaultRegimeConfirmationBars is how many consecutive bars must sit fully
// on one side of the trend EMA before a trend regime is considered.
const DefaultRegimeConfirmationBars = 3

// RegimeConfig controls the regime detector.
type RegimeConfig struct {
	ConfirmationBars int `yaml:"confirmation_bars"`
}

// RegimeDetector classifies the market regime from the last ConfirmationBars
// bars and the box. The box breakout is a confirmation gate, not a standalone
// trigger: a clean EMA-side run that has not cleared the band is reported as
// range-bound, which intentionally suppresses trades on trend moves still
// inside the historical range.
type RegimeDetector struct {
	cfg RegimeConfig
}

// NewRegimeDetector creates a regime detector.
func NewRegimeDetector(cfg RegimeConfig) *RegimeDetector {
	if cfg.ConfirmationBars <= 0 {
		cfg.ConfirmationBars = DefaultRegimeConfirmationBars
	}

	return &RegimeDetector{cfg: cfg}
}

// Detect classifies the regime. bars and snapshots must be aligned (same
// ordering and length) and hold at least ConfirmationBars entries.
//
// A bar whose low is above its trend EMA counts toward "all above"; a bar
// whose high is below counts toward "all below"; a bar touching or crossing
// the EMA disqualifies both sides.
func (d *RegimeDetector) Detect(bars []types.Bar, snapshots []types.IndicatorSnapshot, box Box) (types.MarketRegime, error) {
	if len(bars) != len(snapshots) {
		return "", errors.Newf(errors.ErrCodeInvalidParameter,
			"bars (%d) and snapshots (%d) are not aligned", len(bars), len(snapshots))
	}

	n := d.cfg.ConfirmationBars
	if len(bars) < n {
		return "", errors.NewInsufficientHistoryError(
			n, len(bars), symbolOf(bars),
			"not enough bars for regime confirmation",
		)
	}

	window := bars[len(bars)-n:]
	emas := snapshots[len(snapshots)-n:]

	allAbove := true
	allBelow := true

	for i, bar := range window {
		trendEMA := emas[i].EMATrend

		if bar.Low <= trendEMA {
			allAbove = false
		}

		if bar.High >= trendEMA {
			allBelow = false
		}
	}

	close := window[len(window)-1].Close

	switch {
	case allAbove && close > box.High:
		return types.RegimeTrendingUp, nil
	case allBelow && close < box.Low:
		return types.RegimeTrendingDown, nil
	default:
		return types.RegimeRangeBound, nil
	}
}
