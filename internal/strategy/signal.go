package strategy

import (
	"github.com/rxtech-lab/trendbox/internal/types"
)

// DefaultTrailingATRMult is the trailing distance when trailing is enabled
// without an explicit multiple.
const DefaultTrailingATRMult = 1.5

// SignalConfig controls the signal generator's exit policy.
type SignalConfig struct {
	// ExitOnRegimeFlip closes an open position when the regime flips to the
	// opposite trend. Flipping to RANGE_BOUND does not exit; only the stop,
	// the target, or an opposite trend regime does.
	ExitOnRegimeFlip bool `yaml:"exit_on_regime_flip"`
	// TrailingStop ratchets the protective stop behind the close as the
	// trade moves into profit. Off by default.
	TrailingStop bool `yaml:"trailing_stop"`
	// TrailingATRMult is the trailing distance in ATR multiples.
	TrailingATRMult float64 `yaml:"trailing_atr_mult"`
}

// SignalGenerator fuses the big trend, the market regime and the current
// position into at most one signal per bar evaluation.
//
// Entries require the big trend and the regime to agree while the symbol is
// flat. Box-interior mean-reversion entries are disabled: RANGE_BOUND alone
// never produces a signal.
type SignalGenerator struct {
	cfg SignalConfig
}

// NewSignalGenerator creates a signal generator.
func NewSignalGenerator(cfg SignalConfig) *SignalGenerator {
	if cfg.TrailingATRMult <= 0 {
		cfg.TrailingATRMult = DefaultTrailingATRMult
	}

	return &SignalGenerator{cfg: cfg}
}

// TrailStop returns the ratcheted stop for an open position and whether it
// tightened. The stop only ever moves in the trade's favor; a candidate that
// would loosen the stop is discarded. Positions without a stop are left
// alone.
func (g *SignalGenerator) TrailStop(pos types.Position, close, atr float64) (float64, bool) {
	if !g.cfg.TrailingStop || pos.Status != types.PositionStatusOpen || pos.StopLoss <= 0 || atr <= 0 {
		return pos.StopLoss, false
	}

	distance := g.cfg.TrailingATRMult * atr

	switch pos.Side {
	case types.PositionSideLong:
		if candidate := close - distance; candidate > pos.StopLoss {
			return candidate, true
		}
	case types.PositionSideShort:
		if candidate := close + distance; candidate < pos.StopLoss {
			return candidate, true
		}
	}

	return pos.StopLoss, false
}

// Evaluation is the input of one bar evaluation.
type Evaluation struct {
	Bar      types.Bar
	BigTrend types.BigTrend
	Regime   types.MarketRegime
	Position types.Position
}

// Evaluate returns the signal for this bar, or a no-action signal.
func (g *SignalGenerator) Evaluate(in Evaluation) types.Signal {
	if in.Position.Status == types.PositionStatusOpen {
		return g.evaluateExit(in)
	}

	if !in.Position.IsFlat() {
		// An order is in flight; nothing to decide until it resolves.
		return noAction(in.Bar)
	}

	switch {
	case in.BigTrend == types.BigTrendBullish && in.Regime == types.RegimeTrendingUp:
		return types.Signal{
			Time:           in.Bar.CloseTime,
			Kind:           types.SignalKindEnterLong,
			Reason:         types.SignalReasonTrendEntry,
			ReferencePrice: in.Bar.Close,
			Symbol:         in.Bar.Symbol,
		}
	case in.BigTrend == types.BigTrendBearish && in.Regime == types.RegimeTrendingDown:
		return types.Signal{
			Time:           in.Bar.CloseTime,
			Kind:           types.SignalKindEnterShort,
			Reason:         types.SignalReasonTrendEntry,
			ReferencePrice: in.Bar.Close,
			Symbol:         in.Bar.Symbol,
		}
	default:
		return noAction(in.Bar)
	}
}

func (g *SignalGenerator) evaluateExit(in Evaluation) types.Signal {
	close := in.Bar.Close
	pos := in.Position

	exit := func(reason string) types.Signal {
		return types.Signal{
			Time:           in.Bar.CloseTime,
			Kind:           types.SignalKindExit,
			Reason:         reason,
			ReferencePrice: close,
			Symbol:         in.Bar.Symbol,
		}
	}

	switch pos.Side {
	case types.PositionSideLong:
		if pos.StopLoss > 0 && close <= pos.StopLoss {
			return exit(types.SignalReasonStopLoss)
		}

		if pos.TakeProfit > 0 && close >= pos.TakeProfit {
			return exit(types.SignalReasonTakeProfit)
		}

		if g.cfg.ExitOnRegimeFlip && in.Regime == types.RegimeTrendingDown {
			return exit(types.SignalReasonRegimeFlip)
		}
	case types.PositionSideShort:
		if pos.StopLoss > 0 && close >= pos.StopLoss {
			return exit(types.SignalReasonStopLoss)
		}

		if pos.TakeProfit > 0 && close <= pos.TakeProfit {
			return exit(types.SignalReasonTakeProfit)
		}

		if g.cfg.ExitOnRegimeFlip && in.Regime == types.RegimeTrendingUp {
			return exit(types.SignalReasonRegimeFlip)
		}
	}

	return noAction(in.Bar)
}

func noAction(bar types.Bar) types.Signal {
	return types.Signal{
		Time:           bar.CloseTime,
		Kind:           types.SignalKindNoAction,
		ReferencePrice: bar.Close,
		Symbol:         bar.Symbol,
	}
}
