package strategy

import (
	"testing"

	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/stretchr/testify/suite"
)

// SignalGeneratorTestSuite is a test suite for the signal generator.
type SignalGeneratorTestSuite struct {
	suite.Suite
	generator *SignalGenerator
}

// TestSignalGeneratorSuite runs the test suite.
func TestSignalGeneratorSuite(t *testing.T) {
	suite.Run(t, new(SignalGeneratorTestSuite))
}

func (suite *SignalGeneratorTestSuite) SetupTest() {
	suite.generator = NewSignalGenerator(SignalConfig{ExitOnRegimeFlip: true})
}

func (suite *SignalGeneratorTestSuite) TestFlatBullishTrendingUpEntersLong() {
	bar := makeBar(0, 50900, 50600, 50800)

	sig := suite.generator.Evaluate(Evaluation{
		Bar:      bar,
		BigTrend: types.BigTrendBullish,
		Regime:   types.RegimeTrendingUp,
		Position: types.FlatPosition("BTCUSDT"),
	})

	suite.Equal(types.SignalKindEnterLong, sig.Kind)
	suite.Equal(types.SignalReasonTrendEntry, sig.Reason)
	suite.Equal(bar.Close, sig.ReferencePrice)
	suite.Equal(bar.CloseTime, sig.Time)
	suite.Equal("BTCUSDT", sig.Symbol)
}

func (suite *SignalGeneratorTestSuite) TestFlatBearishTrendingDownEntersShort() {
	sig := suite.generator.Evaluate(Evaluation{
		Bar:      makeBar(0, 49400, 49100, 49200),
		BigTrend: types.BigTrendBearish,
		Regime:   types.RegimeTrendingDown,
		Position: types.FlatPosition("BTCUSDT"),
	})

	suite.Equal(types.SignalKindEnterShort, sig.Kind)
}

func (suite *SignalGeneratorTestSuite) TestDisagreementProducesNoAction() {
	// Bullish big trend with a downside regime: no counter-trend entry.
	sig := suite.generator.Evaluate(Evaluation{
		Bar:      makeBar(0, 49400, 49100, 49200),
		BigTrend: types.BigTrendBullish,
		Regime:   types.RegimeTrendingDown,
		Position: types.FlatPosition("BTCUSDT"),
	})

	suite.Equal(types.SignalKindNoAction, sig.Kind)
}

func (suite *SignalGeneratorTestSuite) TestRangeBoundNeverEnters() {
	sig := suite.generator.Evaluate(Evaluation{
		Bar:      makeBar(0, 50900, 50600, 50800),
		BigTrend: types.BigTrendBullish,
		Regime:   types.RegimeRangeBound,
		Position: types.FlatPosition("BTCUSDT"),
	})

	suite.Equal(types.SignalKindNoAction, sig.Kind)
}

func (suite *SignalGeneratorTestSuite) TestPendingPositionBlocksSignals() {
	pos := types.FlatPosition("BTCUSDT")
	pos.Status = types.PositionStatusPendingEntry

	sig := suite.generator.Evaluate(Evaluation{
		Bar:      makeBar(0, 50900, 50600, 50800),
		BigTrend: types.BigTrendBullish,
		Regime:   types.RegimeTrendingUp,
		Position: pos,
	})

	suite.Equal(types.SignalKindNoAction, sig.Kind)
}

func openLong(stop, target float64) types.Position {
	return types.Position{
		Symbol:     "BTCUSDT",
		Side:       types.PositionSideLong,
		EntryPrice: 50000,
		Size:       0.5,
		StopLoss:   stop,
		TakeProfit: target,
		Status:     types.PositionStatusOpen,
	}
}

func openShort(stop, target float64) types.Position {
	return types.Position{
		Symbol:     "BTCUSDT",
		Side:       types.PositionSideShort,
		EntryPrice: 50000,
		Size:       0.5,
		StopLoss:   stop,
		TakeProfit: target,
		Status:     types.PositionStatusOpen,
	}
}

func (suite *SignalGeneratorTestSuite) TestLongStopLossOnClose() {
	sig := suite.generator.Evaluate(Evaluation{
		Bar:      makeBar(0, 49600, 49300, 49400),
		BigTrend: types.BigTrendBullish,
		Regime:   types.RegimeTrendingUp,
		Position: openLong(49500, 52000),
	})

	suite.Equal(types.SignalKindExit, sig.Kind)
	suite.Equal(types.SignalReasonStopLoss, sig.Reason)
}

func (suite *SignalGeneratorTestSuite) TestLongStopIgnoresIntrabarWick() {
	// The low pierces the stop but the close recovers above it: no exit.
	sig := suite.generator.Evaluate(Evaluation{
		Bar:      makeBar(0, 50200, 49400, 50100),
		BigTrend: types.BigTrendBullish,
		Regime:   types.RegimeTrendingUp,
		Position: openLong(49500, 52000),
	})

	suite.Equal(types.SignalKindNoAction, sig.Kind)
}

func (suite *SignalGeneratorTestSuite) TestLongTakeProfitOnClose() {
	sig := suite.generator.Evaluate(Evaluation{
		Bar:      makeBar(0, 52300, 51900, 52100),
		BigTrend: types.BigTrendBullish,
		Regime:   types.RegimeTrendingUp,
		Position: openLong(49500, 52000),
	})

	suite.Equal(types.SignalKindExit, sig.Kind)
	suite.Equal(types.SignalReasonTakeProfit, sig.Reason)
}

func (suite *SignalGeneratorTestSuite) TestShortStopLossOnClose() {
	sig := suite.generator.Evaluate(Evaluation{
		Bar:      makeBar(0, 50700, 50400, 50600),
		BigTrend: types.BigTrendBearish,
		Regime:   types.RegimeTrendingDown,
		Position: openShort(50500, 48000),
	})

	suite.Equal(types.SignalKindExit, sig.Kind)
	suite.Equal(types.SignalReasonStopLoss, sig.Reason)
}

func (suite *SignalGeneratorTestSuite) TestLongExitsOnOppositeRegime() {
	sig := suite.generator.Evaluate(Evaluation{
		Bar:      makeBar(0, 50200, 49900, 50000),
		BigTrend: types.BigTrendBullish,
		Regime:   types.RegimeTrendingDown,
		Position: openLong(49500, 52000),
	})

	suite.Equal(types.SignalKindExit, sig.Kind)
	suite.Equal(types.SignalReasonRegimeFlip, sig.Reason)
}

func (suite *SignalGeneratorTestSuite) TestRangeBoundDoesNotExitOpenPosition() {
	sig := suite.generator.Evaluate(Evaluation{
		Bar:      makeBar(0, 50200, 49900, 50000),
		BigTrend: types.BigTrendBullish,
		Regime:   types.RegimeRangeBound,
		Position: openLong(49500, 52000),
	})

	suite.Equal(types.SignalKindNoAction, sig.Kind)
}

func (suite *SignalGeneratorTestSuite) TestRegimeFlipExitDisabled() {
	generator := NewSignalGenerator(SignalConfig{ExitOnRegimeFlip: false})

	sig := generator.Evaluate(Evaluation{
		Bar:      makeBar(0, 50200, 49900, 50000),
		BigTrend: types.BigTrendBullish,
		Regime:   types.RegimeTrendingDown,
		Position: openLong(49500, 52000),
	})

	suite.Equal(types.SignalKindNoAction, sig.Kind)
}

func (suite *SignalGeneratorTestSuite) TestTrailStopRatchetsLongUpOnly() {
	generator := NewSignalGenerator(SignalConfig{TrailingStop: true, TrailingATRMult: 1.5})
	pos := openLong(49500, 52000)

	// Close 51500, ATR 400: candidate 51500 - 600 = 50900 tightens the stop.
	stop, tightened := generator.TrailStop(pos, 51500, 400)
	suite.True(tightened)
	suite.InDelta(50900.0, stop, 1e-9)

	// A pullback must never loosen it.
	pos.StopLoss = 50900
	stop, tightened = generator.TrailStop(pos, 50600, 400)
	suite.False(tightened)
	suite.InDelta(50900.0, stop, 1e-9)
}

func (suite *SignalGeneratorTestSuite) TestTrailStopRatchetsShortDown() {
	generator := NewSignalGenerator(SignalConfig{TrailingStop: true, TrailingATRMult: 1.5})

	stop, tightened := generator.TrailStop(openShort(50500, 48000), 49000, 400)
	suite.True(tightened)
	suite.InDelta(49600.0, stop, 1e-9)
}

func (suite *SignalGeneratorTestSuite) TestTrailStopDisabledByDefault() {
	stop, tightened := suite.generator.TrailStop(openLong(49500, 52000), 51500, 400)
	suite.False(tightened)
	suite.InDelta(49500.0, stop, 1e-9)
}

func (suite *SignalGeneratorTestSuite) TestStopTakesPriorityOverRegimeFlip() {
	sig := suite.generator.Evaluate(Evaluation{
		Bar:      makeBar(0, 49600, 49300, 49400),
		BigTrend: types.BigTrendBullish,
		Regime:   types.RegimeTrendingDown,
		Position: openLong(49500, 52000),
	})

	suite.Equal(types.SignalKindExit, sig.Kind)
	suite.Equal(types.SignalReasonStopLoss, sig.Reason)
}
