package strategy

import (
	"testing"

	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// RegimeDetectorTestSuite is a test suite for the regime detector.
type RegimeDetectorTestSuite struct {
	suite.Suite
	detector *RegimeDetector
}

// TestRegimeDetectorSuite runs the test suite.
func TestRegimeDetectorSuite(t *testing.T) {
	suite.Run(t, new(RegimeDetectorTestSuite))
}

func (suite *RegimeDetectorTestSuite) SetupTest() {
	suite.detector = NewRegimeDetector(RegimeConfig{ConfirmationBars: 3})
}

func trendSnap(trendEMA float64) types.IndicatorSnapshot {
	return types.IndicatorSnapshot{EMATrend: trendEMA}
}

func (suite *RegimeDetectorTestSuite) TestThreeBarsAboveEMAWithBreakoutIsTrendingUp() {
	bars := []types.Bar{
		makeBar(0, 50500, 50200, 50400),
		makeBar(1, 50700, 50400, 50600),
		makeBar(2, 50900, 50600, 50800),
	}
	snaps := []types.IndicatorSnapshot{
		trendSnap(50000), trendSnap(50100), trendSnap(50200),
	}
	box := Box{High: 50700, Low: 49000}

	regime, err := suite.detector.Detect(bars, snaps, box)
	suite.Require().NoError(err)
	suite.Equal(types.RegimeTrendingUp, regime)
}

func (suite *RegimeDetectorTestSuite) TestMiddleBarDipIsRangeBound() {
	bars := []types.Bar{
		makeBar(0, 50500, 50200, 50400),
		// Low touches below the trend EMA.
		makeBar(1, 50700, 50050, 50600),
		makeBar(2, 50900, 50600, 50800),
	}
	snaps := []types.IndicatorSnapshot{
		trendSnap(50000), trendSnap(50100), trendSnap(50200),
	}
	box := Box{High: 50700, Low: 49000}

	regime, err := suite.detector.Detect(bars, snaps, box)
	suite.Require().NoError(err)
	suite.Equal(types.RegimeRangeBound, regime)
}

func (suite *RegimeDetectorTestSuite) TestExactTouchDisqualifies() {
	bars := []types.Bar{
		makeBar(0, 50500, 50200, 50400),
		// Low exactly equals the trend EMA: not strictly above.
		makeBar(1, 50700, 50100, 50600),
		makeBar(2, 50900, 50600, 50800),
	}
	snaps := []types.IndicatorSnapshot{
		trendSnap(50000), trendSnap(50100), trendSnap(50200),
	}
	box := Box{High: 50700, Low: 49000}

	regime, err := suite.detector.Detect(bars, snaps, box)
	suite.Require().NoError(err)
	suite.Equal(types.RegimeRangeBound, regime)
}

func (suite *RegimeDetectorTestSuite) TestCleanRunInsideBoxIsRangeBound() {
	bars := []types.Bar{
		makeBar(0, 50500, 50200, 50400),
		makeBar(1, 50700, 50400, 50600),
		makeBar(2, 50900, 50600, 50800),
	}
	snaps := []types.IndicatorSnapshot{
		trendSnap(50000), trendSnap(50100), trendSnap(50200),
	}
	// Box high above the close: the breakout gate is not cleared.
	box := Box{High: 51500, Low: 49000}

	regime, err := suite.detector.Detect(bars, snaps, box)
	suite.Require().NoError(err)
	suite.Equal(types.RegimeRangeBound, regime)
}

func (suite *RegimeDetectorTestSuite) TestThreeBarsBelowEMAWithBreakdownIsTrendingDown() {
	bars := []types.Bar{
		makeBar(0, 49800, 49500, 49600),
		makeBar(1, 49600, 49300, 49400),
		makeBar(2, 49400, 49100, 49200),
	}
	snaps := []types.IndicatorSnapshot{
		trendSnap(50000), trendSnap(49900), trendSnap(49800),
	}
	box := Box{High: 51000, Low: 49300}

	regime, err := suite.detector.Detect(bars, snaps, box)
	suite.Require().NoError(err)
	suite.Equal(types.RegimeTrendingDown, regime)
}

func (suite *RegimeDetectorTestSuite) TestOnlyLastConfirmationBarsAreInspected() {
	// An old straddling bar outside the 3-bar window must not matter.
	bars := []types.Bar{
		makeBar(0, 50500, 49000, 49500),
		makeBar(1, 50500, 50200, 50400),
		makeBar(2, 50700, 50400, 50600),
		makeBar(3, 50900, 50600, 50800),
	}
	snaps := []types.IndicatorSnapshot{
		trendSnap(50000), trendSnap(50000), trendSnap(50100), trendSnap(50200),
	}
	box := Box{High: 50700, Low: 49000}

	regime, err := suite.detector.Detect(bars, snaps, box)
	suite.Require().NoError(err)
	suite.Equal(types.RegimeTrendingUp, regime)
}

func (suite *RegimeDetectorTestSuite) TestInsufficientBars() {
	bars := []types.Bar{makeBar(0, 50500, 50200, 50400)}
	snaps := []types.IndicatorSnapshot{trendSnap(50000)}

	_, err := suite.detector.Detect(bars, snaps, Box{High: 50000, Low: 49000})
	suite.Require().Error(err)
	suite.True(errors.IsInsufficientHistory(err))
}

func (suite *RegimeDetectorTestSuite) TestMisalignedInputsRejected() {
	bars := []types.Bar{makeBar(0, 50500, 50200, 50400), makeBar(1, 50700, 50400, 50600)}
	snaps := []types.IndicatorSnapshot{trendSnap(50000)}

	_, err := suite.detector.Detect(bars, snaps, Box{High: 50000, Low: 49000})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}
