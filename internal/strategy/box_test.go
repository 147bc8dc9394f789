package strategy

import (
	"testing"
	"time"

	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// BoxTrackerTestSuite is a test suite for the box tracker.
type BoxTrackerTestSuite struct {
	suite.Suite
}

// TestBoxTrackerSuite runs the test suite.
func TestBoxTrackerSuite(t *testing.T) {
	suite.Run(t, new(BoxTrackerTestSuite))
}

func makeBar(i int, high, low, closePrice float64) types.Bar {
	open := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * 4 * time.Hour)

	return types.Bar{
		Symbol:    "BTCUSDT",
		Interval:  "4h",
		OpenTime:  open,
		Open:      closePrice,
		High:      high,
		Low:       low,
		Close:     closePrice,
		CloseTime: open.Add(4 * time.Hour),
	}
}

// flatBars returns n bars oscillating inside [low, high].
func flatBars(n int, high, low float64) []types.Bar {
	bars := make([]types.Bar, 0, n)
	for i := 0; i < n; i++ {
		bars = append(bars, makeBar(i, high, low, (high+low)/2))
	}

	return bars
}

func (suite *BoxTrackerTestSuite) newTracker(window, confirm int) *BoxTracker {
	return NewBoxTracker(BoxConfig{Window: window, EscapeATRMult: 2.0, ConfirmBars: confirm})
}

func (suite *BoxTrackerTestSuite) TestInitializeRequiresFullWindow() {
	t := suite.newTracker(5, 3)

	err := t.Initialize(flatBars(4, 110, 90))
	suite.Require().Error(err)
	suite.True(errors.IsInsufficientHistory(err))

	suite.Require().NoError(t.Initialize(flatBars(5, 110, 90)))
	suite.Equal(110.0, t.Box().High)
	suite.Equal(90.0, t.Box().Low)
}

func (suite *BoxTrackerTestSuite) TestUpdateBeforeInitializeFails() {
	t := suite.newTracker(5, 3)

	_, err := t.Update(makeBar(0, 110, 90, 100), 5)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBoxNotInitialized))
}

func (suite *BoxTrackerTestSuite) TestSingleBreakoutDoesNotRecalc() {
	t := suite.newTracker(5, 3)
	suite.Require().NoError(t.Initialize(flatBars(5, 110, 90)))

	// ATR 5, mult 2: breakout threshold is 110 + 10 = 120.
	recalced, err := t.Update(makeBar(5, 126, 121, 125), 5)
	suite.Require().NoError(err)
	suite.False(recalced)
	suite.Equal(110.0, t.Box().High)
	suite.Equal(1, t.Box().BreakoutStreak)
}

func (suite *BoxTrackerTestSuite) TestInteriorCloseResetsStreak() {
	t := suite.newTracker(5, 3)
	suite.Require().NoError(t.Initialize(flatBars(5, 110, 90)))

	_, err := t.Update(makeBar(5, 126, 121, 125), 5)
	suite.Require().NoError(err)
	_, err = t.Update(makeBar(6, 127, 122, 126), 5)
	suite.Require().NoError(err)
	suite.Equal(2, t.Box().BreakoutStreak)

	// Close back inside the band: streak resets to zero, not decremented.
	_, err = t.Update(makeBar(7, 112, 95, 100), 5)
	suite.Require().NoError(err)
	suite.Equal(0, t.Box().BreakoutStreak)
}

func (suite *BoxTrackerTestSuite) TestThreeBreakoutClosesTriggerRecalc() {
	t := suite.newTracker(5, 3)
	suite.Require().NoError(t.Initialize(flatBars(5, 110, 90)))

	_, err := t.Update(makeBar(5, 126, 121, 125), 5)
	suite.Require().NoError(err)
	_, err = t.Update(makeBar(6, 131, 126, 130), 5)
	suite.Require().NoError(err)

	recalced, err := t.Update(makeBar(7, 136, 131, 135), 5)
	suite.Require().NoError(err)
	suite.True(recalced)

	box := t.Box()
	// The recomputed window includes the three breakout bars.
	suite.Equal(136.0, box.High)
	suite.Equal(90.0, box.Low)
	suite.Equal(0, box.BreakoutStreak)
	suite.Equal(BreakoutUp, box.BreakoutDirection)
	suite.Equal(makeBar(7, 136, 131, 135).CloseTime, box.LastRecalc)
}

func (suite *BoxTrackerTestSuite) TestDownsideBreakoutRecalc() {
	t := suite.newTracker(5, 3)
	suite.Require().NoError(t.Initialize(flatBars(5, 110, 90)))

	// Threshold below: 90 - 10 = 80.
	for i, c := range []float64{78, 74, 70} {
		recalced, err := t.Update(makeBar(5+i, c+2, c-2, c), 5)
		suite.Require().NoError(err)
		suite.Equal(i == 2, recalced)
	}

	box := t.Box()
	suite.Equal(BreakoutDown, box.BreakoutDirection)
	suite.Equal(68.0, box.Low)
}

func (suite *BoxTrackerTestSuite) TestWindowIsRolling() {
	t := suite.newTracker(3, 2)
	suite.Require().NoError(t.Initialize(flatBars(3, 110, 90)))

	// Two breakout closes with window 3: after the recalc the window holds
	// one old bar and the two breakout bars.
	_, err := t.Update(makeBar(3, 126, 121, 125), 5)
	suite.Require().NoError(err)

	recalced, err := t.Update(makeBar(4, 131, 126, 130), 5)
	suite.Require().NoError(err)
	suite.True(recalced)

	box := t.Box()
	suite.Equal(131.0, box.High)
	// The surviving pre-breakout bar still anchors the low.
	suite.Equal(90.0, box.Low)
}
