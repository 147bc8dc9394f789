package indicator

import (
	"testing"
	"time"

	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// IndicatorEngineTestSuite is a test suite for the indicator engine.
type IndicatorEngineTestSuite struct {
	suite.Suite
}

// TestIndicatorEngineSuite runs the test suite.
func TestIndicatorEngineSuite(t *testing.T) {
	suite.Run(t, new(IndicatorEngineTestSuite))
}

func barAt(i int, closePrice float64) types.Bar {
	open := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * 4 * time.Hour)

	return types.Bar{
		Symbol:    "BTCUSDT",
		Interval:  "4h",
		OpenTime:  open,
		Open:      closePrice,
		High:      closePrice + 1,
		Low:       closePrice - 1,
		Close:     closePrice,
		Volume:    100,
		CloseTime: open.Add(4 * time.Hour),
	}
}

func (suite *IndicatorEngineTestSuite) TestEMASeedAndRecurrence() {
	e := newEMA(3)

	e.update(1)
	suite.False(e.ready())
	e.update(2)
	suite.False(e.ready())
	e.update(3)
	suite.True(e.ready())
	// SMA seed over the first period values.
	suite.InDelta(2.0, e.value, 1e-9)

	// ema += (v - ema) * 2/(period+1) = 2 + (4-2)*0.5
	e.update(4)
	suite.InDelta(3.0, e.value, 1e-9)

	e.update(4)
	suite.InDelta(3.5, e.value, 1e-9)
}

func (suite *IndicatorEngineTestSuite) TestATRUsesTrueRangeAgainstPreviousClose() {
	a := newATR(2)

	// First bar: TR = high - low.
	a.update(types.Bar{High: 10, Low: 8, Close: 9})
	suite.False(a.ready())

	// Gap up: TR = high - prevClose = 14 - 9 = 5, larger than high-low = 2.
	a.update(types.Bar{High: 14, Low: 12, Close: 13})
	suite.True(a.ready())
	suite.InDelta((2.0+5.0)/2.0, a.value(), 1e-9)
}

func (suite *IndicatorEngineTestSuite) TestWarmupWithholdsSnapshots() {
	engine, err := NewEngine("BTCUSDT", Config{
		FastPeriod:  2,
		SlowPeriod:  4,
		TrendPeriod: 2,
		ATRPeriod:   2,
	})
	suite.Require().NoError(err)
	suite.Equal(4, engine.WarmupBars())

	for i := 0; i < 3; i++ {
		_, err := engine.Update(barAt(i, 100+float64(i)))
		suite.Require().Error(err)
		suite.True(errors.IsInsufficientHistory(err))
	}

	_, err = engine.Latest()
	suite.True(errors.IsInsufficientHistory(err))

	snap, err := engine.Update(barAt(3, 103))
	suite.Require().NoError(err)
	suite.Equal(4, engine.BarCount())
	suite.Greater(snap.EMAFast, 0.0)
	suite.Greater(snap.EMASlow, 0.0)
	suite.Greater(snap.ATR, 0.0)
	suite.Equal(barAt(3, 103).CloseTime, snap.Time)

	latest, err := engine.Latest()
	suite.Require().NoError(err)
	suite.Equal(snap, latest)
}

func (suite *IndicatorEngineTestSuite) TestSeriesAdvanceDuringWarmup() {
	engine, err := NewEngine("BTCUSDT", Config{
		FastPeriod:  2,
		SlowPeriod:  3,
		TrendPeriod: 2,
		ATRPeriod:   2,
	})
	suite.Require().NoError(err)

	// The warm-up bars must still feed the series: after exactly
	// WarmupBars updates the slow EMA equals the SMA of all closes.
	closes := []float64{10, 20, 30}
	for i, c := range closes {
		_, updateErr := engine.Update(barAt(i, c))
		if i < len(closes)-1 {
			suite.Require().Error(updateErr)
		} else {
			suite.Require().NoError(updateErr)
		}
	}

	snap, err := engine.Latest()
	suite.Require().NoError(err)
	suite.InDelta(20.0, snap.EMASlow, 1e-9)
}

func (suite *IndicatorEngineTestSuite) TestFastPeriodMustBeSmallerThanSlow() {
	_, err := NewEngine("BTCUSDT", Config{FastPeriod: 100, SlowPeriod: 20})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *IndicatorEngineTestSuite) TestResetDiscardsState() {
	engine, err := NewEngine("BTCUSDT", Config{
		FastPeriod:  2,
		SlowPeriod:  3,
		TrendPeriod: 2,
		ATRPeriod:   2,
	})
	suite.Require().NoError(err)

	for i := 0; i < 3; i++ {
		_, _ = engine.Update(barAt(i, 100))
	}

	suite.Equal(3, engine.BarCount())

	engine.Reset()
	suite.Equal(0, engine.BarCount())

	_, err = engine.Latest()
	suite.True(errors.IsInsufficientHistory(err))
}

func (suite *IndicatorEngineTestSuite) TestDefaultsApplied() {
	engine, err := NewEngine("BTCUSDT", Config{})
	suite.Require().NoError(err)
	suite.Equal(DefaultSlowPeriod, engine.WarmupBars())
}
