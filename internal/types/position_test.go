package types

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

// TypesTestSuite is a test suite for the core domain types.
type TypesTestSuite struct {
	suite.Suite
}

// TestTypesSuite runs the test suite.
func TestTypesSuite(t *testing.T) {
	suite.Run(t, new(TypesTestSuite))
}

func (suite *TypesTestSuite) TestRealizedPnLLong() {
	pos := Position{Side: PositionSideLong, EntryPrice: 50000, Size: 0.5}

	suite.InDelta(1000.0, pos.RealizedPnL(52000), 1e-9)
	suite.InDelta(-500.0, pos.RealizedPnL(49000), 1e-9)
}

func (suite *TypesTestSuite) TestRealizedPnLShortIsOpposite() {
	pos := Position{Side: PositionSideShort, EntryPrice: 50000, Size: 0.5}

	// An exit above the entry loses money on a short.
	suite.InDelta(-1000.0, pos.RealizedPnL(52000), 1e-9)
	suite.InDelta(500.0, pos.RealizedPnL(49000), 1e-9)
}

func (suite *TypesTestSuite) TestFlatPosition() {
	pos := FlatPosition("BTCUSDT")

	suite.True(pos.IsFlat())
	suite.Equal(PositionSideNone, pos.Side)
	suite.Zero(pos.RealizedPnL(50000))
}

func (suite *TypesTestSuite) TestExecuteOrderValidation() {
	order := ExecuteOrder{
		ID:         "0f8fad5b-d9cb-469f-a165-70867728950e",
		Symbol:     "BTCUSDT",
		Side:       PurchaseTypeBuy,
		Quantity:   0.5,
		Price:      50000,
		Reason:     SignalReasonTrendEntry,
		Timestamp:  time.Now(),
		StopLoss:   optional.Some(49000.0),
		TakeProfit: optional.Some(51600.0),
	}
	suite.NoError(order.Validate())

	invalid := order
	invalid.ID = "not-a-uuid"
	suite.Error(invalid.Validate())

	invalid = order
	invalid.Quantity = 0
	suite.Error(invalid.Validate())

	invalid = order
	invalid.Side = "HOLD"
	suite.Error(invalid.Validate())
}

func (suite *TypesTestSuite) TestRiskParametersValidation() {
	params := RiskParameters{
		RiskPerTrade:        0.03,
		MaxPositionFraction: 0.42,
		Equity:              10000,
		RefreshedAt:         time.Now(),
	}
	suite.NoError(params.Validate())

	params.RiskPerTrade = 1.5
	suite.Error(params.Validate())
}
