// Package risk converts signals and an account risk budget into bounded-risk
// order intents.
package risk

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
	"github.com/shopspring/decimal"
)

// Protective level defaults, in ATR multiples of the reference price.
const (
	DefaultStopATRMult   = 2.5
	DefaultTargetATRMult = 4.0
)

// Config holds the protective level multiples. Levels are always derived
// from the reference price and the ATR, never hard-coded in currency terms.
type Config struct {
	StopATRMult   float64 `yaml:"stop_atr_mult"`
	TargetATRMult float64 `yaml:"target_atr_mult"`
}

func (c *Config) setDefaults() {
	if c.StopATRMult <= 0 {
		c.StopATRMult = DefaultStopATRMult
	}

	if c.TargetATRMult <= 0 {
		c.TargetATRMult = DefaultTargetATRMult
	}
}

// Sizer computes position sizes and protective levels.
type Sizer struct {
	cfg Config
}

// NewSizer creates a sizer.
func NewSizer(cfg Config) *Sizer {
	cfg.setDefaults()

	return &Sizer{cfg: cfg}
}

// Levels computes the stop-loss and take-profit prices for an entry signal.
func (s *Sizer) Levels(kind types.SignalKind, refPrice, atr float64) (stopLoss, takeProfit float64, err error) {
	if atr <= 0 {
		return 0, 0, errors.Newf(errors.ErrCodeInvalidParameter, "atr must be positive, got %f", atr)
	}

	switch kind {
	case types.SignalKindEnterLong:
		return refPrice - s.cfg.StopATRMult*atr, refPrice + s.cfg.TargetATRMult*atr, nil
	case types.SignalKindEnterShort:
		return refPrice + s.cfg.StopATRMult*atr, refPrice - s.cfg.TargetATRMult*atr, nil
	default:
		return 0, 0, errors.Newf(errors.ErrCodeInvalidParameter, "no levels for signal kind %s", kind)
	}
}

// Size computes the position quantity for a signal given the risk budget and
// the stop distance. The risk-based size is
//
//	(equity * risk_per_trade) / stop_distance
//
// clamped so that the notional never exceeds max_position_fraction * equity;
// the tighter of the two wins.
func (s *Sizer) Size(signal types.Signal, params types.RiskParameters, stopDistance float64) (float64, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}

	if stopDistance <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidStopDistance,
			"stop distance must be positive, got %f", stopDistance)
	}

	if signal.ReferencePrice <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter,
			"reference price must be positive, got %f", signal.ReferencePrice)
	}

	equity := decimal.NewFromFloat(params.Equity)
	riskBudget := equity.Mul(decimal.NewFromFloat(params.RiskPerTrade))
	rawSize := riskBudget.Div(decimal.NewFromFloat(stopDistance))

	maxNotional := equity.Mul(decimal.NewFromFloat(params.MaxPositionFraction))
	capSize := maxNotional.Div(decimal.NewFromFloat(signal.ReferencePrice))

	size := rawSize
	if capSize.LessThan(rawSize) {
		size = capSize
	}

	result, _ := size.Float64()

	return result, nil
}

// BuildOrder turns an entry signal into a validated order intent: protective
// levels from the ATR, quantity from the risk budget, and a fresh UUID as
// the idempotency key.
func (s *Sizer) BuildOrder(signal types.Signal, params types.RiskParameters, atr float64) (types.ExecuteOrder, error) {
	stopLoss, takeProfit, err := s.Levels(signal.Kind, signal.ReferencePrice, atr)
	if err != nil {
		return types.ExecuteOrder{}, err
	}

	stopDistance := signal.ReferencePrice - stopLoss
	if stopDistance < 0 {
		stopDistance = -stopDistance
	}

	quantity, err := s.Size(signal, params, stopDistance)
	if err != nil {
		return types.ExecuteOrder{}, err
	}

	side := types.PurchaseTypeBuy
	if signal.Kind == types.SignalKindEnterShort {
		side = types.PurchaseTypeSell
	}

	order := types.ExecuteOrder{
		ID:         uuid.New().String(),
		Symbol:     signal.Symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      signal.ReferencePrice,
		Reason:     signal.Reason,
		Timestamp:  time.Now().UTC(),
		StopLoss:   optional.Some(stopLoss),
		TakeProfit: optional.Some(takeProfit),
	}

	if err := order.Validate(); err != nil {
		return types.ExecuteOrder{}, err
	}

	return order, nil
}
