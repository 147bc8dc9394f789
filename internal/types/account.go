package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/trendbox/pkg/errors"
)

// RiskParameters is the read-only risk budget injected into each sizing
// call. Equity is a point-in-time snapshot refreshed before every sizing
// computation; the engine never caches it across cycles.
type RiskParameters struct {
	// RiskPerTrade is the fraction of equity allowed to be lost if the
	// stop-loss is hit.
	RiskPerTrade float64 `yaml:"risk_per_trade" json:"risk_per_trade" validate:"required,gt=0,lte=1"`
	// MaxPositionFraction caps the position notional as a fraction of equity.
	MaxPositionFraction float64 `yaml:"max_position_fraction" json:"max_position_fraction" validate:"required,gt=0,lte=1"`
	// Equity is the account equity snapshot the sizing is based on.
	Equity float64 `yaml:"equity" json:"equity" validate:"required,gt=0"`
	// RefreshedAt is when the equity snapshot was taken.
	RefreshedAt time.Time `yaml:"refreshed_at" json:"refreshed_at"`
}

// Validate validates the RiskParameters struct.
func (rp *RiskParameters) Validate() error {
	validate := validator.New()
	if err := validate.Struct(rp); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid risk parameters", err)
	}

	return nil
}

// TradeRecord is one completed round trip, persisted for reporting.
type TradeRecord struct {
	Symbol     string       `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side       PositionSide `yaml:"side" json:"side" csv:"side"`
	EntryPrice float64      `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitPrice  float64      `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	Size       float64      `yaml:"size" json:"size" csv:"size"`
	PnL        float64      `yaml:"pnl" json:"pnl" csv:"pnl"`
	Reason     string       `yaml:"reason" json:"reason" csv:"reason"`
	OpenedAt   time.Time    `yaml:"opened_at" json:"opened_at" csv:"opened_at"`
	ClosedAt   time.Time    `yaml:"closed_at" json:"closed_at" csv:"closed_at"`
}
