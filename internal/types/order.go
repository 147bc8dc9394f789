package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trendbox/pkg/errors"
)

type PurchaseType string

type OrderStatus string

type PositionSide string

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderStatusAccepted OrderStatus = "ACCEPTED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
	PositionSideNone  PositionSide = "NONE"
)

// ExecuteOrder is the order intent submitted to the execution collaborator.
// ID doubles as the idempotency key: resubmitting the same intent must not
// create a second order.
type ExecuteOrder struct {
	ID        string       `yaml:"id" json:"id" validate:"required,uuid"`
	Symbol    string       `yaml:"symbol" json:"symbol" validate:"required"`
	Side      PurchaseType `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Quantity  float64      `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	Price     float64      `yaml:"price" json:"price" validate:"required,gt=0"`
	Reason    string       `yaml:"reason" json:"reason" validate:"required"`
	Timestamp time.Time    `yaml:"timestamp" json:"timestamp" validate:"required"`
	// StopLoss is the protective stop price. Can be empty on exit orders.
	StopLoss optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	// TakeProfit is the target price. Can be empty on exit orders.
	TakeProfit optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
}

// Validate validates the ExecuteOrder struct.
func (eo *ExecuteOrder) Validate() error {
	validate := validator.New()
	if err := validate.Struct(eo); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidExecuteOrder, "invalid execute order", err)
	}

	return nil
}

// OrderResult is the execution collaborator's answer to a submitted order.
// Fill price and size are authoritative and may differ from the requested
// values; the lifecycle manager reconciles against them.
type OrderResult struct {
	OrderID   string      `yaml:"order_id" json:"order_id"`
	Status    OrderStatus `yaml:"status" json:"status"`
	FillPrice float64     `yaml:"fill_price" json:"fill_price"`
	FillSize  float64     `yaml:"fill_size" json:"fill_size"`
}

// ExternalPositionView is the execution collaborator's authoritative view of
// a position, used for reconciliation.
type ExternalPositionView struct {
	Symbol     string       `yaml:"symbol" json:"symbol"`
	Side       PositionSide `yaml:"side" json:"side"`
	Size       float64      `yaml:"size" json:"size"`
	EntryPrice float64      `yaml:"entry_price" json:"entry_price"`
}
