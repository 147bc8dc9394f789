package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type PositionStatus string

const (
	PositionStatusNone         PositionStatus = "NONE"
	PositionStatusPendingEntry PositionStatus = "PENDING_ENTRY"
	PositionStatusOpen         PositionStatus = "OPEN"
	PositionStatusPendingExit  PositionStatus = "PENDING_EXIT"
)

// Position is the single live position for one symbol, owned exclusively by
// the lifecycle manager. Size > 0 while Status != NONE, Size == 0 while
// Status == NONE.
type Position struct {
	Symbol     string         `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side       PositionSide   `yaml:"side" json:"side" csv:"side"`
	EntryPrice float64        `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	Size       float64        `yaml:"size" json:"size" csv:"size"`
	StopLoss   float64        `yaml:"stop_loss" json:"stop_loss" csv:"stop_loss"`
	TakeProfit float64        `yaml:"take_profit" json:"take_profit" csv:"take_profit"`
	Status     PositionStatus `yaml:"status" json:"status" csv:"status"`
	// IntentID is the idempotency key of the order intent that is currently
	// in flight for this position, empty when no intent is pending.
	IntentID string `yaml:"intent_id" json:"intent_id" csv:"intent_id"`
	// TransitionAt is when the position last changed status. Used to detect
	// stuck PENDING_* states.
	TransitionAt time.Time `yaml:"transition_at" json:"transition_at" csv:"transition_at"`
	OpenedAt     time.Time `yaml:"opened_at" json:"opened_at" csv:"opened_at"`
}

// FlatPosition returns the NONE position for a symbol.
func FlatPosition(symbol string) Position {
	return Position{
		Symbol: symbol,
		Side:   PositionSideNone,
		Status: PositionStatusNone,
	}
}

// IsFlat reports whether no position is open or pending for the symbol.
func (p *Position) IsFlat() bool {
	return p.Status == PositionStatusNone
}

// RealizedPnL computes the realized profit/loss of closing the full position
// at exitPrice. Short PnL is the opposite of long PnL: an exit above the
// entry loses money.
func (p *Position) RealizedPnL(exitPrice float64) float64 {
	entry := decimal.NewFromFloat(p.EntryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	size := decimal.NewFromFloat(p.Size)

	var result decimal.Decimal

	switch p.Side {
	case PositionSideLong:
		result = exit.Sub(entry).Mul(size)
	case PositionSideShort:
		result = entry.Sub(exit).Mul(size)
	default:
		return 0
	}

	pnl, _ := result.Float64()

	return pnl
}
