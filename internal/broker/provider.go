// Package broker abstracts order execution and account state behind narrow
// interfaces so the engine can run against any venue, or against mocks.
package broker

import (
	"context"

	"github.com/rxtech-lab/trendbox/internal/types"
)

// ExecutionProvider submits order intents and exposes the venue's
// authoritative view of positions. Implementations must honor the intent ID
// as an idempotency key: submitting the same intent twice must not create a
// second order.
type ExecutionProvider interface {
	// PlaceOrder submits an order intent and returns the venue's decision.
	// A rejection is returned as a result with OrderStatusRejected, not as
	// an error; errors mean the submission outcome is unknown.
	PlaceOrder(ctx context.Context, order types.ExecuteOrder) (types.OrderResult, error)
	// GetPosition returns the venue's authoritative position for the symbol.
	// A flat symbol returns a view with Side NONE and zero size.
	GetPosition(ctx context.Context, symbol string) (types.ExternalPositionView, error)
	// CancelOrder cancels an order by its intent ID. Cancelling an order the
	// venue no longer knows about is not an error; the order is gone either
	// way.
	CancelOrder(ctx context.Context, symbol string, orderID string) error
	// CheckConnection verifies connectivity and authentication.
	CheckConnection(ctx context.Context) error
}

// AccountProvider reports the current account equity in the quote currency.
type AccountProvider interface {
	GetEquity(ctx context.Context) (float64, error)
}
