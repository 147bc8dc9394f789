// Package position owns the single-position lifecycle for one symbol:
// NONE -> PENDING_ENTRY -> OPEN -> PENDING_EXIT -> NONE. All transitions go
// through the Manager; nothing else mutates the position.
package position

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trendbox/internal/broker"
	"github.com/rxtech-lab/trendbox/internal/logger"
	"github.com/rxtech-lab/trendbox/internal/notifier"
	"github.com/rxtech-lab/trendbox/internal/statestore"
	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
	"go.uber.org/zap"
)

// DefaultSubmitTimeout bounds a single order submission.
const DefaultSubmitTimeout = types.Duration(15 * time.Second)

// DefaultStuckPendingTimeout is how long a PENDING_* state may persist
// before it is escalated to reconciliation.
const DefaultStuckPendingTimeout = types.Duration(5 * time.Minute)

// ManagerConfig configures the lifecycle manager.
type ManagerConfig struct {
	SubmitTimeout       types.Duration `yaml:"submit_timeout"`
	StuckPendingTimeout types.Duration `yaml:"stuck_pending_timeout"`
}

// Manager drives one symbol's position through its lifecycle. Not safe for
// concurrent use; each symbol's worker owns exactly one manager.
//
// On a submission timeout the outcome is unknown: the manager keeps the
// PENDING_* state, never resubmits the same intent, and flags itself for
// reconciliation against the venue's authoritative view.
type Manager struct {
	symbol    string
	cfg       ManagerConfig
	execution broker.ExecutionProvider
	store     *statestore.Store
	notifier  notifier.Notifier
	logger    *logger.Logger

	position       types.Position
	needsReconcile bool
}

// NewManager creates a manager and restores the symbol's position from the
// state store. A restored PENDING_* position or any unresolved intent marks
// the manager for reconciliation before it will accept new signals.
func NewManager(
	symbol string,
	cfg ManagerConfig,
	execution broker.ExecutionProvider,
	store *statestore.Store,
	n notifier.Notifier,
	log *logger.Logger,
) (*Manager, error) {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultSubmitTimeout
	}

	if cfg.StuckPendingTimeout <= 0 {
		cfg.StuckPendingTimeout = DefaultStuckPendingTimeout
	}

	if n == nil {
		n = notifier.NopNotifier{}
	}

	m := &Manager{
		symbol:    symbol,
		cfg:       cfg,
		execution: execution,
		store:     store,
		notifier:  n,
		logger:    log,
		position:  types.FlatPosition(symbol),
	}

	pos, found, err := store.LoadPosition(symbol)
	if err != nil {
		return nil, err
	}

	if found {
		m.position = pos
		if pos.Status == types.PositionStatusPendingEntry || pos.Status == types.PositionStatusPendingExit {
			m.needsReconcile = true
		}
	}

	unresolved, err := store.UnresolvedIntents(symbol)
	if err != nil {
		return nil, err
	}

	if len(unresolved) > 0 {
		m.needsReconcile = true
	}

	return m, nil
}

// Position returns a copy of the current position.
func (m *Manager) Position() types.Position {
	return m.position
}

// NeedsReconcile reports whether the local state must be reconciled against
// the venue before new signals are acted on. A PENDING_* state older than
// StuckPendingTimeout is escalated here rather than silently carried.
func (m *Manager) NeedsReconcile() bool {
	if m.needsReconcile {
		return true
	}

	pending := m.position.Status == types.PositionStatusPendingEntry ||
		m.position.Status == types.PositionStatusPendingExit

	if pending && time.Since(m.position.TransitionAt) > m.cfg.StuckPendingTimeout.Std() {
		m.logger.Warn("pending state exceeded timeout, escalating to reconciliation",
			zap.String("symbol", m.symbol),
			zap.String("status", string(m.position.Status)),
			zap.Time("transition_at", m.position.TransitionAt),
			zap.Error(errors.Newf(errors.ErrCodeReconciliationMismatch,
				"position stuck in %s", m.position.Status)))

		m.needsReconcile = true
	}

	return m.needsReconcile
}

// Enter submits an entry order. The order carries its own idempotency key;
// the manager persists it as a pending intent before submission so a crash
// mid-flight is recoverable.
func (m *Manager) Enter(ctx context.Context, order types.ExecuteOrder) error {
	if m.needsReconcile {
		return errors.New(errors.ErrCodePositionConflict, "reconciliation required before new entries")
	}

	if !m.position.IsFlat() {
		return errors.Newf(errors.ErrCodePositionConflict,
			"cannot enter %s while position is %s", m.symbol, m.position.Status)
	}

	side := types.PositionSideLong
	if order.Side == types.PurchaseTypeSell {
		side = types.PositionSideShort
	}

	if err := m.store.RecordIntent(order); err != nil {
		return err
	}

	m.transition(types.Position{
		Symbol:       m.symbol,
		Side:         side,
		EntryPrice:   order.Price,
		Size:         order.Quantity,
		StopLoss:     order.StopLoss.TakeOr(0),
		TakeProfit:   order.TakeProfit.TakeOr(0),
		Status:       types.PositionStatusPendingEntry,
		IntentID:     order.ID,
		TransitionAt: time.Now().UTC(),
	})

	result, err := m.submit(ctx, order)
	if err != nil {
		return err
	}

	if result.Status == types.OrderStatusRejected {
		m.resolveIntent(order.ID, statestore.IntentStatusRejected)
		m.transition(types.FlatPosition(m.symbol))

		return errors.Newf(errors.ErrCodeExecutionRejected, "entry order rejected for %s", m.symbol)
	}

	if result.FillSize <= 0 {
		// Accepted but unfilled: the venue may still be working the order.
		// Opening a size-zero position would wedge the lifecycle, so treat
		// the outcome as unknown and let reconciliation settle it.
		m.needsReconcile = true
		m.resolveIntent(order.ID, statestore.IntentStatusUnknown)

		m.logger.Warn("entry accepted without fill, deferring to reconciliation",
			zap.String("symbol", m.symbol),
			zap.String("intent_id", order.ID))

		return errors.Newf(errors.ErrCodeExecutionTimeout,
			"entry order for %s accepted without a fill", m.symbol)
	}

	m.resolveIntent(order.ID, statestore.IntentStatusAccepted)

	opened := m.position
	opened.Status = types.PositionStatusOpen
	opened.EntryPrice = result.FillPrice
	opened.Size = result.FillSize
	opened.IntentID = ""
	opened.TransitionAt = time.Now().UTC()
	opened.OpenedAt = opened.TransitionAt
	m.transition(opened)

	m.notify(ctx, notifier.Event{
		Kind:   notifier.EventKindEntry,
		Symbol: m.symbol,
		Title:  fmt.Sprintf("%s entry", m.symbol),
		Message: fmt.Sprintf("opened %s %s size=%.8f entry=%.4f stop=%.4f target=%.4f",
			opened.Side, m.symbol, opened.Size, opened.EntryPrice, opened.StopLoss, opened.TakeProfit),
		Time: opened.OpenedAt,
	})

	return nil
}

// Exit closes the open position with a market order for the full size. The
// realized trade is persisted before the position is flattened.
func (m *Manager) Exit(ctx context.Context, signal types.Signal) error {
	if m.needsReconcile {
		return errors.New(errors.ErrCodePositionConflict, "reconciliation required before exits")
	}

	if m.position.Status != types.PositionStatusOpen {
		return errors.Newf(errors.ErrCodePositionConflict,
			"cannot exit %s while position is %s", m.symbol, m.position.Status)
	}

	side := types.PurchaseTypeSell
	if m.position.Side == types.PositionSideShort {
		side = types.PurchaseTypeBuy
	}

	order := types.ExecuteOrder{
		ID:         uuid.New().String(),
		Symbol:     m.symbol,
		Side:       side,
		Quantity:   m.position.Size,
		Price:      signal.ReferencePrice,
		Reason:     signal.Reason,
		Timestamp:  time.Now().UTC(),
		StopLoss:   optional.None[float64](),
		TakeProfit: optional.None[float64](),
	}

	if err := m.store.RecordIntent(order); err != nil {
		return err
	}

	pending := m.position
	pending.Status = types.PositionStatusPendingExit
	pending.IntentID = order.ID
	pending.TransitionAt = time.Now().UTC()
	m.transition(pending)

	result, err := m.submit(ctx, order)
	if err != nil {
		return err
	}

	if result.Status == types.OrderStatusRejected {
		m.resolveIntent(order.ID, statestore.IntentStatusRejected)

		// The position is still open at the venue; go back to OPEN and let
		// the next cycle retry with a fresh intent.
		reopened := m.position
		reopened.Status = types.PositionStatusOpen
		reopened.IntentID = ""
		reopened.TransitionAt = time.Now().UTC()
		m.transition(reopened)

		return errors.Newf(errors.ErrCodeExecutionRejected, "exit order rejected for %s", m.symbol)
	}

	if result.FillSize <= 0 {
		// Same unknown-outcome handling as the entry path: the venue still
		// holds the position until a fill is confirmed.
		m.needsReconcile = true
		m.resolveIntent(order.ID, statestore.IntentStatusUnknown)

		m.logger.Warn("exit accepted without fill, deferring to reconciliation",
			zap.String("symbol", m.symbol),
			zap.String("intent_id", order.ID))

		return errors.Newf(errors.ErrCodeExecutionTimeout,
			"exit order for %s accepted without a fill", m.symbol)
	}

	m.resolveIntent(order.ID, statestore.IntentStatusAccepted)
	m.closePosition(ctx, result.FillPrice, signal.Reason)

	return nil
}

// Reconcile fetches the venue's authoritative position and corrects the
// local state to match it. Unresolved intents are closed out as part of the
// correction. The venue always wins; a mismatch is logged, never "fixed" by
// trading.
func (m *Manager) Reconcile(ctx context.Context) error {
	view, err := m.execution.GetPosition(ctx, m.symbol)
	if err != nil {
		return err
	}

	unresolved, err := m.store.UnresolvedIntents(m.symbol)
	if err != nil {
		return err
	}

	for _, intent := range unresolved {
		status := statestore.IntentStatusRejected
		if intentExecuted(intent.Side, view.Side) {
			status = statestore.IntentStatusAccepted
		}

		if status == statestore.IntentStatusRejected {
			// The venue never filled this intent; cancel it best-effort so a
			// resting order cannot fill after local state has been corrected.
			if err := m.execution.CancelOrder(ctx, m.symbol, intent.ID); err != nil {
				m.logger.Warn("failed to cancel stale intent",
					zap.String("symbol", m.symbol),
					zap.String("intent_id", intent.ID),
					zap.Error(err))
			}
		}

		if err := m.store.ResolveIntent(intent.ID, status); err != nil {
			return err
		}
	}

	local := m.position

	switch {
	case view.Side == types.PositionSideNone:
		if !local.IsFlat() {
			m.reportMismatch(ctx, fmt.Sprintf(
				"venue is flat but local state was %s; correcting to flat", local.Status))
		}

		m.transition(types.FlatPosition(m.symbol))
	default:
		if local.Status != types.PositionStatusOpen ||
			local.Side != view.Side || local.Size != view.Size {
			m.reportMismatch(ctx, fmt.Sprintf(
				"adopting venue position %s size=%.8f over local %s",
				view.Side, view.Size, local.Status))
		}

		corrected := local
		corrected.Side = view.Side
		corrected.Size = view.Size
		corrected.Status = types.PositionStatusOpen
		corrected.IntentID = ""
		corrected.TransitionAt = time.Now().UTC()

		// Keep the locally known entry price when the venue cannot report
		// one; spot balances carry no cost basis.
		if view.EntryPrice > 0 {
			corrected.EntryPrice = view.EntryPrice
		}

		if corrected.OpenedAt.IsZero() {
			corrected.OpenedAt = corrected.TransitionAt
		}

		m.transition(corrected)
	}

	m.needsReconcile = false

	return nil
}

// intentExecuted reports whether the venue's position is consistent with the
// intent having filled: an executed buy leaves the venue long, an executed
// sell leaves it flat (an exit) or short (an entry). A lingering position on
// the opposite side of the intent means the intent never executed.
func intentExecuted(side types.PurchaseType, venue types.PositionSide) bool {
	if side == types.PurchaseTypeBuy {
		return venue == types.PositionSideLong
	}

	return venue != types.PositionSideLong
}

// AdjustStop tightens the protective stop on the open position and persists
// it. The caller is responsible for only ratcheting in the trade's favor.
func (m *Manager) AdjustStop(stop float64) error {
	if m.position.Status != types.PositionStatusOpen {
		return errors.Newf(errors.ErrCodePositionConflict,
			"cannot adjust stop while position is %s", m.position.Status)
	}

	if stop <= 0 {
		return errors.New(errors.ErrCodeInvalidStopDistance, "stop must be positive")
	}

	adjusted := m.position
	adjusted.StopLoss = stop
	adjusted.TransitionAt = time.Now().UTC()
	m.transition(adjusted)

	m.logger.Debug("stop adjusted",
		zap.String("symbol", m.symbol),
		zap.Float64("stop", stop))

	return nil
}

// reportMismatch records a reconciliation discrepancy in the log and on the
// notification channel before local state is corrected.
func (m *Manager) reportMismatch(ctx context.Context, detail string) {
	err := errors.New(errors.ErrCodeReconciliationMismatch, detail)

	m.logger.Warn("reconciliation mismatch",
		zap.String("symbol", m.symbol),
		zap.Error(err))

	m.notify(ctx, notifier.Event{
		Kind:    notifier.EventKindError,
		Symbol:  m.symbol,
		Title:   fmt.Sprintf("%s reconciliation mismatch", m.symbol),
		Message: detail,
		Time:    time.Now().UTC(),
	})
}

// submit runs the submission under the configured timeout. A timeout or any
// other unknown-outcome error flags reconciliation and marks the intent
// UNKNOWN; the intent is never resubmitted.
func (m *Manager) submit(ctx context.Context, order types.ExecuteOrder) (types.OrderResult, error) {
	submitCtx, cancel := context.WithTimeout(ctx, m.cfg.SubmitTimeout.Std())
	defer cancel()

	result, err := m.execution.PlaceOrder(submitCtx, order)
	if err != nil {
		m.needsReconcile = true
		m.resolveIntent(order.ID, statestore.IntentStatusUnknown)

		m.logger.Error("order submission outcome unknown",
			zap.String("symbol", m.symbol),
			zap.String("intent_id", order.ID),
			zap.Error(err))

		return types.OrderResult{}, err
	}

	return result, nil
}

func (m *Manager) closePosition(ctx context.Context, fillPrice float64, reason string) {
	pos := m.position
	pnl := pos.RealizedPnL(fillPrice)

	trade := types.TradeRecord{
		Symbol:     m.symbol,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  fillPrice,
		Size:       pos.Size,
		PnL:        pnl,
		Reason:     reason,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   time.Now().UTC(),
	}

	if err := m.store.RecordTrade(trade); err != nil {
		m.logger.Error("failed to record trade",
			zap.String("symbol", m.symbol), zap.Error(err))
	}

	m.transition(types.FlatPosition(m.symbol))

	kind := notifier.EventKindExit

	switch reason {
	case types.SignalReasonStopLoss:
		kind = notifier.EventKindStopHit
	case types.SignalReasonTakeProfit:
		kind = notifier.EventKindTargetHit
	}

	m.notify(ctx, notifier.Event{
		Kind:   kind,
		Symbol: m.symbol,
		Title:  fmt.Sprintf("%s exit (%s)", m.symbol, reason),
		Message: fmt.Sprintf("closed %s %s size=%.8f entry=%.4f exit=%.4f pnl=%.4f",
			trade.Side, m.symbol, trade.Size, trade.EntryPrice, trade.ExitPrice, pnl),
		Time: trade.ClosedAt,
	})
}

// transition replaces the position and persists it. Persistence failures are
// logged but do not roll back the in-memory state; the venue remains the
// source of truth and reconciliation repairs the store.
func (m *Manager) transition(pos types.Position) {
	m.position = pos

	if err := m.store.SavePosition(pos); err != nil {
		m.logger.Error("failed to persist position",
			zap.String("symbol", m.symbol),
			zap.String("status", string(pos.Status)),
			zap.Error(err))
	}
}

func (m *Manager) resolveIntent(intentID string, status statestore.IntentStatus) {
	if err := m.store.ResolveIntent(intentID, status); err != nil {
		m.logger.Error("failed to resolve intent",
			zap.String("intent_id", intentID), zap.Error(err))
	}
}

func (m *Manager) notify(ctx context.Context, event notifier.Event) {
	if err := m.notifier.Notify(ctx, event); err != nil {
		m.logger.Warn("notification delivery failed",
			zap.String("symbol", m.symbol),
			zap.String("kind", string(event.Kind)),
			zap.Error(err))
	}
}
