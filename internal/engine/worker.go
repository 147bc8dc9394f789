package engine

import (
	"context"
	"time"

	"github.com/rxtech-lab/trendbox/internal/indicator"
	"github.com/rxtech-lab/trendbox/internal/logger"
	"github.com/rxtech-lab/trendbox/internal/marketdata"
	"github.com/rxtech-lab/trendbox/internal/position"
	"github.com/rxtech-lab/trendbox/internal/risk"
	"github.com/rxtech-lab/trendbox/internal/strategy"
	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
	"go.uber.org/zap"
)

// Worker drives one symbol through the full decision cycle: fetch the latest
// closed bar, update indicators and the box, classify trend and regime,
// evaluate the signal and hand any resulting intent to the lifecycle
// manager.
//
// All of a worker's state is confined to its own goroutine. Cross-worker
// sharing is limited to the equity tracker and the state store, both of
// which serialize internally.
type Worker struct {
	symbol       string
	interval     string
	pollInterval time.Duration
	riskBudget   RiskBudget

	data       marketdata.Provider
	equity     *EquityTracker
	indicators *indicator.Engine
	bigTrend   *strategy.BigTrendClassifier
	box        *strategy.BoxTracker
	regime     *strategy.RegimeDetector
	signals    *strategy.SignalGenerator
	sizer      *risk.Sizer
	manager    *position.Manager
	logger     *logger.Logger

	regimeBars int
	boxWindow  int

	bars      []types.Bar
	snapshots []types.IndicatorSnapshot
	lastBar   types.Bar

	// trigger is 1-buffered: while a cycle is queued or running, further
	// triggers coalesce into it instead of piling up.
	trigger chan struct{}
}

// WorkerDeps bundles a worker's collaborators.
type WorkerDeps struct {
	Data       marketdata.Provider
	Equity     *EquityTracker
	Indicators *indicator.Engine
	BigTrend   *strategy.BigTrendClassifier
	Box        *strategy.BoxTracker
	Regime     *strategy.RegimeDetector
	Signals    *strategy.SignalGenerator
	Sizer      *risk.Sizer
	Manager    *position.Manager
	Logger     *logger.Logger
}

// WorkerParams holds the per-worker scalar settings.
type WorkerParams struct {
	Symbol       string
	Interval     string
	PollInterval time.Duration
	RiskBudget   RiskBudget
	RegimeBars   int
	BoxWindow    int
}

// NewWorker creates a worker for one symbol.
func NewWorker(params WorkerParams, deps WorkerDeps) *Worker {
	regimeBars := params.RegimeBars
	if regimeBars <= 0 {
		regimeBars = strategy.DefaultRegimeConfirmationBars
	}

	boxWindow := params.BoxWindow
	if boxWindow <= 0 {
		boxWindow = strategy.DefaultBoxWindow
	}

	return &Worker{
		symbol:       params.Symbol,
		interval:     params.Interval,
		pollInterval: params.PollInterval,
		riskBudget:   params.RiskBudget,
		data:         deps.Data,
		equity:       deps.Equity,
		indicators:   deps.Indicators,
		bigTrend:     deps.BigTrend,
		box:          deps.Box,
		regime:       deps.Regime,
		signals:      deps.Signals,
		sizer:        deps.Sizer,
		manager:      deps.Manager,
		logger:       deps.Logger,
		regimeBars:   regimeBars,
		boxWindow:    boxWindow,
		bars:         make([]types.Bar, 0, regimeBars),
		snapshots:    make([]types.IndicatorSnapshot, 0, regimeBars),
		trigger:      make(chan struct{}, 1),
	}
}

// historyBars is how many closed bars Bootstrap fetches: enough to warm the
// slow EMA, fill the box window and seed the regime window.
func (w *Worker) historyBars() int {
	n := w.indicators.WarmupBars()
	if w.boxWindow > n {
		n = w.boxWindow
	}

	return n + w.regimeBars
}

// Bootstrap rebuilds all derived state from history: indicator series,
// big-trend classification, box bounds and the regime window. Called at
// startup and again whenever a data gap is detected.
func (w *Worker) Bootstrap(ctx context.Context) error {
	bars, err := w.data.GetHistoricalBars(ctx, w.symbol, w.interval, w.historyBars())
	if err != nil {
		return err
	}

	if len(bars) < w.historyBars() {
		return errors.NewInsufficientHistoryError(
			w.historyBars(), len(bars), w.symbol,
			"not enough history to bootstrap",
		)
	}

	w.indicators.Reset()
	w.bars = w.bars[:0]
	w.snapshots = w.snapshots[:0]

	for _, bar := range bars {
		snap, err := w.indicators.Update(bar)
		if err != nil {
			if errors.IsInsufficientHistory(err) {
				continue
			}

			return err
		}

		w.bigTrend.Classify(snap)
		w.pushWindow(bar, snap)
	}

	if err := w.box.Initialize(bars); err != nil {
		return err
	}

	w.lastBar = bars[len(bars)-1]

	w.logger.Info("bootstrap complete",
		zap.String("symbol", w.symbol),
		zap.Int("bars", len(bars)),
		zap.Float64("box_high", w.box.Box().High),
		zap.Float64("box_low", w.box.Box().Low))

	return nil
}

// Trigger queues one evaluation cycle. Triggers arriving while a cycle is
// already queued or running are coalesced.
func (w *Worker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run polls for new bars until the context is cancelled. Per-cycle errors
// are logged and isolated; only fatal errors (execution auth failures) stop
// the worker and, through the supervisor, the whole engine.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Trigger()
		case <-w.trigger:
			if err := w.EvaluateCycle(ctx); err != nil {
				if errors.IsFatal(err) {
					w.logger.Error("fatal error, stopping engine",
						zap.String("symbol", w.symbol), zap.Error(err))

					return err
				}

				w.logCycleError(err)
			}
		}
	}
}

// EvaluateCycle runs one decision cycle. A cycle with no new closed bar is a
// no-op; one new closed bar produces at most one order intent.
func (w *Worker) EvaluateCycle(ctx context.Context) error {
	bar, err := w.data.GetLatestClosedBar(ctx, w.symbol, w.interval)
	if err != nil {
		return err
	}

	if !bar.CloseTime.After(w.lastBar.CloseTime) {
		return nil
	}

	if err := marketdata.CheckContinuity(w.lastBar, bar); err != nil {
		w.logger.Warn("data gap detected, rebuilding from history",
			zap.String("symbol", w.symbol), zap.Error(err))

		return w.Bootstrap(ctx)
	}

	w.lastBar = bar

	snap, err := w.indicators.Update(bar)
	if err != nil {
		return err
	}

	recalced, err := w.box.Update(bar, snap.ATR)
	if err != nil {
		return err
	}

	if recalced {
		w.logger.Info("box recalculated",
			zap.String("symbol", w.symbol),
			zap.String("direction", string(w.box.Box().BreakoutDirection)),
			zap.Float64("high", w.box.Box().High),
			zap.Float64("low", w.box.Box().Low))
	}

	trend := w.bigTrend.Classify(snap)
	w.pushWindow(bar, snap)

	regime, err := w.regime.Detect(w.bars, w.snapshots, w.box.Box())
	if err != nil {
		return err
	}

	if w.manager.NeedsReconcile() {
		// The bar's derived state is already folded in; only the trade
		// decision is skipped until the venue view is adopted.
		if err := w.manager.Reconcile(ctx); err != nil {
			return err
		}
	}

	if pos := w.manager.Position(); pos.Status == types.PositionStatusOpen {
		if stop, tightened := w.signals.TrailStop(pos, bar.Close, snap.ATR); tightened {
			if err := w.manager.AdjustStop(stop); err != nil {
				return err
			}
		}
	}

	sig := w.signals.Evaluate(strategy.Evaluation{
		Bar:      bar,
		BigTrend: trend,
		Regime:   regime,
		Position: w.manager.Position(),
	})

	w.logger.Debug("cycle evaluated",
		zap.String("symbol", w.symbol),
		zap.Time("bar_close", bar.CloseTime),
		zap.String("trend", string(trend)),
		zap.String("regime", string(regime)),
		zap.String("signal", string(sig.Kind)))

	return w.act(ctx, sig, snap)
}

func (w *Worker) act(ctx context.Context, sig types.Signal, snap types.IndicatorSnapshot) error {
	switch sig.Kind {
	case types.SignalKindEnterLong, types.SignalKindEnterShort:
		params, err := w.equity.Snapshot(ctx, w.riskBudget)
		if err != nil {
			return err
		}

		order, err := w.sizer.BuildOrder(sig, params, snap.ATR)
		if err != nil {
			return err
		}

		w.logger.Info("submitting entry",
			zap.String("symbol", w.symbol),
			zap.String("side", string(order.Side)),
			zap.Float64("quantity", order.Quantity),
			zap.Float64("price", order.Price))

		return w.manager.Enter(ctx, order)
	case types.SignalKindExit:
		w.logger.Info("submitting exit",
			zap.String("symbol", w.symbol),
			zap.String("reason", sig.Reason))

		return w.manager.Exit(ctx, sig)
	default:
		return nil
	}
}

// pushWindow appends a bar and its snapshot to the aligned regime window,
// trimming to the confirmation length.
func (w *Worker) pushWindow(bar types.Bar, snap types.IndicatorSnapshot) {
	w.bars = append(w.bars, bar)
	w.snapshots = append(w.snapshots, snap)

	if len(w.bars) > w.regimeBars {
		w.bars = w.bars[len(w.bars)-w.regimeBars:]
		w.snapshots = w.snapshots[len(w.snapshots)-w.regimeBars:]
	}
}

func (w *Worker) logCycleError(err error) {
	switch {
	case errors.IsInsufficientHistory(err):
		w.logger.Debug("cycle skipped: warm-up incomplete",
			zap.String("symbol", w.symbol), zap.Error(err))
	case errors.IsDataGap(err):
		w.logger.Warn("cycle skipped: data gap",
			zap.String("symbol", w.symbol), zap.Error(err))
	default:
		w.logger.Error("cycle failed",
			zap.String("symbol", w.symbol), zap.Error(err))
	}
}
