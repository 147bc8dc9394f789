// Package engine wires the per-symbol decision pipeline together and
// supervises one worker goroutine per instrument.
package engine

import (
	"context"

	"github.com/rxtech-lab/trendbox/internal/broker"
	"github.com/rxtech-lab/trendbox/internal/config"
	"github.com/rxtech-lab/trendbox/internal/indicator"
	"github.com/rxtech-lab/trendbox/internal/logger"
	"github.com/rxtech-lab/trendbox/internal/marketdata"
	"github.com/rxtech-lab/trendbox/internal/notifier"
	"github.com/rxtech-lab/trendbox/internal/position"
	"github.com/rxtech-lab/trendbox/internal/risk"
	"github.com/rxtech-lab/trendbox/internal/statestore"
	"github.com/rxtech-lab/trendbox/internal/strategy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine owns one worker per configured symbol plus the shared collaborators
// (state store, broker, equity tracker, notifier). Symbols never share
// strategy state; an error on one symbol's cycle does not touch the others.
type Engine struct {
	cfg     *config.Config
	logger  *logger.Logger
	store   *statestore.Store
	workers []*Worker
}

// Deps are the engine's external collaborators. Tests inject mocks here;
// production wiring comes from NewFromConfig.
type Deps struct {
	Data      marketdata.Provider
	Execution broker.ExecutionProvider
	Account   broker.AccountProvider
	Notifier  notifier.Notifier
	Store     *statestore.Store
}

// New creates an engine from explicit collaborators.
func New(cfg *config.Config, deps Deps, log *logger.Logger) (*Engine, error) {
	if deps.Notifier == nil {
		deps.Notifier = notifier.NopNotifier{}
	}

	equity := NewEquityTracker(deps.Account, 0)

	e := &Engine{
		cfg:    cfg,
		logger: log,
		store:  deps.Store,
	}

	for _, symbol := range cfg.Symbols {
		indicators, err := indicator.NewEngine(symbol, cfg.Strategy.Indicators)
		if err != nil {
			return nil, err
		}

		manager, err := position.NewManager(symbol, cfg.Position, deps.Execution, deps.Store, deps.Notifier, log)
		if err != nil {
			return nil, err
		}

		worker := NewWorker(
			WorkerParams{
				Symbol:       symbol,
				Interval:     cfg.Interval,
				PollInterval: cfg.PollInterval.Std(),
				RiskBudget: RiskBudget{
					RiskPerTrade:        cfg.Risk.RiskPerTrade,
					MaxPositionFraction: cfg.Risk.MaxPositionFraction,
				},
				RegimeBars: cfg.Strategy.Regime.ConfirmationBars,
				BoxWindow:  cfg.Strategy.Box.Window,
			},
			WorkerDeps{
				Data:       deps.Data,
				Equity:     equity,
				Indicators: indicators,
				BigTrend:   strategy.NewBigTrendClassifier(cfg.Strategy.BigTrend),
				Box:        strategy.NewBoxTracker(cfg.Strategy.Box),
				Regime:     strategy.NewRegimeDetector(cfg.Strategy.Regime),
				Signals:    strategy.NewSignalGenerator(cfg.Strategy.Signal),
				Sizer:      risk.NewSizer(cfg.Strategy.Levels),
				Manager:    manager,
				Logger:     log,
			},
		)

		e.workers = append(e.workers, worker)
	}

	return e, nil
}

// NewFromConfig creates an engine with production collaborators: Binance for
// market data, execution and account state, DuckDB for persistence and the
// configured webhook for notifications.
func NewFromConfig(cfg *config.Config, log *logger.Logger) (*Engine, error) {
	store, err := statestore.NewStore(cfg.StatePath, log)
	if err != nil {
		return nil, err
	}

	binanceBroker := broker.NewBinanceBroker(cfg.Binance)

	var n notifier.Notifier = notifier.NopNotifier{}
	if cfg.Notifier != nil {
		n = notifier.NewWebhookNotifier(*cfg.Notifier)
	}

	deps := Deps{
		Data:      marketdata.NewBinanceProvider(cfg.Binance.BaseURL),
		Execution: binanceBroker,
		Account:   binanceBroker,
		Notifier:  n,
		Store:     store,
	}

	engine, err := New(cfg, deps, log)
	if err != nil {
		store.Close()

		return nil, err
	}

	return engine, nil
}

// Run bootstraps every worker, then runs them until the context is
// cancelled or a fatal error occurs. A fatal error on any worker cancels
// the whole group.
func (e *Engine) Run(ctx context.Context) error {
	for _, w := range e.workers {
		if err := w.Bootstrap(ctx); err != nil {
			return err
		}
	}

	e.logger.Info("engine started",
		zap.Strings("symbols", e.cfg.Symbols),
		zap.String("interval", e.cfg.Interval))

	g, ctx := errgroup.WithContext(ctx)

	for _, w := range e.workers {
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	return g.Wait()
}

// Close releases the engine's shared resources.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}

	return nil
}
