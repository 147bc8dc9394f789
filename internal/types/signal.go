package types

import "time"

type SignalKind string

const (
	// SignalKindEnterLong tells the lifecycle manager to open a long position.
	SignalKindEnterLong SignalKind = "enter_long"
	// SignalKindEnterShort tells the lifecycle manager to open a short position.
	SignalKindEnterShort SignalKind = "enter_short"
	// SignalKindExit tells the lifecycle manager to close the open position.
	SignalKindExit SignalKind = "exit"
	// SignalKindNoAction means no trade decision was made this bar.
	SignalKindNoAction SignalKind = "no_action"
)

// Well-known signal reasons.
const (
	SignalReasonTrendEntry = "trend_entry"
	SignalReasonStopLoss   = "stop_loss"
	SignalReasonTakeProfit = "take_profit"
	SignalReasonRegimeFlip = "regime_flip"
)

// Signal is a discrete entry/exit decision emitted at most once per bar
// evaluation per symbol. Signals are ephemeral: produced, consumed by the
// lifecycle manager, never persisted.
type Signal struct {
	// Time is the close time of the bar the signal was derived from.
	Time time.Time
	// Kind is the kind of the signal.
	Kind SignalKind
	// Reason explains why the signal fired.
	Reason string
	// ReferencePrice is the price the decision was based on (the bar close).
	ReferencePrice float64
	// Symbol is the instrument the signal applies to.
	Symbol string
}

type BigTrend string

const (
	BigTrendBullish BigTrend = "BULLISH"
	BigTrendBearish BigTrend = "BEARISH"
)

type MarketRegime string

const (
	RegimeTrendingUp   MarketRegime = "TRENDING_UP"
	RegimeTrendingDown MarketRegime = "TRENDING_DOWN"
	RegimeRangeBound   MarketRegime = "RANGE_BOUND"
)
