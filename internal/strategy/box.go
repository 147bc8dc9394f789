package strategy

import (
	"time"

	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
)

// Box tracker defaults, from the strategy's 4h configuration.
const (
	DefaultBoxWindow      = 70
	DefaultBoxEscapeMult  = 2.0
	DefaultBoxConfirmBars = 3
)

type BreakoutDirection string

const (
	BreakoutNone BreakoutDirection = "NONE"
	BreakoutUp   BreakoutDirection = "UP"
	BreakoutDown BreakoutDirection = "DOWN"
)

// Box is the current support/resistance channel. High >= Low always.
type Box struct {
	High              float64
	Low               float64
	LastRecalc        time.Time
	BreakoutStreak    int
	BreakoutDirection BreakoutDirection
}

// BoxConfig controls the box tracker.
type BoxConfig struct {
	// Window is the lookback used to compute the channel bounds.
	Window int `yaml:"window"`
	// EscapeATRMult is how many ATRs beyond the bound a close must be to
	// count toward a breakout.
	EscapeATRMult float64 `yaml:"escape_atr_mult"`
	// ConfirmBars is how many consecutive breakout closes trigger a
	// recalculation.
	ConfirmBars int `yaml:"confirm_bars"`
}

func (c *BoxConfig) setDefaults() {
	if c.Window <= 0 {
		c.Window = DefaultBoxWindow
	}

	if c.EscapeATRMult <= 0 {
		c.EscapeATRMult = DefaultBoxEscapeMult
	}

	if c.ConfirmBars <= 0 {
		c.ConfirmBars = DefaultBoxConfirmBars
	}
}

// BoxTracker maintains a fixed support/resistance channel over a rolling bar
// window. The channel is not adjusted incrementally: it is recomputed in full
// only after ConfirmBars consecutive closes beyond the band, which suppresses
// single-bar false breakouts while keeping the band tight after a genuine
// regime change. The recomputed window includes the bars that triggered the
// breakout. Not safe for concurrent use.
type BoxTracker struct {
	cfg         BoxConfig
	bars        []types.Bar
	box         Box
	initialized bool
}

// NewBoxTracker creates a box tracker.
func NewBoxTracker(cfg BoxConfig) *BoxTracker {
	cfg.setDefaults()

	return &BoxTracker{
		cfg:  cfg,
		bars: make([]types.Bar, 0, cfg.Window),
	}
}

// Initialize seeds the tracker with historical bars and computes the initial
// channel from the most recent Window bars. Requires at least Window bars.
func (t *BoxTracker) Initialize(bars []types.Bar) error {
	if len(bars) < t.cfg.Window {
		return errors.NewInsufficientHistoryError(
			t.cfg.Window, len(bars), symbolOf(bars),
			"not enough bars to initialize box",
		)
	}

	t.bars = append(t.bars[:0], bars[len(bars)-t.cfg.Window:]...)
	t.recalc()
	t.box.BreakoutStreak = 0
	t.box.BreakoutDirection = BreakoutNone
	t.initialized = true

	return nil
}

// Update folds one closed bar into the window and applies the breakout rule.
// Returns true when the channel was recalculated.
func (t *BoxTracker) Update(bar types.Bar, atr float64) (bool, error) {
	if !t.initialized {
		return false, errors.New(errors.ErrCodeBoxNotInitialized, "box tracker not initialized")
	}

	t.bars = append(t.bars, bar)
	if len(t.bars) > t.cfg.Window {
		t.bars = t.bars[len(t.bars)-t.cfg.Window:]
	}

	escape := atr * t.cfg.EscapeATRMult
	breakoutUp := bar.Close > t.box.High+escape
	breakoutDown := bar.Close < t.box.Low-escape

	if breakoutUp || breakoutDown {
		t.box.BreakoutStreak++
	} else {
		t.box.BreakoutStreak = 0
	}

	if t.box.BreakoutStreak < t.cfg.ConfirmBars {
		return false, nil
	}

	// Confirmed breakout: full recomputation over the trailing window,
	// including the bars that triggered it.
	direction := BreakoutUp
	if breakoutDown {
		direction = BreakoutDown
	}

	t.recalc()
	t.box.BreakoutStreak = 0
	t.box.BreakoutDirection = direction
	t.box.LastRecalc = bar.CloseTime

	return true, nil
}

// Box returns the current channel.
func (t *BoxTracker) Box() Box {
	return t.box
}

func (t *BoxTracker) recalc() {
	high := t.bars[0].High
	low := t.bars[0].Low

	for _, b := range t.bars[1:] {
		if b.High > high {
			high = b.High
		}

		if b.Low < low {
			low = b.Low
		}
	}

	t.box.High = high
	t.box.Low = low
}

func symbolOf(bars []types.Bar) string {
	if len(bars) == 0 {
		return ""
	}

	return bars[0].Symbol
}
