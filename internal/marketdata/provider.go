// Package marketdata abstracts the source of closed OHLCV bars.
package marketdata

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rxtech-lab/trendbox/internal/types"
	"github.com/rxtech-lab/trendbox/pkg/errors"
)

// Provider supplies closed bars for a symbol. Implementations must only ever
// return fully closed bars: a bar whose interval has not elapsed yet is not
// data.
type Provider interface {
	// GetLatestClosedBar returns the most recent fully closed bar.
	GetLatestClosedBar(ctx context.Context, symbol string, interval string) (types.Bar, error)
	// GetHistoricalBars returns up to limit closed bars ending at the most
	// recent closed bar, oldest first.
	GetHistoricalBars(ctx context.Context, symbol string, interval string, limit int) ([]types.Bar, error)
}

// IntervalDuration parses a Binance-style interval string ("1m", "4h", "1d",
// "1w") into a duration.
func IntervalDuration(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid interval: %q", interval)
	}

	value, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || value <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid interval: %q", interval)
	}

	switch strings.ToLower(interval[len(interval)-1:]) {
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	case "w":
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid interval: %q", interval)
	}
}

// CheckContinuity verifies that next immediately follows prev on the bar
// grid. A gap returns a DataGapError so the caller can rebuild its indicator
// state from history instead of silently skipping bars.
func CheckContinuity(prev, next types.Bar) error {
	if prev.CloseTime.IsZero() {
		return nil
	}

	gap, err := IntervalDuration(next.Interval)
	if err != nil {
		return err
	}

	expected := prev.OpenTime.Add(gap)
	if !next.OpenTime.Equal(expected) {
		return &errors.DataGapError{
			Symbol:   next.Symbol,
			Expected: expected,
			Actual:   next.OpenTime,
		}
	}

	return nil
}
