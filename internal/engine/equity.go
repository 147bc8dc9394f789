package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/trendbox/internal/broker"
	"github.com/rxtech-lab/trendbox/internal/types"
)

// defaultEquityMaxAge bounds how stale an equity snapshot may be before a
// sizing computation forces a refresh.
const defaultEquityMaxAge = 10 * time.Second

// EquityTracker serves point-in-time equity snapshots to all workers from a
// single account provider. Sizing never uses equity older than maxAge, and
// concurrent workers share one refresh instead of hammering the account
// endpoint.
type EquityTracker struct {
	account broker.AccountProvider
	maxAge  time.Duration
	now     func() time.Time

	mu          sync.Mutex
	equity      float64
	refreshedAt time.Time
}

// NewEquityTracker creates an equity tracker. maxAge <= 0 uses the default.
func NewEquityTracker(account broker.AccountProvider, maxAge time.Duration) *EquityTracker {
	if maxAge <= 0 {
		maxAge = defaultEquityMaxAge
	}

	return &EquityTracker{
		account: account,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Snapshot returns a fresh equity snapshot, refreshing from the account
// provider when the cached value is too old.
func (t *EquityTracker) Snapshot(ctx context.Context, risk RiskBudget) (types.RiskParameters, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()

	if t.refreshedAt.IsZero() || now.Sub(t.refreshedAt) > t.maxAge {
		equity, err := t.account.GetEquity(ctx)
		if err != nil {
			return types.RiskParameters{}, err
		}

		t.equity = equity
		t.refreshedAt = now
	}

	return types.RiskParameters{
		RiskPerTrade:        risk.RiskPerTrade,
		MaxPositionFraction: risk.MaxPositionFraction,
		Equity:              t.equity,
		RefreshedAt:         t.refreshedAt,
	}, nil
}

// RiskBudget is the static part of the risk parameters.
type RiskBudget struct {
	RiskPerTrade        float64
	MaxPositionFraction float64
}
