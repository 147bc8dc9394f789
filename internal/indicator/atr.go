package indicator

import (
	"math"

	"github.com/rxtech-lab/trendbox/internal/types"
)

// atr is an incremental Average True Range: the true range of each bar
// smoothed by an EMA, the same smoothing the EMA calculator uses.
type atr struct {
	smoother  *ema
	prevClose float64
	hasPrev   bool
}

func newATR(period int) *atr {
	return &atr{smoother: newEMA(period)}
}

func (a *atr) update(bar types.Bar) {
	tr := bar.High - bar.Low
	if a.hasPrev {
		tr = math.Max(
			math.Max(
				bar.High-bar.Low,
				math.Abs(bar.High-a.prevClose),
			),
			math.Abs(bar.Low-a.prevClose),
		)
	}

	a.smoother.update(tr)
	a.prevClose = bar.Close
	a.hasPrev = true
}

func (a *atr) value() float64 {
	return a.smoother.value
}

func (a *atr) ready() bool {
	return a.smoother.ready()
}
