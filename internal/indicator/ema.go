package indicator

// ema is an incremental exponential moving average. The first `period`
// values are accumulated into a simple average seed; after that the standard
// recurrence applies: ema += (value - ema) * 2/(period+1).
type ema struct {
	period int
	count  int
	sum    float64
	value  float64
}

func newEMA(period int) *ema {
	return &ema{period: period}
}

func (e *ema) update(v float64) {
	e.count++

	if e.count < e.period {
		e.sum += v

		return
	}

	if e.count == e.period {
		e.sum += v
		e.value = e.sum / float64(e.period)

		return
	}

	multiplier := 2.0 / (float64(e.period) + 1.0)
	e.value += (v - e.value) * multiplier
}

// ready reports whether enough values have been observed for the average to
// be meaningful.
func (e *ema) ready() bool {
	return e.count >= e.period
}
