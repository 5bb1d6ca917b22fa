package statistics

import (
	"github.com/shopspring/decimal"
)

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendSteady  Trend = "steady"
)

// Trend is the direction in which a series of readings is moving.
type Trend string

// MovingWindow keeps the most recent readings of a series in a fixed-size ring and maintains their sum.
type MovingWindow struct {
	window int64
	n      int64
	values []decimal.Decimal
	next   int64 // Slot that the next reading is written to.
	sum    decimal.Decimal
}

func NewMovingWindow(window int64) *MovingWindow {
	if window < 1 {
		window = 1
	}

	return &MovingWindow{
		window: window,
		values: make([]decimal.Decimal, window),
		sum:    decimal.Zero,
	}
}

// Add records a reading, evicting the oldest one once the window is full.
func (w *MovingWindow) Add(val decimal.Decimal) {
	if w.n == w.window {
		w.sum = w.sum.Sub(w.values[w.next])
	} else {
		w.n += 1
	}

	w.values[w.next] = val
	w.sum = w.sum.Add(val)
	w.next = (w.next + 1) % w.window
}

func (w *MovingWindow) AddFloat(val float64) {
	w.Add(decimal.NewFromFloat(val))
}

func (w *MovingWindow) Window() int64 {
	return w.window
}

func (w *MovingWindow) N() int64 {
	return w.n
}

func (w *MovingWindow) Sum() decimal.Decimal {
	return w.sum
}

func (w *MovingWindow) Avg() decimal.Decimal {
	if w.n == 0 {
		return decimal.Zero
	}

	return w.sum.Div(decimal.NewFromInt(w.n))
}

// Last returns the most recent reading.
func (w *MovingWindow) Last() decimal.Decimal {
	return w.LastN(1)
}

// LastN returns the reading recorded n readings ago, where 1 is the most recent one.
// n is clamped to the number of readings held.
func (w *MovingWindow) LastN(n int64) decimal.Decimal {
	if w.n == 0 {
		return decimal.Zero
	}

	if n > w.n {
		n = w.n
	}

	if n < 1 {
		n = 1
	}

	return w.values[(w.next-n+w.window)%w.window]
}

// Oldest returns the least recent reading still held.
func (w *MovingWindow) Oldest() decimal.Decimal {
	return w.LastN(w.n)
}

// PopulationVariance computes and returns the population variance of the readings currently in the window.
func (w *MovingWindow) PopulationVariance() decimal.Decimal {
	if w.n == 0 {
		return decimal.Zero
	}

	return w.squaredDeviations().Div(decimal.NewFromInt(w.n))
}

// PopulationStandardDeviation computes and returns the population standard deviation of the readings currently in the window.
func (w *MovingWindow) PopulationStandardDeviation() decimal.Decimal {
	return w.PopulationVariance().Pow(decimal.NewFromFloat(0.5))
}

func (w *MovingWindow) squaredDeviations() decimal.Decimal {
	avg := w.Avg()
	total := decimal.Zero

	for i := int64(1); i <= w.n; i++ {
		diff := w.LastN(i).Sub(avg)
		total = total.Add(diff.Mul(diff))
	}

	return total
}

// Slope returns the average change per reading across the window.
func (w *MovingWindow) Slope() decimal.Decimal {
	if w.n < 2 {
		return decimal.Zero
	}

	return w.Last().Sub(w.Oldest()).Div(decimal.NewFromInt(w.n - 1))
}

// Trend classifies the slope of the window. Slopes whose magnitude does not exceed tolerance are steady.
func (w *MovingWindow) Trend(tolerance decimal.Decimal) Trend {
	slope := w.Slope()

	switch {
	case slope.GreaterThan(tolerance):
		return TrendRising
	case slope.LessThan(tolerance.Neg()):
		return TrendFalling
	default:
		return TrendSteady
	}
}
