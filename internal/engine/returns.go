package engine

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ReturnWindow 滚动收益率窗口: keeps the last window+1 closes and the
// window percentage changes derived from consecutive pairs.
type ReturnWindow struct {
	window  int
	closes  []decimal.Decimal
	returns []decimal.Decimal
}

func NewReturnWindow(window int) *ReturnWindow {
	return &ReturnWindow{
		window:  window,
		closes:  make([]decimal.Decimal, 0, window+1),
		returns: make([]decimal.Decimal, 0, window),
	}
}

// Update feeds a new close and returns the rolling mean return in percent.
// The first close produces no return; a zero previous close yields a zero
// return (a real feed edge case, not an error).
func (w *ReturnWindow) Update(close decimal.Decimal) decimal.Decimal {
	if len(w.closes) > 0 {
		prev := w.closes[len(w.closes)-1]
		pct := decimal.Zero
		if !prev.IsZero() {
			pct = close.Sub(prev).Div(prev)
		}
		w.returns = append(w.returns, pct)
		if len(w.returns) > w.window {
			w.returns = w.returns[1:]
		}
	}

	w.closes = append(w.closes, close)
	if len(w.closes) > w.window+1 {
		w.closes = w.closes[1:]
	}

	if len(w.returns) == 0 {
		return decimal.Zero
	}

	sum := decimal.Zero
	for _, r := range w.returns {
		sum = sum.Add(r)
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(w.returns))))
	return mean.Mul(hundred)
}

// Len reports how many returns are currently buffered.
func (w *ReturnWindow) Len() int {
	return len(w.returns)
}
