package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestReturnWindow_FirstCloseYieldsZero(t *testing.T) {
	w := NewReturnWindow(5)

	mean := w.Update(decimal.NewFromInt(100))

	assert.True(t, mean.IsZero())
	assert.Equal(t, 0, w.Len())
}

func TestReturnWindow_RollingMean(t *testing.T) {
	w := NewReturnWindow(2)

	// 100 -> 101 is exactly +1%
	w.Update(decimal.NewFromInt(100))
	mean := w.Update(decimal.NewFromInt(101))
	assert.True(t, mean.Equal(decimal.NewFromInt(1)), "got %s", mean)

	// mean over [1%, (99-101)/101] turns negative
	mean = w.Update(decimal.NewFromInt(99))
	assert.True(t, mean.IsNegative(), "got %s", mean)
	assert.Equal(t, 2, w.Len())
}

// The rolling mean must equal the arithmetic mean of the last min(n-1, W)
// consecutive percentage changes.
func TestReturnWindow_MatchesArithmeticMean(t *testing.T) {
	const window = 3
	closes := []int64{100, 104, 99, 107, 103, 103, 111}

	w := NewReturnWindow(window)
	var got decimal.Decimal
	for _, c := range closes {
		got = w.Update(decimal.NewFromInt(c))
	}

	// independent computation over the tail of the series
	var pcts []decimal.Decimal
	for i := 1; i < len(closes); i++ {
		prev := decimal.NewFromInt(closes[i-1])
		cur := decimal.NewFromInt(closes[i])
		pcts = append(pcts, cur.Sub(prev).Div(prev))
	}
	pcts = pcts[len(pcts)-window:]
	sum := decimal.Zero
	for _, p := range pcts {
		sum = sum.Add(p)
	}
	want := sum.Div(decimal.NewFromInt(window)).Mul(decimal.NewFromInt(100))

	assert.True(t, got.Equal(want), "got %s want %s", got, want)
}

func TestReturnWindow_Eviction(t *testing.T) {
	w := NewReturnWindow(2)

	for _, c := range []int64{100, 110, 121, 133, 146} {
		w.Update(decimal.NewFromInt(c))
	}

	assert.Equal(t, 2, w.Len())
	assert.Len(t, w.closes, 3)
}

func TestReturnWindow_ZeroPreviousClose(t *testing.T) {
	w := NewReturnWindow(3)

	w.Update(decimal.Zero)
	mean := w.Update(decimal.NewFromInt(50))

	// division-by-zero guard: the step return is 0, not an error
	assert.True(t, mean.IsZero(), "got %s", mean)
}
