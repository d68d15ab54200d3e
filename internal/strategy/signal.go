package strategy

import (
	"github.com/shopspring/decimal"
)

// Signal is the directional decision derived from the rolling mean return.
type Signal int

const (
	SignalShort   Signal = -1
	SignalNeutral Signal = 0
	SignalLong    Signal = 1
)

func (s Signal) String() string {
	switch s {
	case SignalLong:
		return "LONG"
	case SignalShort:
		return "SHORT"
	default:
		return "NEUTRAL"
	}
}

// Generator 根据滚动收益率产生交易信号. With confirmation > 1 a signal only
// becomes actionable once the last `confirmation` raw signals agree, which
// suppresses single-candle noise.
type Generator struct {
	longThreshold  decimal.Decimal
	shortThreshold decimal.Decimal
	recent         []Signal
	next           int
	count          int
}

func NewGenerator(longThreshold, shortThreshold float64, confirmation int) *Generator {
	if confirmation < 1 {
		confirmation = 1
	}
	return &Generator{
		longThreshold:  decimal.NewFromFloat(longThreshold),
		shortThreshold: decimal.NewFromFloat(shortThreshold),
		recent:         make([]Signal, confirmation),
	}
}

// Raw maps a mean return (in percent) to a signal using the configured thresholds.
func (g *Generator) Raw(meanReturnPct decimal.Decimal) Signal {
	if meanReturnPct.GreaterThan(g.longThreshold) {
		return SignalLong
	}
	if meanReturnPct.LessThan(g.shortThreshold) {
		return SignalShort
	}
	return SignalNeutral
}

// Compute pushes the raw signal into the confirmation ring buffer and reports
// whether it is actionable. A non-actionable signal means "hold previous state".
func (g *Generator) Compute(meanReturnPct decimal.Decimal) (Signal, bool) {
	raw := g.Raw(meanReturnPct)

	g.recent[g.next] = raw
	g.next = (g.next + 1) % len(g.recent)
	if g.count < len(g.recent) {
		g.count++
	}

	if g.count < len(g.recent) {
		return raw, false
	}
	for _, s := range g.recent {
		if s != raw {
			return raw, false
		}
	}
	return raw, true
}
