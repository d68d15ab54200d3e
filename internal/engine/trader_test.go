package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"delta-trader/internal/model"
	"delta-trader/internal/strategy"
)

func newTestTrader(maxTrades int, maxDrawdown float64) *Trader {
	return NewTrader(TraderParams{
		Symbol:       "ETHUSD",
		Size:         decimal.NewFromInt(1),
		ExitDeadband: decimal.NewFromFloat(0.005),
		StartBalance: decimal.NewFromInt(100000),
		MaxTrades:    maxTrades,
		MaxDrawdown:  decimal.NewFromFloat(maxDrawdown),
	})
}

func candleAt(ts int64, close int64) model.Candle {
	return model.Candle{Symbol: "ETHUSD", Timestamp: ts, Close: decimal.NewFromInt(close)}
}

// Full pipeline walk-through: window W=2, thresholds +-0.1, size 1, start
// balance 100000, closes 100, 101, 99, 98, 105.
func TestTrader_Scenario(t *testing.T) {
	window := NewReturnWindow(2)
	gen := strategy.NewGenerator(0.1, -0.1, 1)
	trader := newTestTrader(100, -5000)

	feed := func(ts, close int64) []Event {
		c := candleAt(ts, close)
		ret := window.Update(c.Close)
		sig, ok := gen.Compute(ret)
		events, _ := trader.OnCandle(c, sig, ok, ret)
		return events
	}

	// c=100: no prior close, neutral, FLAT holds
	events := feed(1, 100)
	assert.Empty(t, events)
	assert.Equal(t, model.PositionFlat, trader.State().Position.Side)

	// c=101: mean=+1.0% -> enter LONG@101
	events = feed(2, 101)
	assert.Len(t, events, 1)
	assert.Equal(t, EventEnter, events[0].Type)
	assert.Equal(t, model.PositionLong, events[0].Position)
	assert.Equal(t, model.SideBuy, events[0].Order.Side)
	assert.Equal(t, 1, trader.State().TradeCount)

	// c=99: mean=-0.49% -> exit LONG@99 (PnL -2), enter SHORT@99
	events = feed(3, 99)
	assert.Len(t, events, 2)
	assert.Equal(t, EventExit, events[0].Type)
	assert.True(t, events[0].PnL.Equal(decimal.NewFromInt(-2)), "PnL=%s", events[0].PnL)
	assert.Equal(t, EventEnter, events[1].Type)
	assert.Equal(t, model.SideSell, events[1].Order.Side)
	assert.True(t, trader.State().Balance.Equal(decimal.NewFromInt(99998)))
	assert.Equal(t, 2, trader.State().TradeCount)

	// c=98: mean=-1.50% -> still SHORT, no-op
	events = feed(4, 98)
	assert.Empty(t, events)

	// c=105: mean=+3.07% -> exit SHORT@105 (PnL -6), enter LONG@105
	events = feed(5, 105)
	assert.Len(t, events, 2)
	assert.True(t, events[0].PnL.Equal(decimal.NewFromInt(-6)), "PnL=%s", events[0].PnL)

	state := trader.State()
	assert.True(t, state.Balance.Equal(decimal.NewFromInt(99992)), "balance=%s", state.Balance)
	assert.Equal(t, 3, state.TradeCount)
	assert.Equal(t, model.PositionLong, state.Position.Side)
	assert.True(t, state.Position.EntryPrice.Equal(decimal.NewFromInt(105)))
}

func TestTrader_TradeCountOnlyOnEntries(t *testing.T) {
	trader := newTestTrader(100, -5000)

	trader.OnCandle(candleAt(1, 100), strategy.SignalLong, true, decimal.NewFromInt(1))
	assert.Equal(t, 1, trader.State().TradeCount)

	// neutral inside deadband closes the position without counting a trade
	trader.OnCandle(candleAt(2, 110), strategy.SignalNeutral, true, decimal.NewFromFloat(0.001))
	state := trader.State()
	assert.Equal(t, model.PositionFlat, state.Position.Side)
	assert.Equal(t, 1, state.TradeCount)
	assert.True(t, state.Balance.Equal(decimal.NewFromInt(100010)), "balance=%s", state.Balance)
}

func TestTrader_ShortProfitsWhenPriceFalls(t *testing.T) {
	trader := newTestTrader(100, -5000)

	trader.OnCandle(candleAt(1, 100), strategy.SignalShort, true, decimal.NewFromInt(-1))
	trader.OnCandle(candleAt(2, 90), strategy.SignalNeutral, true, decimal.Zero)

	assert.True(t, trader.State().Balance.Equal(decimal.NewFromInt(100010)))
}

func TestTrader_DeadbandHoldsPosition(t *testing.T) {
	trader := newTestTrader(100, -5000)

	trader.OnCandle(candleAt(1, 100), strategy.SignalLong, true, decimal.NewFromInt(1))

	// neutral signal but |ret| >= deadband: hold
	events, _ := trader.OnCandle(candleAt(2, 90), strategy.SignalNeutral, true, decimal.NewFromFloat(0.01))
	assert.Empty(t, events)
	assert.Equal(t, model.PositionLong, trader.State().Position.Side)
}

func TestTrader_UnconfirmedSignalIsNoOp(t *testing.T) {
	trader := newTestTrader(100, -5000)

	events, _ := trader.OnCandle(candleAt(1, 100), strategy.SignalLong, false, decimal.NewFromInt(1))
	assert.Empty(t, events)
	assert.Equal(t, model.PositionFlat, trader.State().Position.Side)
}

func TestTrader_KillSwitchMaxTrades(t *testing.T) {
	trader := newTestTrader(2, -5000)

	events, _ := trader.OnCandle(candleAt(1, 100), strategy.SignalLong, true, decimal.NewFromInt(1))
	assert.False(t, trader.Halted(), "one trade must not halt yet")
	assert.Len(t, events, 1)

	// flip to short: exit + enter, trade count hits exactly 2
	events, _ = trader.OnCandle(candleAt(2, 101), strategy.SignalShort, true, decimal.NewFromInt(-1))
	assert.True(t, trader.Halted())
	assert.Equal(t, "max trades reached", trader.HaltReason())
	assert.Equal(t, EventHalt, events[len(events)-1].Type)

	// halting is terminal: further candles are ignored
	events, _ = trader.OnCandle(candleAt(3, 200), strategy.SignalLong, true, decimal.NewFromInt(5))
	assert.Empty(t, events)
	assert.Equal(t, 2, trader.State().TradeCount)
}

func TestTrader_KillSwitchDrawdown(t *testing.T) {
	trader := NewTrader(TraderParams{
		Symbol:       "ETHUSD",
		Size:         decimal.NewFromInt(1),
		ExitDeadband: decimal.NewFromFloat(0.005),
		StartBalance: decimal.NewFromInt(100),
		MaxTrades:    100,
		MaxDrawdown:  decimal.NewFromInt(-5),
	})

	trader.OnCandle(candleAt(1, 100), strategy.SignalLong, true, decimal.NewFromInt(1))

	// lose exactly 4: above the threshold, keeps running
	trader.OnCandle(candleAt(2, 96), strategy.SignalNeutral, true, decimal.Zero)
	assert.False(t, trader.Halted())

	trader.OnCandle(candleAt(3, 100), strategy.SignalShort, true, decimal.NewFromInt(-1))

	// lose one more to hit -5 exactly: the boundary halts
	trader.OnCandle(candleAt(4, 101), strategy.SignalNeutral, true, decimal.Zero)
	assert.True(t, trader.Halted())
	assert.Equal(t, "max drawdown breached", trader.HaltReason())
	assert.True(t, trader.State().Balance.Equal(decimal.NewFromInt(95)))
}

func TestTrader_EquityCurveRecordsEverySample(t *testing.T) {
	trader := newTestTrader(100, -5000)

	trader.OnCandle(candleAt(1, 100), strategy.SignalNeutral, true, decimal.Zero)
	trader.OnCandle(candleAt(2, 101), strategy.SignalLong, true, decimal.NewFromInt(1))

	curve := trader.EquityCurve()
	assert.Len(t, curve, 2)
	assert.Equal(t, int64(1), curve[0].Timestamp)
	assert.Equal(t, model.PositionFlat, curve[0].Position)
	assert.Equal(t, model.PositionLong, curve[1].Position)
}
