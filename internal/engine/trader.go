package engine

import (
	"github.com/shopspring/decimal"

	"delta-trader/internal/model"
	"delta-trader/internal/strategy"
)

type EventType string

const (
	EventEnter EventType = "enter"
	EventExit  EventType = "exit"
	EventHalt  EventType = "halt"
)

// Event is an effect emitted by a state transition. All I/O (order submission,
// logging, persistence) happens outside the transition logic, driven by these.
type Event struct {
	Type     EventType
	Position model.PositionSide
	Order    *model.OrderIntent // set on entries only
	Price    decimal.Decimal
	PnL      decimal.Decimal // set on exits only
	Balance  decimal.Decimal
	Reason   string // set on halt only
}

// State is the full mutable state owned by the trader: position and account.
type State struct {
	Position   model.Position
	Balance    decimal.Decimal
	TradeCount int
}

// TraderParams carries the configured risk and sizing knobs.
type TraderParams struct {
	Symbol       string
	Size         decimal.Decimal
	ExitDeadband decimal.Decimal
	StartBalance decimal.Decimal
	MaxTrades    int
	MaxDrawdown  decimal.Decimal // negative
}

// Trader drives the FLAT/LONG/SHORT state machine over incoming candles and
// enforces the trade-count and drawdown kill-switches.
type Trader struct {
	params TraderParams

	state      State
	halted     bool
	haltReason string
	equity     []model.EquityPoint
}

func NewTrader(params TraderParams) *Trader {
	return &Trader{
		params: params,
		state: State{
			Position: model.Position{Side: model.PositionFlat, Size: params.Size},
			Balance:  params.StartBalance,
		},
	}
}

// step is a pure transition function: identical (state, signal, price, ret)
// always produce identical (state, events).
func step(st State, sig strategy.Signal, actionable bool, price, meanRet decimal.Decimal, p TraderParams) (State, []Event) {
	if !actionable {
		return st, nil
	}

	var events []Event

	enter := func(side model.PositionSide, orderSide model.Side) {
		st.Position.Side = side
		st.Position.EntryPrice = price
		st.TradeCount++
		events = append(events, Event{
			Type:     EventEnter,
			Position: side,
			Order:    &model.OrderIntent{Symbol: p.Symbol, Side: orderSide, Size: p.Size},
			Price:    price,
			Balance:  st.Balance,
		})
	}

	exit := func() {
		var pnl decimal.Decimal
		if st.Position.Side == model.PositionLong {
			pnl = price.Sub(st.Position.EntryPrice).Mul(p.Size)
		} else {
			pnl = st.Position.EntryPrice.Sub(price).Mul(p.Size)
		}
		st.Balance = st.Balance.Add(pnl)
		closed := st.Position.Side
		st.Position.Side = model.PositionFlat
		st.Position.EntryPrice = decimal.Zero
		// exits do not count as trades, only entries do
		events = append(events, Event{
			Type:     EventExit,
			Position: closed,
			Price:    price,
			PnL:      pnl,
			Balance:  st.Balance,
		})
	}

	withinDeadband := meanRet.Abs().LessThan(p.ExitDeadband)

	switch st.Position.Side {
	case model.PositionFlat:
		switch sig {
		case strategy.SignalLong:
			enter(model.PositionLong, model.SideBuy)
		case strategy.SignalShort:
			enter(model.PositionShort, model.SideSell)
		}
	case model.PositionLong:
		switch {
		case sig == strategy.SignalShort:
			exit()
			enter(model.PositionShort, model.SideSell)
		case sig == strategy.SignalNeutral && withinDeadband:
			exit()
		}
	case model.PositionShort:
		switch {
		case sig == strategy.SignalLong:
			exit()
			enter(model.PositionLong, model.SideBuy)
		case sig == strategy.SignalNeutral && withinDeadband:
			exit()
		}
	}

	return st, events
}

// OnCandle applies one candle worth of signal to the state machine and returns
// the emitted effects plus the equity sample for this candle. Once a
// kill-switch fires the trader is halted for good and further candles are
// ignored.
func (t *Trader) OnCandle(candle model.Candle, sig strategy.Signal, actionable bool, meanRet decimal.Decimal) ([]Event, model.EquityPoint) {
	point := model.EquityPoint{
		Timestamp: candle.Timestamp,
		Balance:   t.state.Balance,
		Position:  t.state.Position.Side,
		Price:     candle.Close,
	}
	if t.halted {
		return nil, point
	}

	newState, events := step(t.state, sig, actionable, candle.Close, meanRet, t.params)
	t.state = newState

	point.Balance = t.state.Balance
	point.Position = t.state.Position.Side
	t.equity = append(t.equity, point)

	if reason := t.killSwitch(); reason != "" {
		t.halted = true
		t.haltReason = reason
		events = append(events, Event{
			Type:    EventHalt,
			Price:   candle.Close,
			Balance: t.state.Balance,
			Reason:  reason,
		})
	}

	return events, point
}

func (t *Trader) killSwitch() string {
	if t.state.TradeCount >= t.params.MaxTrades {
		return "max trades reached"
	}
	if t.state.Balance.Sub(t.params.StartBalance).LessThanOrEqual(t.params.MaxDrawdown) {
		return "max drawdown breached"
	}
	return ""
}

// Halted reports whether a kill-switch has fired.
func (t *Trader) Halted() bool { return t.halted }

// HaltReason returns the kill-switch description, empty while running.
func (t *Trader) HaltReason() string { return t.haltReason }

// State returns a copy of the current position and account state.
func (t *Trader) State() State { return t.state }

// EquityCurve returns a copy of the recorded equity samples.
func (t *Trader) EquityCurve() []model.EquityPoint {
	out := make([]model.EquityPoint, len(t.equity))
	copy(out, t.equity)
	return out
}
