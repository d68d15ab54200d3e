package model

import (
	"github.com/shopspring/decimal"
)

// Candle 代表一根已收盘的K线 (close-only, Delta candlestick channel)
type Candle struct {
	Symbol    string          `json:"symbol"`
	Timestamp int64           `json:"candle_start_time"`
	Close     decimal.Decimal `json:"close"`
}

// Side is the order direction sent to the exchange.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// PositionSide is the direction of the currently held position.
type PositionSide string

const (
	PositionFlat  PositionSide = "FLAT"
	PositionLong  PositionSide = "LONG"
	PositionShort PositionSide = "SHORT"
)

// Position is owned by the trader state machine and mutated only on enter/exit.
type Position struct {
	Side       PositionSide    `json:"side"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Size       decimal.Decimal `json:"size"`
}

// OrderIntent is emitted by the state machine when a position is opened.
type OrderIntent struct {
	Symbol string          `json:"symbol"`
	Side   Side            `json:"side"`
	Size   decimal.Decimal `json:"size"`
}

// OrderResult wraps the raw exchange response to a market order.
type OrderResult struct {
	Success bool   `json:"success"`
	Raw     string `json:"raw"`
}

// EquityPoint 权益曲线上的一个采样点
type EquityPoint struct {
	Timestamp int64           `json:"timestamp"`
	Balance   decimal.Decimal `json:"balance"`
	Position  PositionSide    `json:"position"`
	Price     decimal.Decimal `json:"price"`
}

// TradeEvent records an entry or exit for the trade log and persistence.
type TradeEvent struct {
	Timestamp int64           `json:"timestamp"`
	Symbol    string          `json:"symbol"`
	Type      string          `json:"type"` // "enter" or "exit"
	Position  PositionSide    `json:"position"`
	Price     decimal.Decimal `json:"price"`
	PnL       decimal.Decimal `json:"pnl"`
	Balance   decimal.Decimal `json:"balance"`
}
