package connector

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"delta-trader/internal/infrastructure"
	"delta-trader/internal/model"
)

// Options bundles the connection knobs for the Delta Exchange feed.
type Options struct {
	URL          string
	Symbol       string
	Channel      string // e.g. candlestick_1m
	Heartbeat    time.Duration
	BackoffFloor time.Duration
	BackoffCeil  time.Duration
}

// DeltaConnector streams closed candles from the Delta Exchange websocket.
// It reconnects forever with capped exponential backoff and deduplicates
// candles by start timestamp, so downstream sees at most one candle per
// distinct timestamp even when the feed repeats a tick or a reconnect
// replays one. Only ctx cancellation terminates it.
type DeltaConnector struct {
	logger *zap.Logger
	opts   Options
	lastTS int64 // survives reconnects; transport resets, state does not
}

func NewDeltaConnector(logger *zap.Logger, opts Options) *DeltaConnector {
	return &DeltaConnector{
		logger: logger,
		opts:   opts,
	}
}

type subscribeChannel struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

type subscribeMessage struct {
	Type    string `json:"type"`
	Payload struct {
		Channels []subscribeChannel `json:"channels"`
	} `json:"payload"`
}

func (d *DeltaConnector) subscribeMsg() subscribeMessage {
	var msg subscribeMessage
	msg.Type = "subscribe"
	msg.Payload.Channels = []subscribeChannel{
		{Name: d.opts.Channel, Symbols: []string{d.opts.Symbol}},
	}
	return msg
}

// deltaCandleMessage is the only accepted candle shape. Pointers let the
// validator fail closed when a field is missing rather than defaulting to zero.
type deltaCandleMessage struct {
	Type            string           `json:"type"`
	Symbol          string           `json:"symbol"`
	CandleStartTime *int64           `json:"candle_start_time"`
	Close           *decimal.Decimal `json:"close"`
}

func (d *DeltaConnector) Run(ctx context.Context, candleChan chan<- model.Candle) {
	backoff := d.opts.BackoffFloor

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		d.logger.Info("connecting to Delta websocket", zap.String("url", d.opts.URL))
		dialer := websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		}
		conn, _, err := dialer.DialContext(ctx, d.opts.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("failed to connect to Delta", zap.Error(err))
			infrastructure.WSReconnects.Inc()
			if !d.wait(ctx, backoff) {
				return
			}
			backoff = d.increaseBackoff(backoff)
			continue
		}

		backoff = d.opts.BackoffFloor // Reset backoff on successful connection
		d.logger.Info("connected to Delta websocket")
		infrastructure.WSConnections.Inc()

		// Subscribe on every (re)connect
		if err := conn.WriteJSON(d.subscribeMsg()); err != nil {
			d.logger.Error("failed to subscribe to Delta candles", zap.Error(err))
			infrastructure.WSConnections.Dec()
			conn.Close()
			infrastructure.WSReconnects.Inc()
			if !d.wait(ctx, backoff) {
				return
			}
			backoff = d.increaseBackoff(backoff)
			continue
		}
		d.logger.Info("subscribed",
			zap.String("channel", d.opts.Channel),
			zap.String("symbol", d.opts.Symbol))

		if err := d.handleConnection(ctx, conn, candleChan); err != nil {
			d.logger.Error("Delta connection closed with error", zap.Error(err))
		}
		infrastructure.WSConnections.Dec()
		conn.Close()

		if ctx.Err() != nil {
			return
		}

		// A dropped live connection waits just like a failed dial; only a
		// fresh successful connect resets the backoff to the floor.
		infrastructure.WSReconnects.Inc()
		if !d.wait(ctx, backoff) {
			return
		}
		backoff = d.increaseBackoff(backoff)
	}
}

// wait blocks for the given backoff, returning false if ctx is cancelled first.
func (d *DeltaConnector) wait(ctx context.Context, backoff time.Duration) bool {
	select {
	case <-time.After(backoff):
		return true
	case <-ctx.Done():
		return false
	}
}

func (d *DeltaConnector) handleConnection(ctx context.Context, conn *websocket.Conn, candleChan chan<- model.Candle) error {
	// Absence of traffic beyond 2x the heartbeat interval is a dead connection.
	readTimeout := 2 * d.opts.Heartbeat
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	// Heartbeat
	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(d.opts.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		candle, ok := d.parseCandle(message)
		if !ok {
			continue
		}

		if candle.Timestamp == d.lastTS {
			// upstream repeated the tick
			infrastructure.CandlesDropped.WithLabelValues(d.opts.Symbol, "duplicate").Inc()
			continue
		}
		d.lastTS = candle.Timestamp

		select {
		case candleChan <- candle:
			infrastructure.CandlesProcessed.WithLabelValues(d.opts.Symbol).Inc()
		case <-ctx.Done():
			return nil
		}
	}
}

// parseCandle is the single schema validator for candle frames. Anything that
// is not a candlestick_* message carrying both a start timestamp and a
// parseable close is discarded silently.
func (d *DeltaConnector) parseCandle(message []byte) (model.Candle, bool) {
	var msg deltaCandleMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		infrastructure.CandlesDropped.WithLabelValues(d.opts.Symbol, "malformed").Inc()
		return model.Candle{}, false
	}
	if !strings.HasPrefix(msg.Type, "candlestick_") {
		return model.Candle{}, false
	}
	if msg.CandleStartTime == nil || msg.Close == nil {
		infrastructure.CandlesDropped.WithLabelValues(d.opts.Symbol, "malformed").Inc()
		return model.Candle{}, false
	}

	symbol := msg.Symbol
	if symbol == "" {
		symbol = d.opts.Symbol
	}

	return model.Candle{
		Symbol:    symbol,
		Timestamp: *msg.CandleStartTime,
		Close:     *msg.Close,
	}, true
}

func (d *DeltaConnector) increaseBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > d.opts.BackoffCeil {
		return d.opts.BackoffCeil
	}
	return next
}
