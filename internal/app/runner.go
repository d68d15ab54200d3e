package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"delta-trader/internal/config"
	"delta-trader/internal/engine"
	"delta-trader/internal/executor"
	"delta-trader/internal/infrastructure"
	"delta-trader/internal/model"
	"delta-trader/internal/storage"
	"delta-trader/internal/strategy"
)

// Status is the live view of the trading run exposed over HTTP.
type Status struct {
	Symbol     string          `json:"symbol"`
	Mode       string          `json:"mode"`
	Halted     bool            `json:"halted"`
	HaltReason string          `json:"halt_reason,omitempty"`
	Balance    decimal.Decimal `json:"balance"`
	TradeCount int             `json:"trade_count"`
	Position   model.Position  `json:"position"`
}

// EquityStore buffers equity samples for periodic snapshotting.
type EquityStore interface {
	Add(point model.EquityPoint)
	Flush(ctx context.Context)
}

// TradeStore persists individual trade events.
type TradeStore interface {
	Save(ctx context.Context, event model.TradeEvent)
}

// Runner is the single consumer of the candle stream. It drives the pipeline
// returns engine -> signal generator -> state machine strictly in arrival
// order; all effects (orders, logs, persistence, NATS) fan out from here.
type Runner struct {
	cfg         config.Config
	logger      *zap.Logger
	js          nats.JetStreamContext
	window      *engine.ReturnWindow
	signals     *strategy.Generator
	dispatcher  *executor.Dispatcher
	tradeLog    *storage.TradeLog
	equitySaver EquityStore
	tradeSaver  TradeStore

	mu     sync.Mutex // guards trader against concurrent Status reads
	trader *engine.Trader
}

func NewRunner(
	cfg config.Config,
	logger *zap.Logger,
	js nats.JetStreamContext,
	dispatcher *executor.Dispatcher,
	tradeLog *storage.TradeLog,
	equitySaver EquityStore,
	tradeSaver TradeStore,
) *Runner {
	return &Runner{
		cfg:         cfg,
		logger:      logger,
		js:          js,
		window:      engine.NewReturnWindow(cfg.Window),
		signals:     strategy.NewGenerator(cfg.LongThreshold, cfg.ShortThreshold, cfg.Confirmation),
		dispatcher:  dispatcher,
		tradeLog:    tradeLog,
		equitySaver: equitySaver,
		tradeSaver:  tradeSaver,
		trader: engine.NewTrader(engine.TraderParams{
			Symbol:       cfg.Symbol,
			Size:         decimal.NewFromFloat(cfg.PositionSize),
			ExitDeadband: decimal.NewFromFloat(cfg.ExitDeadband),
			StartBalance: decimal.NewFromFloat(cfg.StartBalance),
			MaxTrades:    cfg.MaxTrades,
			MaxDrawdown:  decimal.NewFromFloat(cfg.MaxDrawdown),
		}),
	}
}

// Run consumes candles until ctx is cancelled or a kill-switch halts the run.
// On halt the feed is stopped via stopFeed and buffered persistence is
// flushed, leaving the account state consistent and inspectable.
func (r *Runner) Run(ctx context.Context, candleChan <-chan model.Candle, stopFeed context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			r.equitySaver.Flush(context.Background())
			return
		case candle := <-candleChan:
			if halted := r.onCandle(ctx, candle); halted {
				stopFeed()
				r.equitySaver.Flush(context.Background())
				state := r.Status()
				r.logger.Warn("trading halted",
					zap.String("reason", state.HaltReason),
					zap.String("balance", state.Balance.String()),
					zap.Int("trades", state.TradeCount),
					zap.String("position", string(state.Position.Side)))
				return
			}
		}
	}
}

func (r *Runner) onCandle(ctx context.Context, candle model.Candle) bool {
	meanRet := r.window.Update(candle.Close)
	sig, actionable := r.signals.Compute(meanRet)
	infrastructure.SignalsTotal.WithLabelValues(candle.Symbol, sig.String()).Inc()

	r.tradeLog.Logf("NEW CANDLE | Close=%s | Ret%%=%s | Signal=%s",
		candle.Close, meanRet.StringFixed(4), sig)

	r.mu.Lock()
	events, point := r.trader.OnCandle(candle, sig, actionable, meanRet)
	halted := r.trader.Halted()
	r.mu.Unlock()

	r.publish(fmt.Sprintf("trader.candle.%s", candle.Symbol), candle)

	for _, ev := range events {
		r.handleEvent(ctx, candle, ev)
	}

	r.equitySaver.Add(point)
	return halted
}

func (r *Runner) handleEvent(ctx context.Context, candle model.Candle, ev engine.Event) {
	switch ev.Type {
	case engine.EventEnter:
		r.tradeLog.Logf("ENTER %s @ %s", ev.Position, ev.Price)
		if ev.Order != nil {
			r.dispatcher.Dispatch(*ev.Order)
		}
	case engine.EventExit:
		r.tradeLog.Logf("EXIT %s @ %s | PnL=%s | Balance=%s",
			ev.Position, ev.Price, ev.PnL.StringFixed(2), ev.Balance.StringFixed(2))
	case engine.EventHalt:
		r.tradeLog.Logf("%s | STOPPING", ev.Reason)
		return
	}

	event := model.TradeEvent{
		Timestamp: candle.Timestamp,
		Symbol:    candle.Symbol,
		Type:      string(ev.Type),
		Position:  ev.Position,
		Price:     ev.Price,
		PnL:       ev.PnL,
		Balance:   ev.Balance,
	}
	r.tradeSaver.Save(ctx, event)
	r.publish(fmt.Sprintf("trader.event.%s", candle.Symbol), event)
}

func (r *Runner) publish(subject string, payload interface{}) {
	if r.js == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("failed to marshal event", zap.Error(err))
		return
	}
	if _, err := r.js.Publish(subject, data); err != nil {
		r.logger.Error("failed to publish to NATS", zap.String("subject", subject), zap.Error(err))
	}
}

// Status returns a consistent snapshot of the run.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.trader.State()
	return Status{
		Symbol:     r.cfg.Symbol,
		Mode:       r.cfg.Mode,
		Halted:     r.trader.Halted(),
		HaltReason: r.trader.HaltReason(),
		Balance:    state.Balance,
		TradeCount: state.TradeCount,
		Position:   state.Position,
	}
}

// EquityCurve exposes the in-memory equity samples for shutdown reporting.
func (r *Runner) EquityCurve() []model.EquityPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trader.EquityCurve()
}
