package executor

import (
	"context"

	"go.uber.org/zap"

	"delta-trader/internal/infrastructure"
	"delta-trader/internal/model"
)

// Dispatcher serializes order submissions so at most one is in flight at a
// time. The feed loop hands intents off without blocking; a single worker
// drains the queue in order, so two submissions for the same position can
// never overlap.
type Dispatcher struct {
	logger  *zap.Logger
	gateway Gateway
	queue   chan model.OrderIntent
}

func NewDispatcher(gateway Gateway, logger *zap.Logger, buffer int) *Dispatcher {
	return &Dispatcher{
		logger:  logger,
		gateway: gateway,
		queue:   make(chan model.OrderIntent, buffer),
	}
}

// Start launches the single submission worker.
func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case intent := <-d.queue:
				result, err := d.gateway.Submit(ctx, intent)
				if err != nil {
					// Reported, not rolled back: the position transition has
					// already been applied. Acceptable for paper mode only.
					d.logger.Error("order submission failed",
						zap.String("side", string(intent.Side)),
						zap.String("raw", result.Raw),
						zap.Error(err))
					continue
				}
				infrastructure.OrdersSubmitted.WithLabelValues(intent.Symbol, string(intent.Side)).Inc()
			}
		}
	}()
}

// Dispatch queues an intent without blocking the caller.
func (d *Dispatcher) Dispatch(intent model.OrderIntent) {
	select {
	case d.queue <- intent:
	default:
		d.logger.Warn("order queue full, dropping intent",
			zap.String("side", string(intent.Side)))
	}
}
