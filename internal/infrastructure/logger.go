// Package infrastructure wires the process-wide logger, Prometheus metrics,
// and the NATS JetStream connection used by the trading pipeline.
package infrastructure

import (
	"go.uber.org/zap"
)

// Logger is the shared production logger; components receive it via their
// constructors, tests substitute zap.NewNop().
var Logger *zap.Logger

// Init builds the logger. Call once before any pipeline component starts.
func Init() {
	Logger, _ = zap.NewProduction()
	Logger = Logger.Named("delta-trader")
	Logger.Info("infrastructure initialized")
}
