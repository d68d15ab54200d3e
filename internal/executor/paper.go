package executor

import (
	"context"

	"go.uber.org/zap"

	"delta-trader/internal/model"
)

// PaperExecutor performs no real orders. Fills are assumed instantaneous at
// the observed close price; the trader applies balance changes on intent, not
// on confirmed fill. That assumption is only valid in paper mode.
type PaperExecutor struct {
	logger *zap.Logger
}

func NewPaperExecutor(logger *zap.Logger) *PaperExecutor {
	return &PaperExecutor{logger: logger}
}

func (e *PaperExecutor) Submit(_ context.Context, intent model.OrderIntent) (model.OrderResult, error) {
	e.logger.Info("paper order",
		zap.String("symbol", intent.Symbol),
		zap.String("side", string(intent.Side)),
		zap.String("size", intent.Size.String()))
	return model.OrderResult{Success: true, Raw: "paper"}, nil
}
