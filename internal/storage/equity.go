// Package storage persists equity snapshots and trade events to Postgres.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"delta-trader/internal/infrastructure"
	"delta-trader/internal/model"
)

// EquitySaver buffers equity-curve points and writes them in batches, either
// when the buffer reaches batchSize (every N processed candles) or on the
// periodic flush tick. Flush is also invoked on shutdown and on halt so the
// curve on disk matches the in-memory state.
type EquitySaver struct {
	pool      *pgxpool.Pool
	logger    *zap.Logger
	interval  time.Duration
	batchSize int

	mu  sync.Mutex
	buf []model.EquityPoint
}

func NewEquitySaver(pool *pgxpool.Pool, logger *zap.Logger, interval time.Duration, batchSize int) *EquitySaver {
	return &EquitySaver{
		pool:      pool,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (s *EquitySaver) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Flush(context.Background())
			}
		}
	}()
}

func (s *EquitySaver) Add(point model.EquityPoint) {
	s.mu.Lock()
	s.buf = append(s.buf, point)
	full := len(s.buf) >= s.batchSize
	s.mu.Unlock()

	if full {
		s.Flush(context.Background())
	}
}

func (s *EquitySaver) Flush(ctx context.Context) {
	s.mu.Lock()
	if len(s.buf) == 0 {
		s.mu.Unlock()
		return
	}
	points := s.buf
	s.buf = nil
	s.mu.Unlock()

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(
			`INSERT INTO equity_curve (time, balance, position, price) VALUES ($1, $2, $3, $4)`,
			p.Timestamp, p.Balance, string(p.Position), p.Price,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range points {
		if _, err := results.Exec(); err != nil {
			s.logger.Error("failed to insert equity point", zap.Error(err))
			return
		}
	}
	infrastructure.DBInsertRate.WithLabelValues("equity_curve").Add(float64(len(points)))
}

// TradeSaver persists entry/exit events as they happen.
type TradeSaver struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewTradeSaver(pool *pgxpool.Pool, logger *zap.Logger) *TradeSaver {
	return &TradeSaver{pool: pool, logger: logger}
}

func (s *TradeSaver) Save(ctx context.Context, event model.TradeEvent) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trades (time, symbol, type, position, price, pnl, balance) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.Timestamp, event.Symbol, event.Type, string(event.Position), event.Price, event.PnL, event.Balance,
	)
	if err != nil {
		s.logger.Error("failed to insert trade event", zap.Error(err))
		return
	}
	infrastructure.DBInsertRate.WithLabelValues("trades").Inc()
}
