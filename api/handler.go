package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"delta-trader/internal/model"
)

type Handler struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewHandler(db *pgxpool.Pool, logger *zap.Logger) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
	}
}

// GetEquityCurve returns the most recent persisted equity snapshots.
func (h *Handler) GetEquityCurve(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "500"))
	if err != nil || limit < 1 || limit > 5000 {
		limit = 500
	}

	rows, err := h.db.Query(c.Request.Context(),
		"SELECT time, balance, position, price FROM equity_curve ORDER BY time DESC LIMIT $1", limit)
	if err != nil {
		h.logger.Error("failed to query equity curve", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	defer rows.Close()

	points := make([]model.EquityPoint, 0)
	for rows.Next() {
		var p model.EquityPoint
		var position string
		if err := rows.Scan(&p.Timestamp, &p.Balance, &position, &p.Price); err != nil {
			h.logger.Error("failed to scan equity point", zap.Error(err))
			continue
		}
		p.Position = model.PositionSide(position)
		points = append(points, p)
	}

	c.JSON(http.StatusOK, points)
}

// GetTrades returns the most recent persisted trade events.
func (h *Handler) GetTrades(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 || limit > 1000 {
		limit = 100
	}

	rows, err := h.db.Query(c.Request.Context(),
		"SELECT time, symbol, type, position, price, pnl, balance FROM trades ORDER BY time DESC LIMIT $1", limit)
	if err != nil {
		h.logger.Error("failed to query trades", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	defer rows.Close()

	trades := make([]model.TradeEvent, 0)
	for rows.Next() {
		var t model.TradeEvent
		var position string
		if err := rows.Scan(&t.Timestamp, &t.Symbol, &t.Type, &position, &t.Price, &t.PnL, &t.Balance); err != nil {
			h.logger.Error("failed to scan trade event", zap.Error(err))
			continue
		}
		t.Position = model.PositionSide(position)
		trades = append(trades, t)
	}

	c.JSON(http.StatusOK, trades)
}
