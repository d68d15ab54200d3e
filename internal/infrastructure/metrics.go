package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	WSReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_reconnects_total",
		Help: "Total number of feed reconnect attempts",
	})

	CandlesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candles_processed_total",
		Help: "Total number of deduplicated candles fed into the pipeline",
	}, []string{"symbol"})

	CandlesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candles_dropped_total",
		Help: "Total number of candle messages discarded (malformed or duplicate)",
	}, []string{"symbol", "reason"})

	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signals_total",
		Help: "Total number of raw signals emitted by the strategy",
	}, []string{"symbol", "signal"})

	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_submitted_total",
		Help: "Total number of order intents dispatched to the execution gateway",
	}, []string{"symbol", "side"})

	DBInsertRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "db_insert_total",
		Help: "Total number of records inserted into DB",
	}, []string{"table"})
)
