package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"delta-trader/api"
	"delta-trader/internal/config"
	"delta-trader/internal/connector"
	"delta-trader/internal/executor"
	"delta-trader/internal/infrastructure"
	"delta-trader/internal/model"
	"delta-trader/internal/push"
	"delta-trader/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App defines the application structure and its dependencies
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *pgxpool.Pool
	NC          *nats.Conn
	JS          nats.JetStreamContext
	PushGateway *push.PushGateway
	HTTPServer  *http.Server

	runner      *Runner
	tradeLog    *storage.TradeLog
	equitySaver *storage.EquitySaver
	runnerDone  chan struct{}
	stopRunner  context.CancelFunc
}

// NewApp creates a new application instance
func NewApp() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	infrastructure.Init()
	logger := infrastructure.Logger

	return &App{
		Config: &cfg,
		Logger: logger,
	}, nil
}

// Init initializes all application components
func (a *App) Init(ctx context.Context) error {
	// 1. Database
	dbPool, err := pgxpool.Connect(ctx, a.Config.DB_DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = dbPool

	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// 2. NATS
	nc, js, err := infrastructure.InitNATS(a.Config.NatsURL, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.NC = nc
	a.JS = js

	// 3. Services
	a.PushGateway = push.NewPushGateway(js, a.Logger)

	return nil
}

// Run starts the trading pipeline and the HTTP server
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.stopRunner = cancel

	// Persistence
	tradeLog, err := storage.NewTradeLog(a.Config.TradeLogPath)
	if err != nil {
		cancel()
		return err
	}
	a.tradeLog = tradeLog
	a.equitySaver = storage.NewEquitySaver(a.DB, a.Logger, 5*time.Second, a.Config.SnapshotInterval)
	a.equitySaver.Start(runCtx)
	tradeSaver := storage.NewTradeSaver(a.DB, a.Logger)

	// Execution
	gateway, err := executor.NewGateway(*a.Config, a.Logger)
	if err != nil {
		cancel()
		return err
	}
	dispatcher := executor.NewDispatcher(gateway, a.Logger, 16)
	dispatcher.Start(runCtx)

	// Dashboard push
	if err := a.PushGateway.Start(); err != nil {
		a.Logger.Warn("failed to start push gateway", zap.Error(err))
	}

	// Feed
	feedCtx, stopFeed := context.WithCancel(runCtx)
	candleChan := make(chan model.Candle, 100)
	feed := connector.NewDeltaConnector(a.Logger, connector.Options{
		URL:          a.Config.WSURL,
		Symbol:       a.Config.Symbol,
		Channel:      a.Config.Channel,
		Heartbeat:    time.Duration(a.Config.HeartbeatSecs) * time.Second,
		BackoffFloor: time.Duration(a.Config.BackoffFloorSecs) * time.Second,
		BackoffCeil:  time.Duration(a.Config.BackoffCeilSecs) * time.Second,
	})
	go feed.Run(feedCtx, candleChan)

	// Pipeline
	a.runner = NewRunner(*a.Config, a.Logger, a.JS, dispatcher, tradeLog, a.equitySaver, tradeSaver)
	a.runnerDone = make(chan struct{})
	go func() {
		defer close(a.runnerDone)
		a.runner.Run(runCtx, candleChan, stopFeed)
	}()

	// HTTP Server
	a.HTTPServer = &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: a.setupRouter(),
	}

	go func() {
		a.Logger.Info("starting http server", zap.String("port", a.Config.Port))
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	return a.waitForShutdown()
}

// waitForShutdown handles graceful shutdown signals
func (a *App) waitForShutdown() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Logger.Info("shutting down...")

	// Stop the pipeline first so no state transition is in flight, then flush.
	a.stopRunner()
	select {
	case <-a.runnerDone:
	case <-time.After(5 * time.Second):
		a.Logger.Warn("pipeline did not stop in time")
	}
	a.equitySaver.Flush(context.Background())
	a.tradeLog.Close()

	status := a.runner.Status()
	a.Logger.Info("final account state",
		zap.String("balance", status.Balance.String()),
		zap.Int("trades", status.TradeCount),
		zap.String("position", string(status.Position.Side)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.NC.Close()
	a.DB.Close()

	return nil
}

// initDatabase runs the database initialization script
func (a *App) initDatabase(ctx context.Context) error {
	sqlFile := "scripts/init.sql"
	content, err := os.ReadFile(sqlFile)
	if err != nil {
		return fmt.Errorf("failed to read init script: %w", err)
	}

	_, err = a.DB.Exec(ctx, string(content))
	if err != nil {
		return fmt.Errorf("failed to execute init script: %w", err)
	}

	a.Logger.Info("database initialized successfully")
	return nil
}

// setupRouter configures the Gin router and its routes
func (a *App) setupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	apiHandler := api.NewHandler(a.DB, a.Logger)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, a.runner.Status())
		})
		v1.GET("/equity", apiHandler.GetEquityCurve)
		v1.GET("/trades", apiHandler.GetTrades)
	}

	r.GET("/ws", func(c *gin.Context) {
		a.PushGateway.ServeHTTP(c.Writer, c.Request)
	})

	return r
}
