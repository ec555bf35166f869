package main

import (
	"context"
	"time"

	"pos-terminal/config"
	"pos-terminal/internal/api"
	"pos-terminal/internal/broker"
	"pos-terminal/internal/redisclient"
	"pos-terminal/internal/service"
	"pos-terminal/internal/store"
	"pos-terminal/internal/util"
	"pos-terminal/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const startupCheckTimeout = 3 * time.Second

// app holds the wired terminal and the resources it must release
type app struct {
	router     *gin.Engine
	db         *store.Store
	redis      *redisclient.Client
	producer   *broker.Producer
	saleWorker *worker.SaleWorker
}

// newApp wires the terminal. An unreachable database or Redis is logged, not fatal:
// the catalog falls back to its sample data and checkouts report a storage failure
// until the database answers.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := util.GetLogger()

	db, err := store.Open(cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	checkCtx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	defer cancel()

	if err := db.Ping(checkCtx); err != nil {
		logger.Warn("Database unreachable, starting in offline mode", zap.Error(err))
	} else {
		logger.Info("Database connected")
	}

	redisClient := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisClient.Ping(checkCtx); err != nil {
		logger.Warn("Redis unreachable, idempotency and receipt cache degraded", zap.Error(err))
	} else {
		logger.Info("Redis connected")
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSaleEvent)
	eventPublisher := broker.NewEventPublisher(producer)

	catalog := service.NewCatalog(db)
	catalog.Load(checkCtx)
	if err := redisClient.SyncStock(checkCtx, catalog.List()); err != nil {
		logger.Warn("Failed to sync stock to Redis", zap.Error(err))
	}

	terminal := service.NewTerminalService(
		catalog,
		service.NewCartEngine(catalog),
		service.NewCommitter(db),
		service.NewStaffProvider(cfg.Terminal.DefaultStaffID),
		service.NewQRCodeGenerator(300),
		db,
		redisClient,
		eventPublisher,
		service.TerminalOptions{
			IdempotencyTTL: cfg.Terminal.IdempotencyTTL,
			ReceiptTTL:     cfg.Terminal.ReceiptTTL,
		},
	)

	saleConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSaleEvent, cfg.Kafka.ConsumerGroup)
	saleWorker := worker.NewSaleWorker(saleConsumer, redisClient, cfg.Terminal.LowStockThreshold)

	router := gin.New()
	handler := api.NewHandler(terminal, map[string]api.Pinger{
		"database": db,
		"redis":    redisClient,
	})
	handler.SetupRoutes(router, cfg.Server.CORSOrigins)

	return &app{
		router:     router,
		db:         db,
		redis:      redisClient,
		producer:   producer,
		saleWorker: saleWorker,
	}, nil
}

// close stops the worker and releases connections
func (a *app) close() {
	logger := util.GetLogger()

	if err := a.saleWorker.Stop(); err != nil {
		logger.Warn("Sale worker stop failed", zap.Error(err))
	}
	if err := a.producer.Close(); err != nil {
		logger.Warn("Kafka producer close failed", zap.Error(err))
	}
	if err := a.redis.Close(); err != nil {
		logger.Warn("Redis close failed", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		logger.Warn("Database close failed", zap.Error(err))
	}
}
