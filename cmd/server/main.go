package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"autoparts-orders/config"
	"autoparts-orders/internal/api"
	"autoparts-orders/internal/broker"
	"autoparts-orders/internal/redisclient"
	"autoparts-orders/internal/service"
	"autoparts-orders/internal/shipping"
	"autoparts-orders/internal/status"
	"autoparts-orders/internal/store"
	"autoparts-orders/internal/tax"
	"autoparts-orders/internal/util"
	"autoparts-orders/internal/worker"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	tp, err := util.InitTracer("autoparts-orders", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		}()
	}

	// Capability check at startup. The modern store is required, the
	// legacy store and Redis are not: the service starts degraded without
	// them instead of refusing to boot.
	modernStore, err := store.NewModernStore(cfg.ModernStore.URL)
	if err != nil {
		logger.Fatal("Failed to connect to modern store", zap.Error(err))
	}
	defer modernStore.Close()

	var legacy service.LegacyStore
	var legacyDB *sqlx.DB
	legacyStore, err := store.NewLegacyStore(cfg.LegacyStore.URL)
	if err != nil {
		logger.Warn("Legacy store unavailable, creates will queue for reconciliation", zap.Error(err))
	} else {
		legacy = legacyStore
		legacyDB = legacyStore.GetDB()
		defer legacyStore.Close()
	}

	linkStore := store.NewLinkStore(modernStore.GetDB())

	var cache service.OrderCache
	redisCache, err := redisclient.NewClient(
		cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		time.Duration(cfg.Business.CacheTTLSeconds)*time.Second,
	)
	if err != nil {
		logger.Warn("Redis unavailable, running without order cache", zap.Error(err))
	} else {
		cache = redisCache
		defer redisCache.Close()
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	publisher := broker.NewEventPublisher(producer)

	threshold, err := decimal.NewFromString(cfg.Business.FreeShippingThresholdHT)
	if err != nil {
		logger.Warn("Invalid free shipping threshold, rule disabled",
			zap.String("value", cfg.Business.FreeShippingThresholdHT))
		threshold = decimal.Zero
	}

	orchestrator := service.NewOrderSyncOrchestrator(
		modernStore,
		legacy,
		linkStore,
		cache,
		publisher,
		shipping.NewEngine(shipping.NewStaticResolver()),
		tax.NewEngine(),
		status.NewTranslator(),
		service.Options{
			StoreTimeout:          time.Duration(cfg.Business.StoreTimeoutSeconds) * time.Second,
			FreeShippingThreshold: threshold,
		},
	)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	defer consumer.Close()

	reconciler := worker.NewReconciliationWorker(consumer, orchestrator)
	go func() {
		if err := reconciler.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Reconciliation worker stopped", zap.Error(err))
		}
	}()

	handler := api.NewHandler(orchestrator, modernStore.GetDB(), legacyDB)
	router := api.SetupRouter(handler, cfg.Server.Env)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
