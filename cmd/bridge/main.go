package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"imbridge/internal/backend"
	"imbridge/internal/config"
	"imbridge/internal/engine"
	"imbridge/internal/gateway"
	"imbridge/internal/httpserver"
	"imbridge/internal/network"
	"imbridge/internal/recency"
	"imbridge/internal/repository"
	"imbridge/pkg/db"
	"imbridge/pkg/logger"
	"imbridge/pkg/mq"
	"imbridge/pkg/otel"
	"imbridge/pkg/redis"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	log.Info("Starting imbridge...",
		zap.String("self_uin", cfg.Engine.SelfUin),
		zap.String("gateway", cfg.Gateway.BaseURL),
		zap.String("dedup_backend", cfg.Engine.DedupBackend),
		zap.Bool("db_enabled", cfg.DB.Enabled),
	)

	shutdownTracing, err := otel.Init(cfg.Otel, log,
		attribute.String("imbridge.self_uin", cfg.Engine.SelfUin),
		attribute.String("imbridge.dedup_backend", cfg.Engine.DedupBackend),
	)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownTracing()

	// Redis：共享去重窗口与 uin 缓存
	var rdb *goredis.Client
	if cfg.Engine.DedupBackend == "redis" || cfg.Gateway.UinCacheTTLSeconds > 0 {
		rdb, err = redis.NewRedisClient(cfg.Redis)
		switch {
		case err != nil && cfg.Engine.DedupBackend == "redis":
			log.Fatal("Failed to init Redis", zap.Error(err))
		case err != nil:
			log.Warn("Redis unavailable, uin cache disabled", zap.Error(err))
			rdb = nil
		default:
			defer rdb.Close()
		}
	}

	// Gateway：HTTP → 熔断/超时 → redis 缓存
	var gw gateway.Gateway = gateway.NewGuarded(
		gateway.NewHTTPClient(cfg.Gateway.BaseURL, cfg.Gateway.Timeout()),
		gateway.GuardOptions{
			Timeout:     cfg.Gateway.Timeout(),
			MaxFailures: cfg.Gateway.BreakerMaxFailures,
			OpenFor:     cfg.Gateway.BreakerOpen(),
		},
		log,
	)
	if rdb != nil && cfg.Gateway.UinCacheTTLSeconds > 0 {
		gw = gateway.NewCached(gw, rdb, cfg.Gateway.UinCacheTTL(), log)
	}

	// DB（可选）：失败条目落库
	var (
		dbConn      *pgxpool.Pool
		failedRepo  *repository.FailedItemRepository
		failureSink engine.FailureSink
	)
	if cfg.DB.Enabled {
		dbConn, err = db.NewConnection(cfg.DB, log)
		if err != nil {
			log.Fatal("Failed to init DB", zap.Error(err))
		}
		failedRepo = repository.NewFailedItemRepository(dbConn)
		failureSink = failedRepo
	}

	opts := engine.Options{
		SelfUin:         cfg.Engine.SelfUin,
		Gateway:         gw,
		RecallCacheSize: cfg.Engine.RecallCacheSize,
		SentCacheSize:   cfg.Engine.SentCacheSize,
		MaxConcurrency:  cfg.Engine.MaxConcurrency,
		ItemTimeout:     cfg.Engine.ItemTimeout(),
		FailureSink:     failureSink,
		Logger:          log,
	}
	if cfg.Engine.DedupBackend == "redis" {
		opts.RecallStore = recency.NewRedisStore(rdb, "recall", cfg.Engine.DedupTTL(), log)
		opts.SentStore = recency.NewRedisStore(rdb, "sent", cfg.Engine.DedupTTL(), log)
	}
	eng, err := engine.New(opts)
	if err != nil {
		log.Fatal("Failed to init engine", zap.Error(err))
	}

	// 对外推送：websocket + events exchange
	eventsPublisher, err := mq.NewPublisher(cfg.MQ.URL, mq.ExchangeEvents)
	if err != nil {
		log.Fatal("Failed to init events publisher", zap.Error(err))
	}
	wsServer := network.NewWSServer(cfg.Server.JWTSecret, time.Duration(cfg.Server.PingIntervalSeconds)*time.Second, log)

	manager := network.NewManager(log)
	manager.Register(wsServer)
	manager.Register(network.NewAMQPPublisher(eventsPublisher, eventsPublisher.Close))
	manager.Attach(eng.Hub())

	// 后端批次入口
	dlqPublisher, err := mq.NewPublisher(cfg.MQ.URL, mq.ExchangeBackend)
	if err != nil {
		log.Fatal("Failed to init DLQ publisher", zap.Error(err))
	}
	defer dlqPublisher.Close()

	bridge := backend.NewAMQPBridge(cfg.MQ.URL, dlqPublisher, log)
	eng.Attach(bridge)
	err = bridge.Start(func(routingKey string) error {
		_, err := mq.DeclareDLQQueue(dlqPublisher.Channel(), routingKey)
		return err
	})
	if err != nil {
		log.Fatal("Failed to start backend bridge", zap.Error(err))
	}

	// HTTP Server
	deps := httpserver.Deps{
		Publishers: []httpserver.ConnChecker{eventsPublisher, dlqPublisher},
		Events:     wsServer,
		JWTSecret:  cfg.Server.JWTSecret,
		Logger:     log,
	}
	if dbConn != nil {
		deps.DB = dbConn
		deps.FailedItem = httpserver.NewFailedItemHandler(failedRepo, log)
	}
	router := httpserver.NewRouter(deps)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("imbridge is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down imbridge gracefully...")

	// 先停止接收新批次，再等待在途事件推送完成
	bridge.Stop()
	eng.Drain()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	if err := manager.Close(); err != nil {
		log.Warn("Failed to close network adapters", zap.Error(err))
	}
	if dbConn != nil {
		dbConn.Close()
	}

	log.Info("imbridge shutdown complete")
}
