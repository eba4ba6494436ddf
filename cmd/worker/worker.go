package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"Constituent/config"
	"Constituent/internal/cache"
	"Constituent/internal/queue"
	"Constituent/internal/service"
	"Constituent/pkg/logger"
	"Constituent/pkg/otel"
	"Constituent/pkg/snowflake"
	"Constituent/storage"
)

const consumerRetryInterval = 5 * time.Second

func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	shutdownOtel, err := otel.Init(ctx, config.Cfg.OtelConfig("worker"))
	if err != nil {
		logger.Logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Logger.Warn("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	logger.Logger.Info("Worker service starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("environment", config.Cfg.Environment),
		zap.Int("batch_size", config.Cfg.RebuildBatchSize),
	)

	locker := cache.NewLocker(nil)
	log := logger.Named("name_rebuild_worker")

	// 消费者异常退出时间隔重试，直到收到关闭信号
	for {
		err := queue.StartNameRebuildConsumer(ctx, service.Contact(), locker, config.Cfg.RebuildBatchSize)
		if ctx.Err() != nil {
			break
		}

		log.Error("Name rebuild consumer stopped, retrying",
			zap.Error(err),
			zap.Duration("retry_in", consumerRetryInterval),
		)

		select {
		case <-ctx.Done():
		case <-time.After(consumerRetryInterval):
		}
	}

	logger.Logger.Info("Worker service shutting down gracefully")
}
