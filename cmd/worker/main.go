package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"lessin/internal/config"
	"lessin/internal/metrics"
	"lessin/internal/observability"
	"lessin/internal/storage"
	"lessin/internal/tasks"
	"lessin/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := observability.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if !cfg.Redis.Enabled() {
		log.Fatal("worker requires REDIS_ADDR")
	}

	store, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	logger.Info("storage ready", slog.String("driver", cfg.Storage.Driver))

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}
	_ = redisClient.Close()

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Logger:      newAsynqLogger(logger),
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeStoragePurge, worker.NewPurgeTaskHandler(store, logger))

	logger.Info("worker service started", slog.String("redis_addr", cfg.Redis.Addr), slog.Int("concurrency", cfg.Worker.Concurrency))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
