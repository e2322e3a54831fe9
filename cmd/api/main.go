package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"lessin/internal/api"
	"lessin/internal/auth"
	"lessin/internal/chat"
	"lessin/internal/config"
	"lessin/internal/database"
	"lessin/internal/observability"
	"lessin/internal/storage"
	"lessin/internal/tasks"
)

func main() {
	cfg := config.MustLoad()

	logger := observability.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Otel)
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	logger.Info("database ready")

	store, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	logger.Info("storage ready", slog.String("driver", cfg.Storage.Driver))

	issuer, err := newIssuer(cfg.Auth)
	if err != nil {
		log.Fatalf("init token issuer: %v", err)
	}

	deps := api.Deps{
		DB:                    db,
		Store:                 store,
		Issuer:                issuer,
		Logger:                logger,
		PublicBaseURL:         cfg.API.PublicBaseURL,
		LoginRateLimitPerHour: cfg.Auth.LoginRateLimitPerHour,
		AllowedOrigins:        cfg.API.CORSOrigins,
		Purger:                tasks.NewInlinePurger(store, logger),
	}
	if cfg.Scan.ClamdAddr != "" {
		deps.Scanner = api.NewClamdScanner(cfg.Scan.ClamdAddr)
	}

	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("ping redis: %v", err)
		}

		asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer asynqClient.Close()

		deps.Redis = redisClient
		deps.Publisher = chat.NewRedisPublisher(redisClient)
		deps.Purger = tasks.NewQueuePurger(asynqClient)
		logger.Info("redis ready", slog.String("addr", cfg.Redis.Addr))
	}

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("flush traces failed", slog.Any("error", err))
	}
	if err := database.Close(db); err != nil {
		logger.Error("close database failed", slog.Any("error", err))
	}
}

func newIssuer(cfg config.AuthConfig) (auth.TokenIssuer, error) {
	if !cfg.TokensEnabled() {
		return auth.NoopIssuer{}, nil
	}
	return auth.NewJWTIssuerFromFiles(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.AccessTokenTTL)
}
