package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg, zl)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(db, cfg.DatabaseURL(), zl); err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis is optional; without it rate limits are kept per process.
	var redisClient *redis.Client
	if client, err := database.NewRedisClient(ctx, cfg, zl); err != nil {
		zl.Warn("redis unavailable, using in-process rate limiting", zap.Error(err))
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	images, err := storage.NewImageStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to configure image storage", zap.Error(err))
	}

	srv := server.New(cfg, db, redisClient, images, zl)
	if err := srv.Start(ctx); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
	zl.Info("server stopped")
}
