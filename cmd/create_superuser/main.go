package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

func main() {
	var req types.RegisterRequest
	flag.StringVar(&req.Email, "email", "", "email address (required)")
	flag.StringVar(&req.Username, "username", "admin", "username")
	flag.StringVar(&req.FirstName, "first-name", "Admin", "first name")
	flag.StringVar(&req.LastName, "last-name", "Admin", "last name")
	flag.StringVar(&req.Password, "password", "", "password (required)")
	flag.Parse()

	if req.Email == "" || req.Password == "" {
		flag.Usage()
		log.Fatal("-email and -password are required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	zl := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer zl.Sync()

	db, err := database.New(cfg, zl)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(db, cfg.DatabaseURL(), zl); err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}

	ctx := context.Background()
	auth := service.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL, zl)

	// An existing account with this email is promoted instead.
	_, err = auth.Register(ctx, &req)
	var ve *service.ValidationError
	if err != nil && !(errors.As(err, &ve) && ve.Field == "email") {
		zl.Fatal("failed to create user", zap.Error(err))
	}
	if err := auth.PromoteSuperuser(ctx, req.Email); err != nil {
		zl.Fatal("failed to promote user", zap.Error(err))
	}
}
