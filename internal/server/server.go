package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Server represents the HTTP server
type Server struct {
	cfg    *config.Config
	router *gin.Engine
	http   *http.Server
	db     *gorm.DB
	redis  *redis.Client
	log    *zap.Logger
}

// New wires the middleware chain and all routes. redisClient may be nil, in
// which case recipe creation is rate limited in process.
func New(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, images storage.ImageStore, log *zap.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORS(cfg.CORSOrigins),
	)

	s := &Server{
		cfg:    cfg,
		router: router,
		db:     db,
		redis:  redisClient,
		log:    log,
	}

	router.GET("/health", s.health)

	// Images on local disk are served by us; S3 URLs point at the bucket.
	if cfg.S3BucketName == "" && strings.HasPrefix(cfg.MediaURL, "/") {
		router.Static(cfg.MediaURL, cfg.MediaRoot)
	}

	api.RegisterRoutes(router, api.NewServices(db, images, cfg, log), api.Options{
		PageSize:      cfg.PageSize,
		RecipeLimiter: middleware.NewRecipeCreationLimiter(redisClient, cfg.RecipeCreateLimit, cfg.RecipeCreateWindow),
	})

	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	ctx := c.Request.Context()
	status := gin.H{"status": "ok", "database": "ok"}
	code := http.StatusOK

	if err := database.HealthCheck(ctx, s.db); err != nil {
		s.log.Warn("database health check failed", zap.Error(err))
		status["status"] = "degraded"
		status["database"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if s.redis != nil {
		status["redis"] = "ok"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.log.Warn("redis health check failed", zap.Error(err))
			status["redis"] = "unavailable"
		}
	}
	c.JSON(code, status)
}
