package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/qualitrack/qc-api/internal/config"
	authHandler "github.com/qualitrack/qc-api/internal/handler/auth"
	entityHandler "github.com/qualitrack/qc-api/internal/handler/entity"
	healthHandler "github.com/qualitrack/qc-api/internal/handler/health"
	inspectionHandler "github.com/qualitrack/qc-api/internal/handler/inspection"
	"github.com/qualitrack/qc-api/internal/middleware"
	"github.com/qualitrack/qc-api/internal/model"
	"github.com/qualitrack/qc-api/internal/repository/postgres"
	"github.com/qualitrack/qc-api/internal/router"
	authService "github.com/qualitrack/qc-api/internal/service/auth"
	customerService "github.com/qualitrack/qc-api/internal/service/customer"
	"github.com/qualitrack/qc-api/internal/service/entity"
	inspectionService "github.com/qualitrack/qc-api/internal/service/inspection"
	"github.com/qualitrack/qc-api/pkg/auth"
	"github.com/qualitrack/qc-api/pkg/event"
	eventRedis "github.com/qualitrack/qc-api/pkg/event/redis"
	"github.com/qualitrack/qc-api/pkg/logger"
	"github.com/qualitrack/qc-api/pkg/metrics"
	"github.com/qualitrack/qc-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = *logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Console:    cfg.Logging.Console,
	}).Zerolog()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("qc_api")
	base := postgres.NewBaseRepository(db, m)

	// Change-event emitter: redis when configured, no-op otherwise.
	var emitter event.Emitter = event.NopEmitter{}
	if cfg.Redis.Enabled {
		redisEmitter, err := eventRedis.NewEmitter(eventRedis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			Channel:      cfg.Redis.Channel,
		}, &log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisEmitter.Close()
		emitter = redisEmitter
	}

	// Repositories.
	customerRepo := postgres.NewEntityRepository[model.Customer](base, model.CustomerConfig())
	lineRepo := postgres.NewEntityRepository[model.ProductionLine](base, model.ProductionLineConfig())
	siteRepo := postgres.NewEntityRepository[model.Site](base, model.SiteConfig())
	defectRepo := postgres.NewEntityRepository[model.DefectCode](base, model.DefectCodeConfig())
	inspectionRepo := postgres.NewInspectionRepository(base)
	accountRepo := postgres.NewAccountRepository(base)

	// Services. Customers carry an extra validation rule; the rest are the
	// generic engine straight from their configs.
	customerSvc := customerService.NewService(customerRepo, entity.WithEmitter[model.Customer](emitter))
	lineSvc := entity.NewService(lineRepo, model.ProductionLineConfig(), entity.WithEmitter[model.ProductionLine](emitter))
	siteSvc := entity.NewService(siteRepo, model.SiteConfig(), entity.WithEmitter[model.Site](emitter))
	defectSvc := entity.NewService(defectRepo, model.DefectCodeConfig(), entity.WithEmitter[model.DefectCode](emitter))
	inspectionSvc := inspectionService.NewService(inspectionRepo, lineRepo, customerRepo, defectRepo)

	tokens := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	hasher := security.NewBcryptHasher(0)
	authSvc := authService.NewService(accountRepo, hasher, tokens)

	authMW := middleware.NewAuthMiddleware(tokens)

	r := router.New(
		authMW,
		authHandler.NewHandler(authSvc),
		m,
		router.Config{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimitRPS:     cfg.RateLimit.RequestsPerSecond,
			RateLimitBurst:   cfg.RateLimit.Burst,
			CORS:             corsConfig(cfg),
		},
		entityHandler.NewHandler[model.Customer](customerSvc),
		entityHandler.NewHandler[model.ProductionLine](lineSvc),
		entityHandler.NewHandler[model.Site](siteSvc),
		entityHandler.NewHandler[model.DefectCode](defectSvc),
		inspectionHandler.NewHandler(inspectionSvc),
	)
	r.Setup()
	healthHandler.NewHandler(db).RegisterRoutes(r.Engine())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	if len(cfg.Security.AllowedOrigins) > 0 {
		cors.AllowOrigins = cfg.Security.AllowedOrigins
	}
	return cors
}
