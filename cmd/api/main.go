package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/carebook/scheduling-api/internal/config"
	appointmentHandler "github.com/carebook/scheduling-api/internal/handler/appointment"
	familyHandler "github.com/carebook/scheduling-api/internal/handler/family"
	healthHandler "github.com/carebook/scheduling-api/internal/handler/health"
	slotHandler "github.com/carebook/scheduling-api/internal/handler/slot"
	"github.com/carebook/scheduling-api/internal/middleware"
	"github.com/carebook/scheduling-api/internal/repository/postgres"
	"github.com/carebook/scheduling-api/internal/router"
	delegationService "github.com/carebook/scheduling-api/internal/service/delegation"
	directoryService "github.com/carebook/scheduling-api/internal/service/directory"
	eventService "github.com/carebook/scheduling-api/internal/service/event"
	familyService "github.com/carebook/scheduling-api/internal/service/family"
	schedulerService "github.com/carebook/scheduling-api/internal/service/scheduler"
	slotService "github.com/carebook/scheduling-api/internal/service/slot"
	"github.com/carebook/scheduling-api/pkg/auth"
	"github.com/carebook/scheduling-api/pkg/metrics"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	slotRepo := postgres.NewSlotRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	familyRepo := postgres.NewFamilyRepository(db)
	directoryRepo := postgres.NewDirectoryRepository(db)
	outboxRepo := postgres.NewOutboxRepository(base)

	m := metrics.NewMetrics("carebook", "api")

	eventSvc := eventService.NewService(outboxRepo)
	directorySvc := directoryService.NewService(directoryRepo)
	delegationSvc := delegationService.NewService(familyRepo)
	slotSvc := slotService.NewService(slotRepo, m)
	familySvc := familyService.NewService(familyRepo, delegationSvc)
	schedulerSvc := schedulerService.NewService(
		&base,
		appointmentRepo,
		slotRepo,
		delegationSvc,
		eventSvc,
		directorySvc,
		schedulerService.StaticBillingPolicy{PrepayVirtual: cfg.Billing.PrepayVirtual},
		m,
	)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	redisClient := newRedisClient(cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	r := router.NewRouter(
		authMiddleware,
		slotHandler.NewHandler(slotSvc, authMiddleware),
		appointmentHandler.NewHandler(schedulerSvc),
		familyHandler.NewHandler(familySvc),
		healthHandler.NewHandler(db, redisClient, version),
		router.Config{
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
			MetricsPrefix:  "carebook_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

// newRedisClient is best-effort: the API serves without Redis, the health
// endpoint just skips the check.
func newRedisClient(cfg config.RedisConfig) *goredis.Client {
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid Redis URL, health checks will skip Redis")
		return nil
	}
	opts.MaxRetries = cfg.MaxRetries
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	return goredis.NewClient(opts)
}
