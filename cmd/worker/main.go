package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/carebook/scheduling-api/internal/config"
	"github.com/carebook/scheduling-api/internal/model"
	"github.com/carebook/scheduling-api/internal/repository/postgres"
	delegationService "github.com/carebook/scheduling-api/internal/service/delegation"
	directoryService "github.com/carebook/scheduling-api/internal/service/directory"
	eventService "github.com/carebook/scheduling-api/internal/service/event"
	schedulerService "github.com/carebook/scheduling-api/internal/service/scheduler"
	appworker "github.com/carebook/scheduling-api/internal/worker"
	"github.com/carebook/scheduling-api/pkg/logger"
	"github.com/carebook/scheduling-api/pkg/messaging/redis"
	"github.com/carebook/scheduling-api/pkg/metrics"
	"github.com/carebook/scheduling-api/pkg/worker"
)

// WorkerEnv carries per-instance tuning that does not belong in the shared
// config file; everything here overrides via WORKER_* variables.
type WorkerEnv struct {
	// Zero falls back to outbox.health_check_port from the shared config.
	HealthPort    int    `envconfig:"HEALTH_PORT"`
	WorkerID      string `envconfig:"ID"`
	DisableSweeps bool   `envconfig:"DISABLE_SWEEPS"`
}

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	lg := &logger.Logger{ZL: log.Logger}

	var env WorkerEnv
	if err := envconfig.Process("worker", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker environment")
	}
	if env.WorkerID == "" {
		env.WorkerID = defaultWorkerID()
	}
	lg = lg.WithFields(map[string]interface{}{"worker_id": env.WorkerID})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if env.HealthPort == 0 {
		env.HealthPort = cfg.Outbox.HealthCheckPort
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Outbox.RetryDelay,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	base := postgres.NewBaseRepository(db)
	slotRepo := postgres.NewSlotRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	familyRepo := postgres.NewFamilyRepository(db)
	reminderRepo := postgres.NewReminderRepository(db)
	directoryRepo := postgres.NewDirectoryRepository(db)
	outboxRepo := postgres.NewOutboxRepository(base)

	m := metrics.NewMetrics("carebook", "worker")

	eventSvc := eventService.NewService(outboxRepo)
	directorySvc := directoryService.NewService(directoryRepo)
	schedulerSvc := schedulerService.NewService(
		&base,
		appointmentRepo,
		slotRepo,
		delegationService.NewService(familyRepo),
		eventSvc,
		directorySvc,
		schedulerService.StaticBillingPolicy{PrepayVirtual: cfg.Billing.PrepayVirtual},
		m,
	)

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, lg, m)

	reminderSweep := appworker.NewReminderSweep(
		&base,
		appointmentRepo,
		reminderRepo,
		eventSvc,
		directorySvc,
		model.DefaultReminderWindows,
		cfg.Sweep.Interval,
		lg,
		m,
	)

	lifecycleSweep := appworker.NewLifecycleSweep(
		appointmentRepo,
		schedulerSvc,
		cfg.Sweep.CallOpenLead,
		cfg.Sweep.Interval,
		lg,
		m,
	)

	startHealthServer(lg, env.HealthPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		lg.Info("Shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runCleanup(ctx, processor, cfg.Outbox, lg)
	}()

	if !env.DisableSweeps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reminderSweep.Start(ctx)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			lifecycleSweep.Start(ctx)
		}()
	}

	wg.Wait()
}

func runCleanup(ctx context.Context, processor *worker.OutboxProcessor, cfg config.OutboxConfig, lg *logger.Logger) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := processor.CleanupProcessed(ctx, cfg.ProcessedRetention); err != nil {
				lg.Error(err, "Outbox cleanup failed")
			}
		}
	}
}

func startHealthServer(lg *logger.Logger, port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			lg.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
}

func defaultWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
}
