package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	zlog "github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-api/internal/app"
	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/handler/health"
	promhandler "github.com/jwalitptl/booking-api/internal/handler/prometheus"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/worker"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/messaging/redis"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	pkgworker "github.com/jwalitptl/booking-api/pkg/worker"
)

const healthAddr = ":8081"

func setupHealthCheck(checks map[string]health.Checker, log *logger.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(middleware.Recovery(log))
	health.NewHandler(checks).RegisterRoutes(engine)
	promhandler.New(prometheus.DefaultGatherer).RegisterRoutes(engine)

	srv := &http.Server{
		Addr:              healthAddr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "Failed to load config")
	}

	log := app.NewLogger(cfg.Logging).WithFields(map[string]interface{}{"component": "worker"})
	zlog.Logger = log.Zerolog()

	if cfg.Database.Driver == app.DriverMemory {
		log.Fatal(nil, "the worker needs a shared database; run the api with the memory driver instead")
	}

	// Initialize repositories
	repos, err := app.OpenRepositories(cfg.Database)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer repos.Close()

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), log)
	if err != nil {
		log.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	m := metrics.NewMetrics("booking_worker", prometheus.DefaultRegisterer)

	svc, err := app.NewServices(cfg, repos, log, m)
	if err != nil {
		log.Fatal(err, "Failed to initialize services")
	}

	// Initialize outbox processor
	wc := cfg.Outbox.ToWorkerConfig()
	wc.Channel = cfg.Redis.Channel
	processor := pkgworker.NewOutboxProcessor(repos.Outbox, broker, wc, log, m)
	processor.Handle(model.EventSlotReleaseRequested, worker.NewSlotReleaseHandler(svc.Calendar, repos.Appointments, log).Handle)

	cleanup := worker.NewOutboxCleanupWorker(repos.Outbox, cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, log)

	// Setup health check endpoints
	healthSrv := setupHealthCheck(map[string]health.Checker{
		"database": repos.Calendar,
		"redis":    broker,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Shutting down...")
		cancel()
	}()

	go cleanup.Start(ctx)
	processor.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Health check server forced to shutdown")
	}
}
