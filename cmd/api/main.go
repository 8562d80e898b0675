package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/booking-api/internal/app"
	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/handler/admin"
	"github.com/jwalitptl/booking-api/internal/handler/appointment"
	"github.com/jwalitptl/booking-api/internal/handler/availability"
	"github.com/jwalitptl/booking-api/internal/handler/catalog"
	"github.com/jwalitptl/booking-api/internal/handler/health"
	promhandler "github.com/jwalitptl/booking-api/internal/handler/prometheus"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/router"
	"github.com/jwalitptl/booking-api/internal/worker"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/messaging/redis"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	pkgworker "github.com/jwalitptl/booking-api/pkg/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load configuration")
	}

	log := app.NewLogger(cfg.Logging)
	zlog.Logger = log.Zerolog()

	if err := middleware.RegisterValidation(); err != nil {
		log.Fatal(err, "failed to register validators")
	}

	catalogEntries, err := cfg.Catalog()
	if err != nil {
		log.Fatal(err, "invalid service catalog")
	}

	// Initialize repositories
	repos, err := app.OpenRepositories(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to open repositories", "driver", cfg.Database.Driver)
	}
	defer repos.Close()

	m := metrics.NewMetrics("booking", prometheus.DefaultRegisterer)

	// Initialize services
	svc, err := app.NewServices(cfg, repos, log, m)
	if err != nil {
		log.Fatal(err, "failed to initialize services")
	}

	checks := map[string]health.Checker{"database": repos.Calendar}

	var broker *redis.RedisBroker
	if cfg.Redis.URL != "" {
		broker, err = redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), log)
		if err != nil {
			log.Fatal(err, "failed to connect to Redis")
		}
		defer broker.Close()
		checks["redis"] = broker
	}

	// Initialize handlers
	handlers := router.Handlers{
		Availability: availability.NewHandler(svc.Calendar),
		Catalog:      catalog.NewHandler(catalogEntries),
		Appointment:  appointment.NewHandler(svc.Booking, svc.Appointments, svc.Reschedule, svc.Cancellation, svc.Clock),
		Admin:        admin.NewHandler(svc.Appointments, svc.Auditor),
		Health:       health.NewHandler(checks),
		Metrics:      promhandler.New(prometheus.DefaultGatherer),
	}

	routerConfig := router.RouterConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		CORSConfig: middleware.CORSConfig{
			AllowOrigins: cfg.Security.AllowedOrigins,
			AllowMethods: cfg.Security.AllowedMethods,
			AllowHeaders: cfg.Security.AllowedHeaders,
		},
		RequestTimeout: cfg.Server.RequestTimeout,
		AdminToken:     cfg.Security.AdminToken,
	}
	if broker != nil && cfg.RateLimit.Enabled {
		routerConfig.RedisLimiter = middleware.NewRedisRateLimiter(broker.Client(),
			int(cfg.RateLimit.RequestsPerSecond*60), time.Minute, log)
	}

	// Setup router
	r := router.NewRouter(handlers, log, m, routerConfig)
	r.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The memory store is private to this process, so its outbox is drained here.
	if cfg.Database.Driver == app.DriverMemory {
		wc := cfg.Outbox.ToWorkerConfig()
		wc.Channel = cfg.Redis.Channel
		var processor *pkgworker.OutboxProcessor
		if broker != nil {
			processor = pkgworker.NewOutboxProcessor(repos.Outbox, broker, wc, log, m)
		} else {
			processor = pkgworker.NewOutboxProcessor(repos.Outbox, nil, wc, log, m)
		}
		processor.Handle(model.EventSlotReleaseRequested, worker.NewSlotReleaseHandler(svc.Calendar, repos.Appointments, log).Handle)
		go processor.Start(ctx)
		go worker.NewOutboxCleanupWorker(repos.Outbox, cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, log).Start(ctx)
	}

	// Create server
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Start server
	go func() {
		log.Info("starting server", "port", cfg.Server.Port, "driver", cfg.Database.Driver,
			"timezone", svc.Clock.Location().String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
