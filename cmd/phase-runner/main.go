package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buildflow/internal/config"
	"buildflow/internal/handler"
	"buildflow/internal/httpserver"
	"buildflow/internal/jobs"
	"buildflow/internal/mqhandler"
	"buildflow/internal/repository"
	"buildflow/internal/service"
	pkgconfig "buildflow/pkg/config"
	"buildflow/pkg/db"
	"buildflow/pkg/lock"
	"buildflow/pkg/logger"
	"buildflow/pkg/mq"
	"buildflow/pkg/otel"
	"buildflow/pkg/outbox"
	"buildflow/pkg/redis"
	"buildflow/pkg/util"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log, "phase-runner")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting phase-runner...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := otel.Init(ctx, otel.Config{
		ServiceName:    "phase-runner",
		ServiceVersion: "1.0.0",
		Environment:    pkgconfig.GetConfigEnv(),
		Endpoint:       cfg.Otel.Endpoint,
		Enabled:        cfg.Otel.Enabled,
		SampleRatio:    cfg.Otel.SampleRatio,
	}, log)
	if err != nil {
		log.Warn("Failed to init OpenTelemetry, continuing without tracing", zap.Error(err))
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	// DB
	dbConn, err := db.NewConnection(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	// Redis
	rdb, err := redis.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn("Redis not reachable at startup", zap.Error(err))
	}
	defer rdb.Close()

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	outboxRepo := outbox.NewRepository(dbConn)
	projectRepo := repository.NewProjectRepository(dbConn, outboxRepo, log)
	scheduleRepo := repository.NewScheduleRepository(dbConn, log)
	invoiceRepo := repository.NewInvoiceRepository(dbConn, outboxRepo, log)

	// Services
	orchestrator := service.NewOrchestrator(projectRepo, scheduleRepo, invoiceRepo, log)
	drawSync := service.NewDrawSynchronizer(projectRepo, scheduleRepo, invoiceRepo, log)
	metricsSvc := service.NewMetricsService(projectRepo, scheduleRepo, invoiceRepo, cfg.BreakerSettings(), log)

	// Outbox Dispatcher
	replayed, err := outbox.NewReplayService(outboxRepo, log).ReplayFailedEvents(ctx, 100)
	if err != nil {
		log.Warn("Failed to replay failed outbox events", zap.Error(err))
	} else if replayed > 0 {
		log.Info("Replayed failed outbox events", zap.Int("count", replayed))
	}
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithMaxRetries(cfg.Outbox.MaxRetries).
		WithInterval(time.Duration(cfg.Outbox.IntervalSeconds) * time.Second).
		WithBatchSize(cfg.Outbox.BatchSize)
	go dispatcher.Start(ctx)

	// Schedule changed consumer
	consumer, err := mq.NewConsumer(cfg.MQ.URL, mq.ScheduleChangedQueue, mq.RoutingScheduleChanged, log)
	if err != nil {
		log.Fatal("Failed to init schedule changed consumer", zap.Error(err))
	}
	defer consumer.Close()

	scheduleChanged := mqhandler.NewScheduleChangedHandler(
		drawSync,
		util.NewDeduper(rdb, time.Hour, log),
		util.NewRetryCounter(rdb, time.Hour),
		publisher,
		log,
	).WithMaxRetries(cfg.MQ.MaxRetries)
	consumer.SetHandler(scheduleChanged.Handle)
	go func() {
		if err := consumer.StartConsuming(); err != nil {
			log.Error("Schedule changed consumer stopped", zap.Error(err))
		}
	}()

	// Cron jobs
	scheduler := jobs.NewScheduler(orchestrator, lock.NewRedisLocker(rdb, "buildflow:lock"), cfg.Scheduler, log)
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// HTTP Server
	router := httpserver.NewRouter(
		handler.NewProjectHandler(metricsSvc, drawSync, scheduler.Today, log),
		handler.NewAdminHandler(scheduler, log),
		cfg.JWT.Secret,
		dbConn,
		consumer,
		log,
	)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("phase-runner is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down phase-runner gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	scheduler.Stop()
	cancel()
	consumer.Close()

	log.Info("phase-runner shutdown complete")
}
