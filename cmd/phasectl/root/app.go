package root

import (
	"context"
	"fmt"

	"buildflow/internal/config"
	"buildflow/internal/jobs"
	"buildflow/internal/repository"
	"buildflow/internal/service"
	"buildflow/pkg/db"
	"buildflow/pkg/lock"
	"buildflow/pkg/logger"
	"buildflow/pkg/outbox"
	"buildflow/pkg/redis"
)

// openApp connects to PostgreSQL and Redis with the phase-runner config. The
// run lock is shared with the service, so a CLI run never overlaps a
// scheduled one. Events are written to the outbox and published by the
// running phase-runner.
func openApp(ctx context.Context) (*App, error) {
	cfg := config.Load()

	log, err := logger.New(cfg.Log, "phasectl")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := db.NewConnection(ctx, cfg.DB, log)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("connect db: %w", err)
	}
	rdb, err := redis.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		_ = rdb.Close()
		pool.Close()
		_ = log.Sync()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	outboxRepo := outbox.NewRepository(pool)
	projects := repository.NewProjectRepository(pool, outboxRepo, log)
	schedules := repository.NewScheduleRepository(pool, log)
	invoices := repository.NewInvoiceRepository(pool, outboxRepo, log)

	orchestrator := service.NewOrchestrator(projects, schedules, invoices, log)
	scheduler := jobs.NewScheduler(orchestrator, lock.NewRedisLocker(rdb, "buildflow:lock"), cfg.Scheduler, log)

	return &App{
		Jobs:  scheduler,
		Draws: service.NewDrawSynchronizer(projects, schedules, invoices, log),
		Close: func() {
			_ = rdb.Close()
			pool.Close()
			_ = log.Sync()
		},
	}, nil
}
