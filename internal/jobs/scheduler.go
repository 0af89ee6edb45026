// Package jobs runs the periodic phase progression and overdue draw checks.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buildflow/internal/service"
	"buildflow/pkg/config"
	"buildflow/pkg/dateutil"
	"buildflow/pkg/lock"
	"buildflow/pkg/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultPhaseSpec   = "0 30 5 * * *"
	defaultOverdueSpec = "0 0 6 * * *"

	phaseLockName   = "phase-progression"
	overdueLockName = "overdue-draws"
)

// ErrRunInProgress is returned when another replica holds the run lock.
var ErrRunInProgress = errors.New("run already in progress")

type Runner interface {
	RunPhaseProgression(ctx context.Context, today time.Time) (service.ProgressionResult, error)
	CheckOverdueDraws(ctx context.Context, today time.Time) (int, error)
}

type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	locker Locker
	cfg    config.SchedulerConfig
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

func NewScheduler(runner Runner, locker Locker, cfg config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	loc := cfg.LoadLocation()
	cl := cronLogger{l: logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner: runner,
		locker: locker,
		cfg:    cfg,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

// Start registers both jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	phaseSpec := s.cfg.PhaseProgressionSpec
	if phaseSpec == "" {
		phaseSpec = defaultPhaseSpec
	}
	overdueSpec := s.cfg.OverdueDrawsSpec
	if overdueSpec == "" {
		overdueSpec = defaultOverdueSpec
	}

	if _, err := s.cron.AddFunc(phaseSpec, func() {
		s.logger.Info("Running scheduled phase progression")
		_, _ = s.RunPhaseProgression(context.Background())
	}); err != nil {
		return fmt.Errorf("error scheduling phase progression: %w", err)
	}

	if _, err := s.cron.AddFunc(overdueSpec, func() {
		s.logger.Info("Running scheduled overdue draw check")
		_, _ = s.CheckOverdueDraws(context.Background())
	}); err != nil {
		return fmt.Errorf("error scheduling overdue draw check: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.String("phase_progression_spec", phaseSpec),
		zap.String("overdue_draws_spec", overdueSpec),
		zap.String("location", s.loc.String()),
	)

	if s.cfg.RunOnStart {
		go func() {
			s.logger.Info("Running initial phase progression")
			_, _ = s.RunPhaseProgression(context.Background())
		}()
	}
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Today is the current calendar day in the scheduler's location.
func (s *Scheduler) Today() time.Time {
	return dateutil.Today(s.now(), s.loc)
}

func (s *Scheduler) RunPhaseProgression(ctx context.Context) (service.ProgressionResult, error) {
	return s.RunPhaseProgressionFor(ctx, s.Today())
}

// RunPhaseProgressionFor runs one progression pass for an explicit day under
// the run lock.
func (s *Scheduler) RunPhaseProgressionFor(ctx context.Context, today time.Time) (service.ProgressionResult, error) {
	var result service.ProgressionResult
	err := s.locked(ctx, phaseLockName, func(ctx context.Context) error {
		var err error
		result, err = s.runner.RunPhaseProgression(ctx, today)
		return err
	})
	if err != nil && !errors.Is(err, ErrRunInProgress) {
		s.logger.Error("Phase progression failed", zap.String("date", dateutil.Format(today)), zap.Error(err))
	}
	return result, err
}

func (s *Scheduler) CheckOverdueDraws(ctx context.Context) (int, error) {
	return s.CheckOverdueDrawsFor(ctx, s.Today())
}

// CheckOverdueDrawsFor marks draws overdue as of an explicit day under the
// run lock.
func (s *Scheduler) CheckOverdueDrawsFor(ctx context.Context, today time.Time) (int, error) {
	var marked int
	err := s.locked(ctx, overdueLockName, func(ctx context.Context) error {
		var err error
		marked, err = s.runner.CheckOverdueDraws(ctx, today)
		return err
	})
	if err != nil && !errors.Is(err, ErrRunInProgress) {
		s.logger.Error("Overdue draw check failed", zap.String("date", dateutil.Format(today)), zap.Error(err))
	}
	return marked, err
}

func (s *Scheduler) locked(ctx context.Context, name string, fn func(context.Context) error) error {
	release, err := s.locker.Acquire(ctx, name, s.cfg.LockTTL())
	if errors.Is(err, lock.ErrNotAcquired) {
		metrics.IncrementRunSkipped()
		s.logger.Info("Skipping run, lock held elsewhere", zap.String("job", name))
		return ErrRunInProgress
	}
	if err != nil {
		return fmt.Errorf("acquire %s lock: %w", name, err)
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			s.logger.Warn("Failed to release run lock", zap.String("job", name), zap.Error(err))
		}
	}()
	return fn(ctx)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
