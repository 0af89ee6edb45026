package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buildflow/internal/model"
	"buildflow/internal/phase"
	"buildflow/internal/schedule"
	"buildflow/pkg/dateutil"
	"buildflow/pkg/logger"
	"buildflow/pkg/metrics"
	"buildflow/pkg/otel"
	"buildflow/pkg/trace"
	"buildflow/pkg/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	RuleBootstrap = "bootstrap"
	RuleSchedule  = "schedule"
)

var (
	ErrNoSchedule        = errors.New("project has no schedule")
	ErrPhaseNotScheduled = errors.New("current phase not found in schedule")
)

type ProjectError struct {
	ProjectID int
	Err       error
}

func (e ProjectError) Error() string {
	return fmt.Sprintf("project %d: %v", e.ProjectID, e.Err)
}

func (e ProjectError) Unwrap() error { return e.Err }

type ProgressionResult struct {
	ProjectsChecked int
	ProjectsUpdated int
	Errors          []ProjectError
}

type Orchestrator struct {
	projects  ProjectStore
	schedules ScheduleStore
	invoices  InvoiceStore
	logger    *zap.Logger
	now       func() time.Time
}

func NewOrchestrator(
	projects ProjectStore,
	schedules ScheduleStore,
	invoices InvoiceStore,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		projects:  projects,
		schedules: schedules,
		invoices:  invoices,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for updated_at and activity timestamps.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// RunPhaseProgression advances every eligible project whose schedule has
// moved past its current phase. Only a failure to list projects is returned
// as an error; per-project failures are collected in the result.
func (o *Orchestrator) RunPhaseProgression(ctx context.Context, today time.Time) (ProgressionResult, error) {
	today = dateutil.Day(today)
	ctx, runID := trace.NewRun(ctx)
	ctx, span := otel.StartSpan(ctx, "phase_progression.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("run.date", dateutil.Format(today)),
	)

	log := logger.WithTrace(ctx, o.logger)
	started := time.Now()
	log.Info("Running phase progression", zap.String("date", dateutil.Format(today)))

	projects, err := o.projects.ListEligibleForProgression(ctx)
	if err != nil {
		log.Error("Failed to list projects", zap.Error(err))
		otel.WrapDBError(span, err)
		return ProgressionResult{}, fmt.Errorf("list projects for progression: %w", err)
	}

	var result ProgressionResult
	for _, p := range projects {
		result.ProjectsChecked++

		updated, err := o.advance(ctx, log, p, today)
		if err != nil {
			_, label := util.IsRetryableError(err)
			metrics.IncrementProjectError(label)
			log.Error("Phase progression failed for project",
				zap.Int("project_id", p.ID),
				zap.String("phase", p.Phase),
				zap.String("error_type", label),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, ProjectError{ProjectID: p.ID, Err: err})
			continue
		}
		if updated {
			result.ProjectsUpdated++
		}
	}

	metrics.ObservePhaseRun(time.Since(started), result.ProjectsChecked)
	span.SetAttributes(
		attribute.Int("projects.checked", result.ProjectsChecked),
		attribute.Int("projects.updated", result.ProjectsUpdated),
		attribute.Int("projects.failed", len(result.Errors)),
	)
	log.Info("Phase progression completed",
		zap.Int("projects_checked", result.ProjectsChecked),
		zap.Int("projects_updated", result.ProjectsUpdated),
		zap.Int("projects_failed", len(result.Errors)),
	)
	return result, nil
}

func (o *Orchestrator) advance(ctx context.Context, log *zap.Logger, p model.Project, today time.Time) (bool, error) {
	var to, rule string

	switch {
	case phase.Key(p.Phase) == phase.Key(phase.PreConstruction):
		if p.StartDate == nil || dateutil.Before(today, *p.StartDate) {
			return false, nil
		}
		to, rule = phase.FramingCrew, RuleBootstrap

	case phase.IsBootstrap(p.Phase):
		return false, nil

	default:
		rows, err := o.schedules.LatestEntries(ctx, p.ID)
		if err != nil {
			return false, err
		}
		s := schedule.New(rows, log)

		next, err := NextPhase(p.Phase, s, today)
		if err != nil {
			log.Info("Skipping project",
				zap.Int("project_id", p.ID),
				zap.String("phase", p.Phase),
				zap.String("reason", err.Error()),
			)
			return false, nil
		}
		if next == "" {
			return false, nil
		}
		to, rule = next, RuleSchedule
	}

	progress, _ := phase.PercentageFor(to)
	t := model.PhaseTransition{
		ProjectID: p.ID,
		From:      p.Phase,
		To:        to,
		Progress:  progress,
		At:        o.now(),
	}
	if err := o.projects.ApplyPhaseTransition(ctx, t); err != nil {
		return false, err
	}

	metrics.IncrementTransition(rule)
	log.Info("Project phase advanced",
		zap.Int("project_id", p.ID),
		zap.String("from", t.From),
		zap.String("to", t.To),
		zap.Int("progress", t.Progress),
		zap.String("rule", rule),
	)
	return true, nil
}

// NextPhase returns the phase a project in current should move to on today,
// or "" when it stays put. It scans the entries after the current phase's
// entry, stops at the first entry that has not started yet, and picks the
// last scanned taxonomy phase that lies ahead of current. Phases never move
// backward.
func NextPhase(current string, s *schedule.Schedule, today time.Time) (string, error) {
	if s.Empty() {
		return "", ErrNoSchedule
	}
	today = dateutil.Day(today)
	entries := s.Entries()

	idx, floor := -1, 0
	if d, ok := phase.Lookup(current); ok {
		idx, floor = s.IndexOfPhase(d.Name), d.Ordinal
	} else {
		// Off-taxonomy phase set by hand: match the entry name exactly.
		for i, e := range entries {
			if phase.Key(e.Name) == phase.Key(current) {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return "", ErrPhaseNotScheduled
	}

	candidate := ""
	for _, e := range entries[idx+1:] {
		if e.StartDate.After(today) {
			break
		}
		d, ok := phase.Lookup(e.Phase)
		if !ok || d.Ordinal <= floor {
			continue
		}
		candidate = d.Name
	}
	if phase.Key(candidate) == phase.Key(current) {
		return "", nil
	}
	return candidate, nil
}
