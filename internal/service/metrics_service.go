package service

import (
	"context"
	"fmt"
	"time"

	"buildflow/internal/model"
	"buildflow/internal/progress"
	"buildflow/internal/schedule"
	"buildflow/pkg/circuitbreaker"
	"buildflow/pkg/logger"
	"buildflow/pkg/metrics"

	"go.uber.org/zap"
)

// MetricsService loads the inputs of progress.Compute. Schedule and invoice
// reads go through their own breakers; a failed read drops that input.
type MetricsService struct {
	projects        ProjectStore
	schedules       ScheduleStore
	invoices        InvoiceStore
	scheduleBreaker *circuitbreaker.CircuitBreaker
	invoiceBreaker  *circuitbreaker.CircuitBreaker
	logger          *zap.Logger
}

func NewMetricsService(
	projects ProjectStore,
	schedules ScheduleStore,
	invoices InvoiceStore,
	breaker circuitbreaker.Config,
	logger *zap.Logger,
) *MetricsService {
	return &MetricsService{
		projects:        projects,
		schedules:       schedules,
		invoices:        invoices,
		scheduleBreaker: circuitbreaker.NewCircuitBreaker(breaker),
		invoiceBreaker:  circuitbreaker.NewCircuitBreaker(breaker),
		logger:          logger,
	}
}

// ProjectMetrics fails only when the project itself cannot be read.
func (s *MetricsService) ProjectMetrics(ctx context.Context, projectID int, today time.Time) (progress.ProjectMetrics, error) {
	log := logger.ForProject(ctx, s.logger, projectID)

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return progress.ProjectMetrics{}, fmt.Errorf("load project: %w", err)
	}

	in := progress.Input{Project: *project}

	var rows []model.ScheduleEntry
	err = s.scheduleBreaker.Execute(func() error {
		var err error
		rows, err = s.schedules.LatestEntries(ctx, projectID)
		return err
	})
	if err != nil {
		metrics.IncrementDegradedRead("schedule")
		log.Warn("Schedule unavailable, computing metrics without it", zap.Error(err))
	} else {
		in.Schedule = schedule.New(rows, log)
	}

	err = s.invoiceBreaker.Execute(func() error {
		var err error
		in.Invoices, err = s.invoices.ListByProject(ctx, projectID)
		return err
	})
	if err != nil {
		in.Invoices = nil
		metrics.IncrementDegradedRead("invoices")
		log.Warn("Invoices unavailable, using tranche estimate", zap.Error(err))
	}

	return progress.Compute(today, in), nil
}
