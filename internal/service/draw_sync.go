package service

import (
	"context"
	"strconv"
	"time"

	"buildflow/internal/draw"
	"buildflow/internal/model"
	"buildflow/internal/schedule"
	"buildflow/pkg/dateutil"
	"buildflow/pkg/logger"
	"buildflow/pkg/metrics"

	"go.uber.org/zap"
)

// Milestone outcomes, also used as metric labels.
const (
	OutcomeUpdated    = "updated"
	OutcomeUnchanged  = "unchanged"
	OutcomeNoSource   = "no_source"
	OutcomeNoInvoices = "no_invoices"
	OutcomeFailed     = "failed"
)

type MilestoneOutcome struct {
	Draw     int       `json:"draw"`
	Label    string    `json:"label"`
	DueDate  time.Time `json:"due_date"`
	Outcome  string    `json:"outcome"`
	Matched  int       `json:"matched_invoices"`
	Updated  int       `json:"updated_invoices"`
	ErrorMsg string    `json:"error,omitempty"`
}

type SyncReport struct {
	ProjectID  int                `json:"project_id"`
	Milestones []MilestoneOutcome `json:"milestones"`
	Updated    int                `json:"updated"`
	Errors     []error            `json:"-"`
}

type DrawSynchronizer struct {
	projects  ProjectStore
	schedules ScheduleStore
	invoices  InvoiceStore
	logger    *zap.Logger
}

func NewDrawSynchronizer(projects ProjectStore, schedules ScheduleStore, invoices InvoiceStore, logger *zap.Logger) *DrawSynchronizer {
	return &DrawSynchronizer{
		projects:  projects,
		schedules: schedules,
		invoices:  invoices,
		logger:    logger,
	}
}

// SynchronizeDrawDueDates recomputes the due dates of the schedule-driven
// draws of one project. It never fails: each milestone succeeds or fails on
// its own and the outcome is reported. Due dates are only written when they
// differ, so repeated calls are no-ops.
func (s *DrawSynchronizer) SynchronizeDrawDueDates(ctx context.Context, projectID int) SyncReport {
	log := logger.ForProject(ctx, s.logger, projectID)
	report := SyncReport{ProjectID: projectID}

	invoices, err := s.invoices.ListByProject(ctx, projectID)
	if err != nil {
		log.Error("Failed to load invoices for draw sync", zap.Error(err))
		report.Errors = append(report.Errors, err)
		for _, m := range draw.Milestones {
			report.Milestones = append(report.Milestones, failed(m, err))
			metrics.RecordDrawOutcome(strconv.Itoa(m.Number), OutcomeFailed)
		}
		return report
	}
	byDraw := groupByDraw(invoices, log)

	project, projectErr := s.projects.GetByID(ctx, projectID)
	if projectErr != nil {
		log.Warn("Failed to load project for draw sync", zap.Error(projectErr))
	}

	var sched *schedule.Schedule
	rows, scheduleErr := s.schedules.LatestEntries(ctx, projectID)
	if scheduleErr != nil {
		log.Warn("Failed to load schedule for draw sync", zap.Error(scheduleErr))
	} else {
		sched = schedule.New(rows, log)
	}

	for _, m := range draw.Milestones {
		var out MilestoneOutcome
		switch {
		case m.Source == draw.SourcePermitApproval && projectErr != nil:
			out = failed(m, projectErr)
			report.Errors = append(report.Errors, projectErr)
		case m.Source != draw.SourcePermitApproval && scheduleErr != nil:
			out = failed(m, scheduleErr)
			report.Errors = append(report.Errors, scheduleErr)
		default:
			out = s.syncMilestone(ctx, log, m, project, sched, byDraw[m.Number], &report)
		}
		report.Updated += out.Updated
		report.Milestones = append(report.Milestones, out)
		metrics.RecordDrawOutcome(strconv.Itoa(m.Number), out.Outcome)
	}

	log.Info("Draw due dates synchronized",
		zap.Int("updated", report.Updated),
		zap.Int("errors", len(report.Errors)),
	)
	return report
}

func (s *DrawSynchronizer) syncMilestone(
	ctx context.Context,
	log *zap.Logger,
	m draw.Milestone,
	project *model.Project,
	sched *schedule.Schedule,
	invoices []model.Invoice,
	report *SyncReport,
) MilestoneOutcome {
	out := MilestoneOutcome{Draw: m.Number, Label: m.Label}

	due, ok := DueDate(m, project, sched)
	if !ok {
		out.Outcome = OutcomeNoSource
		log.Info("No source date for draw", zap.Int("draw", m.Number), zap.String("source", m.Source.String()))
		return out
	}
	out.DueDate = due
	out.Matched = len(invoices)
	if len(invoices) == 0 {
		out.Outcome = OutcomeNoInvoices
		return out
	}

	out.Outcome = OutcomeUnchanged
	for _, inv := range invoices {
		if inv.DueDate != nil && dateutil.Equal(*inv.DueDate, due) {
			continue
		}
		if err := s.invoices.UpdateDueDate(ctx, inv.ID, due); err != nil {
			log.Error("Failed to update draw due date",
				zap.Int("draw", m.Number),
				zap.Int("invoice_id", inv.ID),
				zap.Error(err),
			)
			report.Errors = append(report.Errors, err)
			out.Outcome = OutcomeFailed
			out.ErrorMsg = err.Error()
			continue
		}
		out.Updated++
		log.Info("Draw due date updated",
			zap.Int("draw", m.Number),
			zap.Int("invoice_id", inv.ID),
			zap.String("due_date", dateutil.Format(due)),
		)
	}
	if out.Outcome != OutcomeFailed && out.Updated > 0 {
		out.Outcome = OutcomeUpdated
	}
	return out
}

// DueDate derives a milestone's due date from the project and its schedule.
func DueDate(m draw.Milestone, project *model.Project, sched *schedule.Schedule) (time.Time, bool) {
	switch m.Source {
	case draw.SourcePermitApproval:
		if project == nil || project.PermitApprovedAt == nil {
			return time.Time{}, false
		}
		return dateutil.Day(*project.PermitApprovedAt), true
	case draw.SourcePhaseEnd:
		e, ok := sched.FindByName(m.Match)
		if !ok {
			return time.Time{}, false
		}
		return e.EndDate, true
	case draw.SourceDayBeforeStart:
		e, ok := sched.FindByName(m.Match)
		if !ok {
			return time.Time{}, false
		}
		return dateutil.AddDays(e.StartDate, -1), true
	case draw.SourceScheduleEnd:
		return sched.LatestEnd()
	}
	return time.Time{}, false
}

func groupByDraw(invoices []model.Invoice, log *zap.Logger) map[int][]model.Invoice {
	out := make(map[int][]model.Invoice)
	for _, inv := range invoices {
		nums := draw.ParseNumbers(inv.InvoiceNumber)
		switch len(nums) {
		case 0:
		case 1:
			out[nums[0]] = append(out[nums[0]], inv)
		default:
			log.Debug("Skipping invoice naming several draws",
				zap.Int("invoice_id", inv.ID),
				zap.String("invoice_number", inv.InvoiceNumber),
			)
		}
	}
	return out
}

func failed(m draw.Milestone, err error) MilestoneOutcome {
	return MilestoneOutcome{Draw: m.Number, Label: m.Label, Outcome: OutcomeFailed, ErrorMsg: err.Error()}
}
