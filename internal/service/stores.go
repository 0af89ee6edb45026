package service

import (
	"context"
	"time"

	"buildflow/internal/model"
)

// ProjectStore is satisfied by repository.ProjectRepository.
type ProjectStore interface {
	ListEligibleForProgression(ctx context.Context) ([]model.Project, error)
	GetByID(ctx context.Context, id int) (*model.Project, error)
	ApplyPhaseTransition(ctx context.Context, t model.PhaseTransition) error
}

// ScheduleStore is satisfied by repository.ScheduleRepository.
type ScheduleStore interface {
	LatestEntries(ctx context.Context, projectID int) ([]model.ScheduleEntry, error)
}

// InvoiceStore is satisfied by repository.InvoiceRepository.
type InvoiceStore interface {
	ListByProject(ctx context.Context, projectID int) ([]model.Invoice, error)
	UpdateDueDate(ctx context.Context, invoiceID int, due time.Time) error
	ListOverdueSent(ctx context.Context, today time.Time) ([]model.Invoice, error)
	MarkOverdue(ctx context.Context, inv model.Invoice, drawNumber int) error
}
