package model

import "time"

const (
	ProjectStatusPlanning   = "Planning"
	ProjectStatusActive     = "Active"
	ProjectStatusInProgress = "In Progress"
	ProjectStatusCompleted  = "Completed"
	ProjectStatusCancelled  = "Cancelled"
)

// ProgressionStatuses are the statuses eligible for automatic phase progression.
var ProgressionStatuses = []string{
	ProjectStatusPlanning,
	ProjectStatusActive,
	ProjectStatusInProgress,
}

type Project struct {
	ID                  int        `json:"id"`
	Name                string     `json:"name"`
	Phase               string     `json:"phase"`
	Progress            *int       `json:"progress,omitempty"`
	Status              string     `json:"status"`
	StartDate           *time.Time `json:"start_date,omitempty"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
	PermitApprovedAt    *time.Time `json:"permit_approved_at,omitempty"`
	Budget              float64    `json:"budget"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// PhaseTransition is the write-set of one automatic phase change.
type PhaseTransition struct {
	ProjectID int
	From      string
	To        string
	Progress  int
	At        time.Time
}
