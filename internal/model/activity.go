package model

import "time"

const ActivityTypePhaseChange = "phase_change"

// ActivityLogEntry is append-only.
type ActivityLogEntry struct {
	ID          int       `json:"id"`
	ProjectID   int       `json:"project_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}
