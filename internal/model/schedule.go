package model

import "time"

// ScheduleEntry is one trade window of a schedule snapshot.
type ScheduleEntry struct {
	ID           int       `json:"id"`
	SnapshotID   int       `json:"snapshot_id"`
	ProjectID    int       `json:"project_id"`
	Name         string    `json:"name"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	DurationDays int       `json:"duration_days"`
}
