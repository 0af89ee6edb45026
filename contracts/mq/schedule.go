package mq

// ScheduleChangedPayload is published by the scheduling UI whenever a new
// schedule snapshot is saved.
type ScheduleChangedPayload struct {
	ProjectID  int   `json:"project_id"`
	SnapshotID int64 `json:"snapshot_id,omitempty"`
}
