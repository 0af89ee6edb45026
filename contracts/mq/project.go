package mq

import "time"

// PhaseChangedPayload announces an automatic phase transition.
type PhaseChangedPayload struct {
	ProjectID int       `json:"project_id"`
	FromPhase string    `json:"from_phase"`
	ToPhase   string    `json:"to_phase"`
	Progress  int       `json:"progress"`
	ChangedAt time.Time `json:"changed_at"`
}
