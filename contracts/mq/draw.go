package mq

import "time"

type DrawOverduePayload struct {
	InvoiceID     int        `json:"invoice_id"`
	ProjectID     int        `json:"project_id"`
	InvoiceNumber string     `json:"invoice_number"`
	DrawNumber    int        `json:"draw_number"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Total         float64    `json:"total"`
}
