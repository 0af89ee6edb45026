package model

import "time"

const (
	InvoiceStatusDraft   = "Draft"
	InvoiceStatusSent    = "Sent"
	InvoiceStatusPaid    = "Paid"
	InvoiceStatusOverdue = "Overdue"
	InvoiceStatusVoid    = "Void"
)

type Invoice struct {
	ID            int        `json:"id"`
	ProjectID     int        `json:"project_id"`
	InvoiceNumber string     `json:"invoice_number"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Status        string     `json:"status"` // Draft / Sent / Paid / Overdue / Void
	Total         float64    `json:"total"`
}
