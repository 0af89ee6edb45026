package service

import (
	"context"
	"errors"
	"testing"

	"buildflow/internal/model"
	"buildflow/pkg/dateutil"
)

func TestCheckOverdueDraws(t *testing.T) {
	store := newFakeStore()
	store.addInvoice(model.Invoice{ID: 1, ProjectID: 1, InvoiceNumber: "Draw 4", Status: model.InvoiceStatusSent, DueDate: datePtr(2024, 1, 10)})
	store.addInvoice(model.Invoice{ID: 2, ProjectID: 1, InvoiceNumber: "Draw 5", Status: model.InvoiceStatusSent, DueDate: datePtr(2024, 2, 10)})
	store.addInvoice(model.Invoice{ID: 3, ProjectID: 1, InvoiceNumber: "Draw 1", Status: model.InvoiceStatusPaid, DueDate: datePtr(2024, 1, 1)})
	store.addInvoice(model.Invoice{ID: 4, ProjectID: 1, InvoiceNumber: "INV-100", Status: model.InvoiceStatusSent, DueDate: datePtr(2024, 1, 1)})
	store.addInvoice(model.Invoice{ID: 5, ProjectID: 2, InvoiceNumber: "Draw 6", Status: model.InvoiceStatusSent, DueDate: datePtr(2024, 1, 15)})

	marked, err := newTestOrchestrator(store).CheckOverdueDraws(context.Background(), dateutil.Date(2024, 1, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if marked != 1 {
		t.Fatalf("marked %d, want 1", marked)
	}
	if store.marked[1] != 4 || store.invoices[1].Status != model.InvoiceStatusOverdue {
		t.Fatalf("draw 4 invoice should be overdue, got %+v", store.invoices[1])
	}
	if store.invoices[4].Status != model.InvoiceStatusSent {
		t.Fatalf("non-draw invoices are left alone")
	}
}

func TestCheckOverdueDrawsListingFailure(t *testing.T) {
	store := newFakeStore()
	store.invoiceErr = errStore

	if _, err := newTestOrchestrator(store).CheckOverdueDraws(context.Background(), dateutil.Date(2024, 1, 15)); !errors.Is(err, errStore) {
		t.Fatalf("got %v, want listing error", err)
	}
}
