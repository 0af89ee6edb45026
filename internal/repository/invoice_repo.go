package repository

import (
	"context"
	"fmt"
	"time"

	mqcontracts "buildflow/contracts/mq"
	"buildflow/internal/model"
	"buildflow/pkg/mq"
	"buildflow/pkg/otel"
	"buildflow/pkg/outbox"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type InvoiceRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewInvoiceRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		outbox: outboxRepo,
		logger: logger,
	}
}

const invoiceColumns = `id, project_id, COALESCE(invoice_number, ''), due_date, status, COALESCE(total, 0)`

func scanInvoices(rows pgx.Rows) ([]model.Invoice, error) {
	defer rows.Close()

	var invoices []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(&inv.ID, &inv.ProjectID, &inv.InvoiceNumber, &inv.DueDate, &inv.Status, &inv.Total); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) ListByProject(ctx context.Context, projectID int) ([]model.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE project_id = $1 ORDER BY id ASC`

	var invoices []model.Invoice
	err := otel.Traced(ctx, "select", "invoices", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, projectID)
		if err != nil {
			return err
		}
		invoices, err = scanInvoices(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list invoices for project %d: %w", projectID, err)
	}
	return invoices, nil
}

// UpdateDueDate overwrites one invoice's due date.
func (r *InvoiceRepository) UpdateDueDate(ctx context.Context, invoiceID int, due time.Time) error {
	return otel.Traced(ctx, "update", "invoices", func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, `
            UPDATE invoices
            SET due_date = $1, updated_at = NOW()
            WHERE id = $2
        `, due, invoiceID)
		if err != nil {
			return fmt.Errorf("update due date of invoice %d: %w", invoiceID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("invoice %d: %w", invoiceID, ErrNotFound)
		}
		return nil
	})
}

// ListOverdueSent returns sent invoices whose due date is before today.
func (r *InvoiceRepository) ListOverdueSent(ctx context.Context, today time.Time) ([]model.Invoice, error) {
	query := `
        SELECT ` + invoiceColumns + `
        FROM invoices
        WHERE status = $1
          AND due_date IS NOT NULL
          AND due_date < $2
        ORDER BY due_date ASC, id ASC
    `

	var invoices []model.Invoice
	err := otel.Traced(ctx, "select", "invoices", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, model.InvoiceStatusSent, today)
		if err != nil {
			return err
		}
		invoices, err = scanInvoices(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list overdue invoices: %w", err)
	}
	return invoices, nil
}

// MarkOverdue flips a sent invoice to Overdue and queues a draw.overdue
// event in the same transaction.
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, inv model.Invoice, drawNumber int) error {
	return otel.Traced(ctx, "mark_overdue", "invoices", func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin overdue tx: %w", err)
		}
		defer tx.Rollback(ctx)

		tag, err := tx.Exec(ctx, `
            UPDATE invoices
            SET status = $1, updated_at = NOW()
            WHERE id = $2 AND status = $3
        `, model.InvoiceStatusOverdue, inv.ID, model.InvoiceStatusSent)
		if err != nil {
			return fmt.Errorf("mark invoice %d overdue: %w", inv.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("mark invoice %d overdue: %w", inv.ID, ErrStaleWrite)
		}

		payload := mqcontracts.DrawOverduePayload{
			InvoiceID:     inv.ID,
			ProjectID:     inv.ProjectID,
			InvoiceNumber: inv.InvoiceNumber,
			DrawNumber:    drawNumber,
			DueDate:       inv.DueDate,
			Total:         inv.Total,
		}
		if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "invoice", int64(inv.ID), mq.RoutingDrawOverdue, payload); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit overdue tx: %w", err)
		}
		return nil
	})
}
