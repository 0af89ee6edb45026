package service

import (
	"context"
	"fmt"
	"time"

	"buildflow/internal/draw"
	"buildflow/pkg/dateutil"
	"buildflow/pkg/metrics"

	"go.uber.org/zap"
)

// CheckOverdueDraws marks sent draw invoices whose due date has passed as
// Overdue and queues a draw.overdue event for each. It returns how many were
// marked.
func (o *Orchestrator) CheckOverdueDraws(ctx context.Context, today time.Time) (int, error) {
	today = dateutil.Day(today)
	o.logger.Info("Checking for overdue draws...", zap.String("date", dateutil.Format(today)))

	invoices, err := o.invoices.ListOverdueSent(ctx, today)
	if err != nil {
		o.logger.Error("Failed to list overdue invoices", zap.Error(err))
		return 0, fmt.Errorf("list overdue invoices: %w", err)
	}

	if len(invoices) == 0 {
		o.logger.Debug("No overdue draws found")
		return 0, nil
	}

	marked := 0
	for _, inv := range invoices {
		n, ok := draw.NumberOf(inv.InvoiceNumber)
		if !ok {
			continue
		}
		if err := o.invoices.MarkOverdue(ctx, inv, n); err != nil {
			o.logger.Error("Failed to mark draw overdue",
				zap.Int("invoice_id", inv.ID),
				zap.Int("project_id", inv.ProjectID),
				zap.Int("draw", n),
				zap.Error(err),
			)
			continue
		}
		marked++
		metrics.IncrementOverdueDraw()
		o.logger.Info("Draw marked overdue",
			zap.Int("invoice_id", inv.ID),
			zap.Int("project_id", inv.ProjectID),
			zap.Int("draw", n),
		)
	}

	o.logger.Info("Overdue draw check completed",
		zap.Int("overdue_count", marked),
		zap.Int("total_checked", len(invoices)),
	)
	return marked, nil
}
