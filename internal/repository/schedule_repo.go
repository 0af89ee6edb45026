package repository

import (
	"context"
	"fmt"
	"time"

	"buildflow/internal/model"
	"buildflow/pkg/otel"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ScheduleRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewScheduleRepository(db *pgxpool.Pool, logger *zap.Logger) *ScheduleRepository {
	return &ScheduleRepository{
		db:     db,
		logger: logger,
	}
}

// LatestEntries returns the rows of the project's most recent snapshot. No
// snapshot yields an empty slice.
func (r *ScheduleRepository) LatestEntries(ctx context.Context, projectID int) ([]model.ScheduleEntry, error) {
	query := `
        SELECT e.id, e.snapshot_id, s.project_id, COALESCE(e.name, ''),
               e.start_date, e.end_date, COALESCE(e.duration_days, 0)
        FROM schedule_entries e
        JOIN schedule_snapshots s ON s.id = e.snapshot_id
        WHERE e.snapshot_id = (
            SELECT id FROM schedule_snapshots
            WHERE project_id = $1
            ORDER BY created_at DESC, id DESC
            LIMIT 1
        )
        ORDER BY e.start_date ASC NULLS LAST, e.id ASC
    `

	var entries []model.ScheduleEntry
	err := otel.Traced(ctx, "select", "schedule_entries", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, projectID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				e          model.ScheduleEntry
				start, end *time.Time
			)
			if err := rows.Scan(&e.ID, &e.SnapshotID, &e.ProjectID, &e.Name, &start, &end, &e.DurationDays); err != nil {
				return err
			}
			if start != nil {
				e.StartDate = *start
			}
			if end != nil {
				e.EndDate = *end
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to load schedule", zap.Int("project_id", projectID), zap.Error(err))
		return nil, fmt.Errorf("load schedule for project %d: %w", projectID, err)
	}
	return entries, nil
}
