package repository

import (
	"context"
	"fmt"

	mqcontracts "buildflow/contracts/mq"
	"buildflow/internal/model"
	"buildflow/internal/phase"
	"buildflow/pkg/mq"
	"buildflow/pkg/otel"
	"buildflow/pkg/outbox"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ProjectRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		outbox: outboxRepo,
		logger: logger,
	}
}

const projectColumns = `id, name, COALESCE(phase, ''), progress, status, start_date,
               estimated_completion, permit_approved_at, COALESCE(budget, 0), updated_at`

func scanProject(row pgx.Row) (model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Phase,
		&p.Progress,
		&p.Status,
		&p.StartDate,
		&p.EstimatedCompletion,
		&p.PermitApprovedAt,
		&p.Budget,
		&p.UpdatedAt,
	)
	return p, err
}

// ListEligibleForProgression returns active projects that have not reached
// the terminal phase.
func (r *ProjectRepository) ListEligibleForProgression(ctx context.Context) ([]model.Project, error) {
	query := `
        SELECT ` + projectColumns + `
        FROM projects
        WHERE status = ANY($1)
          AND COALESCE(phase, '') <> $2
        ORDER BY id ASC
    `

	var projects []model.Project
	err := otel.Traced(ctx, "select", "projects", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, model.ProgressionStatuses, phase.Final)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProject(rows)
			if err != nil {
				return err
			}
			projects = append(projects, p)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to list projects for progression", zap.Error(err))
		return nil, fmt.Errorf("list eligible projects: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	var p model.Project
	err := otel.Traced(ctx, "select", "projects", func(ctx context.Context) error {
		var err error
		p, err = scanProject(r.db.QueryRow(ctx, query, id))
		return err
	})
	if err != nil {
		return nil, notFound("project", id, err)
	}
	return &p, nil
}

// ApplyPhaseTransition writes the new phase and progress, appends the
// activity entry and queues a project.phase_changed event, all in one
// transaction. The update only applies while the phase still equals t.From.
func (r *ProjectRepository) ApplyPhaseTransition(ctx context.Context, t model.PhaseTransition) error {
	return otel.Traced(ctx, "transition", "projects", func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transition tx: %w", err)
		}
		defer tx.Rollback(ctx)

		tag, err := tx.Exec(ctx, `
            UPDATE projects
            SET phase = $1, progress = $2, updated_at = $3
            WHERE id = $4
              AND COALESCE(phase, '') = $5
        `, t.To, t.Progress, t.At, t.ProjectID, t.From)
		if err != nil {
			return fmt.Errorf("update project %d phase: %w", t.ProjectID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update project %d phase: %w", t.ProjectID, ErrStaleWrite)
		}

		entry := PhaseChangeActivity(t)
		_, err = tx.Exec(ctx, `
            INSERT INTO activity_log (project_id, type, title, description, created_at)
            VALUES ($1, $2, $3, $4, $5)
        `, entry.ProjectID, entry.Type, entry.Title, entry.Description, entry.Timestamp)
		if err != nil {
			return fmt.Errorf("insert activity for project %d: %w", t.ProjectID, err)
		}

		payload := mqcontracts.PhaseChangedPayload{
			ProjectID: t.ProjectID,
			FromPhase: t.From,
			ToPhase:   t.To,
			Progress:  t.Progress,
			ChangedAt: t.At,
		}
		if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "project", int64(t.ProjectID), mq.RoutingPhaseChanged, payload); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transition tx: %w", err)
		}

		r.logger.Info("Project phase updated",
			zap.Int("project_id", t.ProjectID),
			zap.String("from", t.From),
			zap.String("to", t.To),
			zap.Int("progress", t.Progress),
		)
		return nil
	})
}

// PhaseChangeActivity renders the audit entry for a transition.
func PhaseChangeActivity(t model.PhaseTransition) model.ActivityLogEntry {
	from := t.From
	if from == "" {
		from = "(none)"
	}
	return model.ActivityLogEntry{
		ProjectID:   t.ProjectID,
		Type:        model.ActivityTypePhaseChange,
		Title:       fmt.Sprintf("Phase advanced to %s", t.To),
		Description: fmt.Sprintf("Phase automatically changed from %s to %s based on the project schedule. Progress set to %d%%.", from, t.To, t.Progress),
		Timestamp:   t.At,
	}
}
