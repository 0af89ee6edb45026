package root

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"buildflow/internal/service"
)

type syncView struct {
	ProjectID  int                        `json:"project_id"`
	Updated    int                        `json:"updated"`
	Milestones []service.MilestoneOutcome `json:"milestones"`
	Errors     []string                   `json:"errors"`
}

func newSyncDrawsCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync-draws <project-id>",
		Short: "Re-derive draw invoice due dates from the project schedule",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("project id is required")
			}
			if id, err := strconv.Atoi(args[0]); err != nil || id <= 0 {
				return errors.New("project id must be a positive integer")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, _ := strconv.Atoi(args[0])

			app, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			report := app.Draws.SynchronizeDrawDueDates(cmd.Context(), projectID)
			view := syncView{
				ProjectID:  report.ProjectID,
				Updated:    report.Updated,
				Milestones: report.Milestones,
				Errors:     make([]string, 0, len(report.Errors)),
			}
			for _, e := range report.Errors {
				view.Errors = append(view.Errors, e.Error())
			}
			if err := writeJSON(cmd.OutOrStdout(), view); err != nil {
				return err
			}
			if len(report.Errors) > 0 {
				return errors.New("draw sync finished with errors")
			}
			return nil
		},
	}
	return cmd
}
