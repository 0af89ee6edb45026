package root

import (
	"github.com/spf13/cobra"

	"buildflow/pkg/dateutil"
)

type projectErrorView struct {
	ProjectID int    `json:"project_id"`
	Error     string `json:"error"`
}

type progressView struct {
	Date             string             `json:"date"`
	ProjectsChecked  int                `json:"projects_checked"`
	ProjectsUpdated  int                `json:"projects_updated"`
	PerProjectErrors []projectErrorView `json:"per_project_errors"`
}

func newProgressCmd(open Opener) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Advance project phases from their schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			today, err := dateFlag(date, app.Jobs)
			if err != nil {
				return err
			}
			res, err := app.Jobs.RunPhaseProgressionFor(cmd.Context(), today)
			if err != nil {
				return err
			}

			view := progressView{
				Date:             dateutil.Format(today),
				ProjectsChecked:  res.ProjectsChecked,
				ProjectsUpdated:  res.ProjectsUpdated,
				PerProjectErrors: make([]projectErrorView, 0, len(res.Errors)),
			}
			for _, pe := range res.Errors {
				view.PerProjectErrors = append(view.PerProjectErrors, projectErrorView{ProjectID: pe.ProjectID, Error: pe.Err.Error()})
			}
			return writeJSON(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to evaluate (YYYY-MM-DD), defaults to today")
	return cmd
}
