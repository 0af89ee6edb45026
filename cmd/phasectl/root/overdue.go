package root

import (
	"github.com/spf13/cobra"

	"buildflow/pkg/dateutil"
)

func newOverdueCmd(open Opener) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "Mark sent draw invoices past their due date as overdue",
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
			marked, err := app.Jobs.CheckOverdueDrawsFor(cmd.Context(), today)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"date":   dateutil.Format(today),
				"marked": marked,
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to evaluate (YYYY-MM-DD), defaults to today")
	return cmd
}
