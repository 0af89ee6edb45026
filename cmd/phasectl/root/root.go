// Package root holds the phasectl commands: one-shot runs of the phase-runner
// jobs against an explicit date, for backfills and support.
package root

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"buildflow/internal/service"
	"buildflow/pkg/dateutil"
)

const Version = "1.0.0"

// Jobs runs the batch jobs under the shared run lock.
type Jobs interface {
	Today() time.Time
	RunPhaseProgressionFor(ctx context.Context, today time.Time) (service.ProgressionResult, error)
	CheckOverdueDrawsFor(ctx context.Context, today time.Time) (int, error)
}

type DrawSyncer interface {
	SynchronizeDrawDueDates(ctx context.Context, projectID int) service.SyncReport
}

// App is what the commands operate on. Close releases its connections.
type App struct {
	Jobs  Jobs
	Draws DrawSyncer
	Close func()
}

// Opener builds an App; the real one connects to PostgreSQL and Redis.
type Opener func(ctx context.Context) (*App, error)

// NewRootCmd wires every subcommand to open.
func NewRootCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "phasectl",
		Short:         "Run phase progression and draw jobs once",
		Long:          "phasectl runs the phase-runner jobs a single time, optionally for a past date.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	cmd.AddCommand(
		newProgressCmd(open),
		newOverdueCmd(open),
		newSyncDrawsCmd(open),
	)
	return cmd
}

func Execute() {
	if err := NewRootCmd(openApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error: "+err.Error())
		os.Exit(1)
	}
}

// dateFlag parses --date, defaulting to the scheduler's today.
func dateFlag(raw string, jobs Jobs) (time.Time, error) {
	if raw == "" {
		return jobs.Today(), nil
	}
	d, err := dateutil.Parse(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
