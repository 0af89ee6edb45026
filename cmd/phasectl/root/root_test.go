package root

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"buildflow/internal/jobs"
	"buildflow/internal/service"
	"buildflow/pkg/dateutil"
)

type fakeJobs struct {
	today       time.Time
	progressFor []time.Time
	overdueFor  []time.Time
	result      service.ProgressionResult
	err         error
}

func (f *fakeJobs) Today() time.Time { return f.today }

func (f *fakeJobs) RunPhaseProgressionFor(ctx context.Context, today time.Time) (service.ProgressionResult, error) {
	f.progressFor = append(f.progressFor, today)
	return f.result, f.err
}

func (f *fakeJobs) CheckOverdueDrawsFor(ctx context.Context, today time.Time) (int, error) {
	f.overdueFor = append(f.overdueFor, today)
	return 2, f.err
}

type fakeDraws struct {
	calls  []int
	report service.SyncReport
}

func (f *fakeDraws) SynchronizeDrawDueDates(ctx context.Context, projectID int) service.SyncReport {
	f.calls = append(f.calls, projectID)
	r := f.report
	r.ProjectID = projectID
	return r
}

type fixture struct {
	jobs   *fakeJobs
	draws  *fakeDraws
	opened int
	closed int
}

func newFixture() *fixture {
	return &fixture{
		jobs:  &fakeJobs{today: dateutil.Date(2024, 3, 1)},
		draws: &fakeDraws{},
	}
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	open := func(ctx context.Context) (*App, error) {
		f.opened++
		return &App{Jobs: f.jobs, Draws: f.draws, Close: func() { f.closed++ }}, nil
	}
	cmd := NewRootCmd(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestProgressUsesDateFlag(t *testing.T) {
	f := newFixture()
	f.jobs.result = service.ProgressionResult{
		ProjectsChecked: 3,
		ProjectsUpdated: 1,
		Errors:          []service.ProjectError{{ProjectID: 9, Err: errors.New("connection reset")}},
	}

	out, err := f.run(t, "progress", "--date", "2024-01-15")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(f.jobs.progressFor) != 1 || !f.jobs.progressFor[0].Equal(dateutil.Date(2024, 1, 15)) {
		t.Fatalf("ran for %v", f.jobs.progressFor)
	}

	var view progressView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, out)
	}
	if view.Date != "2024-01-15" || view.ProjectsUpdated != 1 || len(view.PerProjectErrors) != 1 || view.PerProjectErrors[0].ProjectID != 9 {
		t.Fatalf("view = %+v", view)
	}
	if f.closed != f.opened {
		t.Fatalf("opened %d, closed %d", f.opened, f.closed)
	}
}

func TestProgressDefaultsToToday(t *testing.T) {
	f := newFixture()
	if _, err := f.run(t, "progress"); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !f.jobs.progressFor[0].Equal(f.jobs.today) {
		t.Fatalf("ran for %v, want %v", f.jobs.progressFor[0], f.jobs.today)
	}
}

func TestProgressRejectsBadDate(t *testing.T) {
	f := newFixture()
	if _, err := f.run(t, "progress", "--date", "15/01/2024"); err == nil || !strings.Contains(err.Error(), "YYYY-MM-DD") {
		t.Fatalf("err = %v", err)
	}
	if len(f.jobs.progressFor) != 0 {
		t.Fatal("job must not run with a bad date")
	}
}

func TestProgressReportsHeldLock(t *testing.T) {
	f := newFixture()
	f.jobs.err = jobs.ErrRunInProgress
	if _, err := f.run(t, "progress"); !errors.Is(err, jobs.ErrRunInProgress) {
		t.Fatalf("err = %v, want ErrRunInProgress", err)
	}
}

func TestOverdue(t *testing.T) {
	f := newFixture()
	out, err := f.run(t, "overdue", "--date", "2024-02-10")
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if !f.jobs.overdueFor[0].Equal(dateutil.Date(2024, 2, 10)) || !strings.Contains(out, `"marked": 2`) {
		t.Fatalf("ran for %v, output %s", f.jobs.overdueFor, out)
	}
}

func TestSyncDrawsValidatesProjectID(t *testing.T) {
	for _, args := range [][]string{{"sync-draws"}, {"sync-draws", "abc"}, {"sync-draws", "0"}} {
		f := newFixture()
		if _, err := f.run(t, args...); err == nil {
			t.Fatalf("%v: expected error", args)
		}
		if f.opened != 0 {
			t.Fatalf("%v: app opened before args were valid", args)
		}
	}
}

func TestSyncDraws(t *testing.T) {
	f := newFixture()
	f.draws.report = service.SyncReport{Updated: 2}

	out, err := f.run(t, "sync-draws", "12")
	if err != nil {
		t.Fatalf("sync-draws: %v", err)
	}
	if len(f.draws.calls) != 1 || f.draws.calls[0] != 12 {
		t.Fatalf("calls = %v", f.draws.calls)
	}
	var view syncView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	if view.ProjectID != 12 || view.Updated != 2 || len(view.Errors) != 0 {
		t.Fatalf("view = %+v", view)
	}
}

func TestSyncDrawsFailsOnMilestoneErrors(t *testing.T) {
	f := newFixture()
	f.draws.report = service.SyncReport{Errors: []error{errors.New("write failed")}}

	out, err := f.run(t, "sync-draws", "12")
	if err == nil {
		t.Fatal("expected error exit")
	}
	if !strings.Contains(out, "write failed") {
		t.Fatalf("errors not printed: %s", out)
	}
}
