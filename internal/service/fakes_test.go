package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"buildflow/internal/model"
	"buildflow/internal/phase"
	"buildflow/pkg/dateutil"
)

var errStore = errors.New("connection reset by peer")

// fakeStore backs all three store interfaces with in-memory maps.
type fakeStore struct {
	mu sync.Mutex

	projects  map[int]*model.Project
	schedules map[int][]model.ScheduleEntry
	invoices  map[int]*model.Invoice

	listErr       error
	projectErr    map[int]error
	scheduleErr   map[int]error
	transitionErr map[int]error
	invoiceErr    error
	updateErr     map[int]error

	scheduleReads int
	transitions   []model.PhaseTransition
	dueUpdates    []int
	marked        map[int]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:      map[int]*model.Project{},
		schedules:     map[int][]model.ScheduleEntry{},
		invoices:      map[int]*model.Invoice{},
		projectErr:    map[int]error{},
		scheduleErr:   map[int]error{},
		transitionErr: map[int]error{},
		updateErr:     map[int]error{},
		marked:        map[int]int{},
	}
}

func (f *fakeStore) addProject(p model.Project) {
	f.projects[p.ID] = &p
}

func (f *fakeStore) addSchedule(projectID int, names []string, windows ...[2]time.Time) {
	for i, name := range names {
		f.schedules[projectID] = append(f.schedules[projectID], model.ScheduleEntry{
			ID:        len(f.schedules[projectID]) + 1,
			ProjectID: projectID,
			Name:      name,
			StartDate: windows[i][0],
			EndDate:   windows[i][1],
		})
	}
}

func (f *fakeStore) addInvoice(inv model.Invoice) {
	f.invoices[inv.ID] = &inv
}

func (f *fakeStore) ListEligibleForProgression(ctx context.Context) ([]model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Project
	for _, p := range f.projects {
		eligible := false
		for _, s := range model.ProgressionStatuses {
			if p.Status == s {
				eligible = true
			}
		}
		if eligible && p.Phase != phase.Final {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.projectErr[id]; err != nil {
		return nil, err
	}
	p, ok := f.projects[id]
	if !ok {
		return nil, errors.New("project not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ApplyPhaseTransition(ctx context.Context, t model.PhaseTransition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transitionErr[t.ProjectID]; err != nil {
		return err
	}
	p := f.projects[t.ProjectID]
	p.Phase = t.To
	progress := t.Progress
	p.Progress = &progress
	p.UpdatedAt = t.At
	f.transitions = append(f.transitions, t)
	return nil
}

func (f *fakeStore) LatestEntries(ctx context.Context, projectID int) ([]model.ScheduleEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduleReads++
	if err := f.scheduleErr[projectID]; err != nil {
		return nil, err
	}
	return append([]model.ScheduleEntry(nil), f.schedules[projectID]...), nil
}

func (f *fakeStore) ListByProject(ctx context.Context, projectID int) ([]model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invoiceErr != nil {
		return nil, f.invoiceErr
	}
	var out []model.Invoice
	for _, inv := range f.invoices {
		if inv.ProjectID == projectID {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateDueDate(ctx context.Context, invoiceID int, due time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[invoiceID]; err != nil {
		return err
	}
	d := due
	f.invoices[invoiceID].DueDate = &d
	f.dueUpdates = append(f.dueUpdates, invoiceID)
	return nil
}

func (f *fakeStore) ListOverdueSent(ctx context.Context, today time.Time) ([]model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invoiceErr != nil {
		return nil, f.invoiceErr
	}
	var out []model.Invoice
	for _, inv := range f.invoices {
		if inv.Status == model.InvoiceStatusSent && inv.DueDate != nil && dateutil.Before(*inv.DueDate, today) {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) MarkOverdue(ctx context.Context, inv model.Invoice, drawNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices[inv.ID].Status = model.InvoiceStatusOverdue
	f.marked[inv.ID] = drawNumber
	return nil
}

func window(y1 int, m1 time.Month, d1 int, y2 int, m2 time.Month, d2 int) [2]time.Time {
	return [2]time.Time{dateutil.Date(y1, m1, d1), dateutil.Date(y2, m2, d2)}
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := dateutil.Date(y, m, d)
	return &t
}

func intPtr(v int) *int { return &v }
