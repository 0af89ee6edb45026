// Package schedule exposes a project's latest schedule snapshot as an ordered,
// validated list of trade windows.
package schedule

import (
	"sort"
	"strings"
	"time"

	"buildflow/internal/model"
	"buildflow/internal/phase"
	"buildflow/pkg/dateutil"

	"go.uber.org/zap"
)

// Entry is a validated schedule window. Phase is the taxonomy phase whose
// canonical key equals the entry name, or "" for any other label.
type Entry struct {
	Name      string
	Phase     string
	StartDate time.Time
	EndDate   time.Time
}

// Schedule is immutable once built.
type Schedule struct {
	entries []Entry
}

// New validates rows and sorts them by start date. Rows with missing dates or
// an end before their start are dropped and logged; they never fail the build.
func New(rows []model.ScheduleEntry, logger *zap.Logger) *Schedule {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		if r.StartDate.IsZero() || r.EndDate.IsZero() {
			logger.Warn("Skipping schedule entry with missing dates",
				zap.Int("project_id", r.ProjectID),
				zap.Int("entry_id", r.ID),
				zap.String("name", r.Name),
			)
			continue
		}
		start, end := dateutil.Day(r.StartDate), dateutil.Day(r.EndDate)
		if end.Before(start) {
			logger.Warn("Skipping schedule entry that ends before it starts",
				zap.Int("project_id", r.ProjectID),
				zap.Int("entry_id", r.ID),
				zap.String("name", r.Name),
				zap.String("start_date", dateutil.Format(start)),
				zap.String("end_date", dateutil.Format(end)),
			)
			continue
		}
		e := Entry{Name: r.Name, StartDate: start, EndDate: end}
		if d, ok := phase.Lookup(r.Name); ok {
			e.Phase = d.Name
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].StartDate.Equal(entries[j].StartDate) {
			return entries[i].StartDate.Before(entries[j].StartDate)
		}
		return entries[i].EndDate.Before(entries[j].EndDate)
	})

	return &Schedule{entries: entries}
}

// Entries returns a copy of the ordered windows.
func (s *Schedule) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Schedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

func (s *Schedule) Empty() bool { return s.Len() == 0 }

// FindByName returns the first entry whose name contains substr, ignoring
// case. Ambiguous labels are not disambiguated: first match wins.
func (s *Schedule) FindByName(substr string) (Entry, bool) {
	needle := strings.ToLower(strings.TrimSpace(substr))
	if needle == "" || s == nil {
		return Entry{}, false
	}
	for _, e := range s.entries {
		if strings.Contains(strings.ToLower(e.Name), needle) {
			return e, true
		}
	}
	return Entry{}, false
}

// FindByPhase returns the first entry whose name is the given taxonomy phase.
func (s *Schedule) FindByPhase(name string) (Entry, bool) {
	i := s.IndexOfPhase(name)
	if i < 0 {
		return Entry{}, false
	}
	return s.entries[i], true
}

// IndexOfPhase is FindByPhase returning a position, or -1.
func (s *Schedule) IndexOfPhase(name string) int {
	if s == nil {
		return -1
	}
	d, ok := phase.Lookup(name)
	if !ok {
		return -1
	}
	for i, e := range s.entries {
		if e.Phase == d.Name {
			return i
		}
	}
	return -1
}

// LatestEnd is the maximum end date across all entries.
func (s *Schedule) LatestEnd() (time.Time, bool) {
	if s.Empty() {
		return time.Time{}, false
	}
	latest := s.entries[0].EndDate
	for _, e := range s.entries[1:] {
		if e.EndDate.After(latest) {
			latest = e.EndDate
		}
	}
	return latest, true
}
