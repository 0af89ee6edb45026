// Package progress computes display metrics for a project from its schedule,
// stored progress and invoices. Everything here is pure and never fails:
// missing inputs fall through to the next rule.
package progress

import (
	"math"
	"strings"
	"time"

	"buildflow/internal/model"
	"buildflow/internal/schedule"
	"buildflow/pkg/dateutil"
)

// Source names the rule that produced the progress figure.
const (
	SourceSchedule = "schedule"
	SourceStored   = "stored"
	SourceTime     = "time"
	SourceNone     = "none"

	PaymentSourceInvoices = "invoices"
	PaymentSourceTranches = "tranches"
)

// TranchePercentages is the fallback payment plan, deposit first.
var TranchePercentages = []float64{20, 20, 15, 15, 15, 10, 5}

type Input struct {
	Project  model.Project
	Schedule *schedule.Schedule // nil when the schedule could not be read
	Invoices []model.Invoice    // empty when invoices are unknown
}

type Estimate struct {
	Phase   string `json:"phase"`
	Percent int    `json:"progress_percent"`
	Source  string `json:"source"`
}

type Tranche struct {
	Index   int     `json:"index"`
	Percent float64 `json:"percent"`
	Amount  float64 `json:"amount"`
	Paid    bool    `json:"paid"`
}

type PaymentData struct {
	Source           string    `json:"source"`
	TotalPaid        float64   `json:"total_paid"`
	RemainingBalance float64   `json:"remaining_balance"`
	PaymentProgress  float64   `json:"payment_progress"`
	Tranches         []Tranche `json:"tranches,omitempty"`
}

type ConstructionMetrics struct {
	Known        bool `json:"known"`
	DurationDays int  `json:"duration_days"`
	ElapsedDays  int  `json:"elapsed_days"`
}

type ProjectMetrics struct {
	ProjectID           int                 `json:"project_id"`
	Phase               string              `json:"phase"`
	ProgressPercent     int                 `json:"progress_percent"`
	ProgressSource      string              `json:"progress_source"`
	PaymentData         PaymentData         `json:"payment_data"`
	ConstructionMetrics ConstructionMetrics `json:"construction_metrics"`
}

// Tier is one link of the progress fallback chain.
type Tier func(today time.Time, in Input) (Estimate, bool)

// Chain is tried in order; the first tier that reports ok wins.
var Chain = []Tier{FromSchedule, FromStored, FromTimeline}

// Compute builds the full metrics view for one project.
func Compute(today time.Time, in Input) ProjectMetrics {
	today = dateutil.Day(today)

	est := Estimate{Phase: in.Project.Phase, Source: SourceNone}
	for _, tier := range Chain {
		if e, ok := tier(today, in); ok {
			est = e
			break
		}
	}
	if est.Phase == "" {
		est.Phase = in.Project.Phase
	}

	return ProjectMetrics{
		ProjectID:           in.Project.ID,
		Phase:               est.Phase,
		ProgressPercent:     est.Percent,
		ProgressSource:      est.Source,
		PaymentData:         Payments(in.Project, in.Invoices),
		ConstructionMetrics: Construction(today, in.Project),
	}
}

// FromSchedule places today inside the ordered trade windows. A day between
// two windows counts the last finished window as complete.
func FromSchedule(today time.Time, in Input) (Estimate, bool) {
	entries := in.Schedule.Entries()
	n := len(entries)
	if n == 0 {
		return Estimate{}, false
	}
	today = dateutil.Day(today)

	first, last := entries[0], entries[n-1]
	if today.Before(first.StartDate) {
		return Estimate{Phase: first.Name, Percent: 0, Source: SourceSchedule}, true
	}

	current := -1
	for i, e := range entries {
		if !today.Before(e.StartDate) && !today.After(e.EndDate) {
			current = i
		}
	}
	if current >= 0 {
		e := entries[current]
		frac := 0.0
		if span := dateutil.DaysBetween(e.StartDate, e.EndDate); span > 0 {
			frac = clamp(dateutil.DaysBetween(e.StartDate, today)/span, 0, 1)
		}
		pct := int(math.Round((float64(current) + frac) / float64(n) * 100))
		return Estimate{Phase: e.Name, Percent: pct, Source: SourceSchedule}, true
	}

	if today.After(last.EndDate) {
		return Estimate{Phase: last.Name, Percent: 100, Source: SourceSchedule}, true
	}

	finished := -1
	for i, e := range entries {
		if today.After(e.EndDate) {
			finished = i
		}
	}
	if finished < 0 {
		return Estimate{}, false
	}
	pct := int(math.Round(float64(finished+1) / float64(n) * 100))
	return Estimate{Phase: entries[finished].Name, Percent: pct, Source: SourceSchedule}, true
}

// FromStored uses the progress value persisted on the project.
func FromStored(_ time.Time, in Input) (Estimate, bool) {
	p := in.Project.Progress
	if p == nil || *p < 0 {
		return Estimate{}, false
	}
	return Estimate{Phase: in.Project.Phase, Percent: min(*p, 100), Source: SourceStored}, true
}

// FromTimeline interpolates between start date and estimated completion.
func FromTimeline(today time.Time, in Input) (Estimate, bool) {
	p := in.Project
	if p.StartDate == nil || p.EstimatedCompletion == nil {
		return Estimate{}, false
	}
	total := dateutil.DaysBetween(*p.StartDate, *p.EstimatedCompletion)
	if total <= 0 {
		return Estimate{}, false
	}
	frac := clamp(dateutil.DaysBetween(*p.StartDate, today)/total, 0, 1)
	return Estimate{Phase: p.Phase, Percent: int(math.Round(frac * 100)), Source: SourceTime}, true
}

// Payments prefers real invoice data and falls back to the tranche plan.
func Payments(p model.Project, invoices []model.Invoice) PaymentData {
	if len(invoices) > 0 {
		return fromInvoices(p, invoices)
	}
	return fromTranches(p)
}

func fromInvoices(p model.Project, invoices []model.Invoice) PaymentData {
	var paid float64
	for _, inv := range invoices {
		if inv.ProjectID != 0 && inv.ProjectID != p.ID {
			continue
		}
		if strings.EqualFold(inv.Status, model.InvoiceStatusPaid) {
			paid += inv.Total
		}
	}
	return PaymentData{
		Source:           PaymentSourceInvoices,
		TotalPaid:        paid,
		RemainingBalance: math.Max(0, p.Budget-paid),
		PaymentProgress:  paymentProgress(paid, p.Budget),
	}
}

func fromTranches(p model.Project) PaymentData {
	stored := 0
	if p.Progress != nil {
		stored = *p.Progress
	}
	n := len(TranchePercentages)
	tranches := make([]Tranche, 0, n)
	var paid float64
	for i, pct := range TranchePercentages {
		t := Tranche{Index: i, Percent: pct, Amount: p.Budget * pct / 100}
		threshold := float64(i) / float64(n-1) * 100
		t.Paid = i == 0 || float64(stored) >= threshold
		if t.Paid {
			paid += t.Amount
		}
		tranches = append(tranches, t)
	}
	return PaymentData{
		Source:           PaymentSourceTranches,
		TotalPaid:        paid,
		RemainingBalance: math.Max(0, p.Budget-paid),
		PaymentProgress:  paymentProgress(paid, p.Budget),
		Tranches:         tranches,
	}
}

func paymentProgress(paid, budget float64) float64 {
	if budget <= 0 {
		return 0
	}
	return clamp(paid/budget*100, 0, 100)
}

// Construction reports planned and elapsed days of the build.
func Construction(today time.Time, p model.Project) ConstructionMetrics {
	if p.StartDate == nil || p.EstimatedCompletion == nil {
		return ConstructionMetrics{}
	}
	duration := dateutil.CeilDays(*p.StartDate, *p.EstimatedCompletion)
	if duration < 0 {
		duration = 0
	}
	elapsed := clamp(dateutil.DaysBetween(*p.StartDate, today), 0, float64(duration))
	return ConstructionMetrics{
		Known:        true,
		DurationDays: duration,
		ElapsedDays:  int(math.Floor(elapsed)),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
