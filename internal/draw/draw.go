// Package draw identifies payment draw invoices and the schedule points their
// due dates follow.
package draw

import (
	"regexp"
	"sort"
	"strconv"
)

// Source says where a milestone's due date comes from.
type Source int

const (
	SourcePermitApproval Source = iota // project permit approval day
	SourcePhaseEnd                     // end date of the first entry whose name contains Match
	SourceDayBeforeStart               // start date of that entry minus one day
	SourceScheduleEnd                  // latest end date of the whole schedule
)

func (s Source) String() string {
	switch s {
	case SourcePermitApproval:
		return "permit_approval"
	case SourcePhaseEnd:
		return "phase_end"
	case SourceDayBeforeStart:
		return "day_before_phase_start"
	case SourceScheduleEnd:
		return "schedule_end"
	default:
		return "unknown"
	}
}

// Milestone is one schedule-driven draw.
type Milestone struct {
	Number int
	Label  string
	Source Source
	// Match is a case-insensitive substring of the schedule entry name, so
	// "Drywall & Painting" still dates Draw 6. Only for SourcePhaseEnd and
	// SourceDayBeforeStart.
	Match string
}

// Milestones are the draws whose due dates track the schedule. Draws 2 and 3
// are set manually and never touched.
var Milestones = []Milestone{
	{Number: 1, Label: "Permit Approval", Source: SourcePermitApproval},
	{Number: 4, Label: "Dried-In", Source: SourcePhaseEnd, Match: "framing crew"},
	{Number: 5, Label: "Rough-Ins Complete", Source: SourceDayBeforeStart, Match: "insulation"},
	{Number: 6, Label: "Drywall Installed", Source: SourcePhaseEnd, Match: "drywall"},
	{Number: 7, Label: "Project Completion", Source: SourceScheduleEnd},
}

// "Draw 4", "draw #4", "DRAW-4", "Draw 1 & 2". The trailing \b keeps
// "Draw 1" from matching "Draw 10". Extra numbers after a joiner must be a
// single digit in 1..7, so date or sequence suffixes such as
// "Draw 5 - 2024-02" are not read as more draws.
var (
	drawPattern = regexp.MustCompile(`(?i)\bdraws?\s*[#\-]?\s*(\d+)\b((?:\s*(?:&|and|,|-|/)\s*[1-7]\b)*)`)
	digits      = regexp.MustCompile(`\d+`)
)

// ParseNumbers returns the distinct draw numbers an invoice number names, in
// ascending order.
func ParseNumbers(invoiceNumber string) []int {
	seen := map[int]bool{}
	for _, m := range drawPattern.FindAllStringSubmatch(invoiceNumber, -1) {
		for _, part := range append([]string{m[1]}, digits.FindAllString(m[2], -1)...) {
			n, err := strconv.Atoi(part)
			if err != nil {
				continue
			}
			seen[n] = true
		}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// NumberOf resolves an invoice to exactly one draw. Invoices naming no draw
// or several draws report ok=false.
func NumberOf(invoiceNumber string) (n int, ok bool) {
	nums := ParseNumbers(invoiceNumber)
	if len(nums) != 1 {
		return 0, false
	}
	return nums[0], true
}
