// Package phase holds the static construction phase taxonomy. Names compare
// by canonical key only; a label that merely mentions a phase is not that
// phase.
package phase

import (
	"strings"
)

const (
	PlanningAndPermits = "Planning & Permits"
	PreConstruction    = "Pre Construction"

	FramingCrew = "Framing Crew"
	Insulation  = "Insulation"
	Drywall     = "Drywall"
	Final       = "Final"
)

// Definition is one row of the taxonomy.
type Definition struct {
	Name             string
	Ordinal          int
	TargetPercentage int
}

var definitions = []Definition{
	{Name: "Demolition", Ordinal: 1, TargetPercentage: 2},
	{Name: "Site Prep", Ordinal: 2, TargetPercentage: 3},
	{Name: "Excavation", Ordinal: 3, TargetPercentage: 4},
	{Name: "Foundation", Ordinal: 4, TargetPercentage: 6},
	{Name: FramingCrew, Ordinal: 5, TargetPercentage: 10},
	{Name: "Roofing", Ordinal: 6, TargetPercentage: 15},
	{Name: "Windows & Doors", Ordinal: 7, TargetPercentage: 18},
	{Name: "Exterior Sheathing", Ordinal: 8, TargetPercentage: 20},
	{Name: "Rough Plumbing", Ordinal: 9, TargetPercentage: 25},
	{Name: "Rough Electrical", Ordinal: 10, TargetPercentage: 30},
	{Name: "Rough HVAC", Ordinal: 11, TargetPercentage: 35},
	{Name: "Rough-In Inspection", Ordinal: 12, TargetPercentage: 40},
	{Name: Insulation, Ordinal: 13, TargetPercentage: 45},
	{Name: Drywall, Ordinal: 14, TargetPercentage: 50},
	{Name: "Interior Trim", Ordinal: 15, TargetPercentage: 60},
	{Name: "Cabinets", Ordinal: 16, TargetPercentage: 65},
	{Name: "Countertops", Ordinal: 17, TargetPercentage: 70},
	{Name: "Flooring", Ordinal: 18, TargetPercentage: 75},
	{Name: "Painting", Ordinal: 19, TargetPercentage: 80},
	{Name: "Finish Plumbing & Electrical", Ordinal: 20, TargetPercentage: 85},
	{Name: "Punch List", Ordinal: 21, TargetPercentage: 95},
	{Name: Final, Ordinal: 22, TargetPercentage: 100},
}

var byKey = func() map[string]Definition {
	m := make(map[string]Definition, len(definitions))
	for _, d := range definitions {
		m[Key(d.Name)] = d
	}
	return m
}()

// All returns a copy of the taxonomy in ordinal order.
func All() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Key is the canonical identifier of a phase name: lower case with runs of
// whitespace collapsed to one space.
func Key(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Lookup finds the taxonomy row whose canonical key equals name's.
func Lookup(name string) (Definition, bool) {
	d, ok := byKey[Key(name)]
	return d, ok
}

// PercentageFor returns the target completion percentage of a phase.
func PercentageFor(name string) (int, bool) {
	d, ok := Lookup(name)
	if !ok {
		return 0, false
	}
	return d.TargetPercentage, true
}

// IsBootstrap reports whether name is one of the two pre-schedule states that
// precede the taxonomy.
func IsBootstrap(name string) bool {
	k := Key(name)
	return k == Key(PlanningAndPermits) || k == Key(PreConstruction)
}
