package phase

import "testing"

func TestTaxonomyPercentagesAreMonotonicAndBounded(t *testing.T) {
	all := All()
	if len(all) != 22 {
		t.Fatalf("expected 22 phases, got %d", len(all))
	}
	seen := map[string]bool{}
	prev := -1
	for i, d := range all {
		if d.Ordinal != i+1 {
			t.Fatalf("phase %q has ordinal %d at position %d", d.Name, d.Ordinal, i)
		}
		if d.TargetPercentage < 0 || d.TargetPercentage > 100 {
			t.Fatalf("phase %q percentage %d out of range", d.Name, d.TargetPercentage)
		}
		if d.TargetPercentage < prev {
			t.Fatalf("phase %q percentage %d decreases from %d", d.Name, d.TargetPercentage, prev)
		}
		if seen[Key(d.Name)] {
			t.Fatalf("duplicate phase %q", d.Name)
		}
		seen[Key(d.Name)] = true
		prev = d.TargetPercentage
	}
	if all[len(all)-1].Name != Final {
		t.Fatalf("last phase should be %q", Final)
	}
}

func TestPercentageFor(t *testing.T) {
	cases := []struct {
		name string
		want int
		ok   bool
	}{
		{FramingCrew, 10, true},
		{"framing  crew", 10, true},
		{Insulation, 45, true},
		{Final, 100, true},
		{PreConstruction, 0, false},
		{"Landscaping", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := PercentageFor(tc.name)
		if got != tc.want || ok != tc.ok {
			t.Errorf("PercentageFor(%q) = %d,%v want %d,%v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAllReturnsCopy(t *testing.T) {
	all := All()
	all[0].TargetPercentage = 99
	if p, _ := PercentageFor(all[0].Name); p == 99 {
		t.Fatalf("All() must not expose the backing table")
	}
}

func TestLookupIsExact(t *testing.T) {
	cases := []struct {
		label string
		want  string
		ok    bool
	}{
		{"Framing Crew", FramingCrew, true},
		{"  framing   CREW ", FramingCrew, true},
		{"Final", Final, true},
		{"Final Electrical Inspection", "", false},
		{"Finalize permits", "", false},
		{"Drywall & Painting", "", false},
		{"Landscaping", "", false},
		{"   ", "", false},
	}
	for _, tc := range cases {
		got, ok := Lookup(tc.label)
		if ok != tc.ok || got.Name != tc.want {
			t.Errorf("Lookup(%q) = %q,%v want %q,%v", tc.label, got.Name, ok, tc.want, tc.ok)
		}
	}
}

func TestIsBootstrap(t *testing.T) {
	if !IsBootstrap("pre construction") || !IsBootstrap(PlanningAndPermits) {
		t.Fatalf("bootstrap states not recognized")
	}
	if IsBootstrap(FramingCrew) {
		t.Fatalf("%q is not a bootstrap state", FramingCrew)
	}
}
