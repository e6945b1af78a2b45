package filter

import (
	"testing"

	"vibelymap/internal/models"
)

func intp(n int) *int { return &n }

func TestMatcher_EmptySelectionPassesEverything(t *testing.T) {
	m := NewMatcher()
	venues := []models.Venue{
		{ID: "p1", Name: "Plain"},
		{ID: "p2", Name: "Tagged", Tags: []string{"Retro", "Lighting 2"}},
	}
	for _, v := range venues {
		if !m.Matches(v, models.FilterSelection{}) {
			t.Fatalf("venue %s should pass empty selection", v.ID)
		}
	}
}

func TestMatcher_LightingThreshold(t *testing.T) {
	m := NewMatcher()
	venue := models.Venue{ID: "p1", Tags: []string{"Lighting 3"}}

	sel := models.FilterSelection{Ranges: models.FilterRanges{Lighting: intp(3)}}
	if !m.Matches(venue, sel) {
		t.Fatal("Lighting 3 should satisfy threshold 3 (inclusive)")
	}

	sel.Ranges.Lighting = intp(4)
	if m.Matches(venue, sel) {
		t.Fatal("Lighting 3 should not satisfy threshold 4")
	}
}

func TestMatcher_MissingDataPassesRanges(t *testing.T) {
	m := NewMatcher()
	venue := models.Venue{ID: "p1", Name: "Untagged"}

	sel := models.FilterSelection{Ranges: models.FilterRanges{
		Lighting: intp(4),
		Seating:  intp(2),
	}}
	if !m.Matches(venue, sel) {
		t.Fatal("venue with no structured tags must pass range thresholds")
	}
}

func TestMatcher_SeatingThreshold(t *testing.T) {
	m := NewMatcher()
	tests := []struct {
		tag       string
		threshold int
		want      bool
	}{
		{"No seating", 1, false},
		{"Seating limited", 1, true},
		{"Seating limited", 2, false},
		{"Seating moderate", 2, true},
		{"Seating available", 3, true},
	}
	for _, tt := range tests {
		venue := models.Venue{ID: "p", Tags: []string{tt.tag}}
		sel := models.FilterSelection{Ranges: models.FilterRanges{Seating: intp(tt.threshold)}}
		if got := m.Matches(venue, sel); got != tt.want {
			t.Errorf("tag %q threshold %d: got %v, want %v", tt.tag, tt.threshold, got, tt.want)
		}
	}
}

func TestMatcher_CategoryKeywordSubstring(t *testing.T) {
	m := NewMatcher()

	// Raw provider type matches the selected category by keyword, even
	// with zero explicit tags.
	venue := models.Venue{ID: "p1", Name: "Corner Spot", RawTypes: []string{"coffee_shop", "point_of_interest"}}
	sel := models.FilterSelection{Categories: []string{"Cafe"}}
	if !m.Matches(venue, sel) {
		t.Fatal("Cafe selection should match raw type coffee_shop")
	}

	// Name-based match.
	venue = models.Venue{ID: "p2", Name: "Blue Bottle Coffee"}
	if !m.Matches(venue, sel) {
		t.Fatal("Cafe selection should match venue name containing coffee")
	}

	// Non-matching category.
	venue = models.Venue{ID: "p3", Name: "Steakhouse", RawTypes: []string{"restaurant"}}
	if m.Matches(venue, sel) {
		t.Fatal("Cafe selection should not match a plain restaurant")
	}

	// Unknown option falls back to its own text.
	venue = models.Venue{ID: "p4", Name: "Vegan Corner", RawTypes: []string{"vegan_restaurant"}}
	sel = models.FilterSelection{Categories: []string{"vegan"}}
	if !m.Matches(venue, sel) {
		t.Fatal("unknown category option should match by substring fallback")
	}
}

func TestMatcher_CriterionCrossMatch(t *testing.T) {
	m := NewMatcher()

	// Same-group cross-match: selecting "Smoking allowed" accepts a venue
	// tagged with the indoor variant.
	venue := models.Venue{ID: "p1", Tags: []string{"Smoking allowed indoors"}}
	sel := models.FilterSelection{Criteria: map[string][]string{
		"smoking": {"Smoking allowed"},
	}}
	if !m.Matches(venue, sel) {
		t.Fatal("smoking group cross-match failed")
	}

	// Ambiance styles never cross-match.
	venue = models.Venue{ID: "p2", Tags: []string{"Modern"}}
	sel = models.FilterSelection{Criteria: map[string][]string{
		"ambiance": {"Retro"},
	}}
	if m.Matches(venue, sel) {
		t.Fatal("Retro selection must not accept a Modern-only venue")
	}

	// Features participate in criterion matching too.
	venue = models.Venue{ID: "p3", Features: []string{"Table outlet"}}
	sel = models.FilterSelection{Criteria: map[string][]string{
		"outlets": {"Outlets available"},
	}}
	if !m.Matches(venue, sel) {
		t.Fatal("outlet group cross-match over features failed")
	}
}

func TestMatcher_EmptyCriterionImposesNothing(t *testing.T) {
	m := NewMatcher()
	venue := models.Venue{ID: "p1", Name: "Plain"}
	sel := models.FilterSelection{
		Categories: []string{"Cafe"},
		Criteria:   map[string][]string{"smoking": {}},
	}
	venue.RawTypes = []string{"cafe"}
	if !m.Matches(venue, sel) {
		t.Fatal("criterion with zero selected options must impose no constraint")
	}
}

func TestMatcher_AllCriteriaMustHold(t *testing.T) {
	m := NewMatcher()
	venue := models.Venue{
		ID:       "p1",
		RawTypes: []string{"cafe"},
		Tags:     []string{"Lighting 4", "Sea view"},
	}
	sel := models.FilterSelection{
		Categories: []string{"Cafe"},
		Criteria:   map[string][]string{"view": {"Sea view"}},
		Ranges:     models.FilterRanges{Lighting: intp(3)},
	}
	if !m.Matches(venue, sel) {
		t.Fatal("venue satisfying every criterion should match")
	}

	sel.Criteria["view"] = []string{"Smoking allowed"}
	if m.Matches(venue, sel) {
		t.Fatal("one failing criterion must reject the venue")
	}
}

func TestMatchAll_PreservesOrder(t *testing.T) {
	m := NewMatcher()
	venues := []models.Venue{
		{ID: "a", RawTypes: []string{"cafe"}},
		{ID: "b", RawTypes: []string{"bar"}},
		{ID: "c", RawTypes: []string{"coffee_shop"}},
	}
	sel := models.FilterSelection{Categories: []string{"Cafe"}}
	got := m.MatchAll(venues, sel)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("MatchAll = %v, want [a c]", ids(got))
	}
}

func ids(vs []models.Venue) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func TestExtractFacts(t *testing.T) {
	venue := models.Venue{
		Tags:     []string{"Lighting 4", "Seating moderate", "Retro"},
		Features: []string{"Sea view"},
	}
	facts := ExtractFacts(venue)
	if facts.Lighting == nil || *facts.Lighting != 4 {
		t.Fatalf("Lighting = %v, want 4", facts.Lighting)
	}
	if facts.Seating == nil || *facts.Seating != 2 {
		t.Fatalf("Seating = %v, want 2", facts.Seating)
	}
	if len(facts.labels) != 4 {
		t.Fatalf("labels = %v, want 4 entries", facts.labels)
	}

	// Out-of-range lighting numbers are ignored.
	facts = ExtractFacts(models.Venue{Tags: []string{"Lighting 9"}})
	if facts.Lighting != nil {
		t.Fatal("lighting outside 1-5 should not parse")
	}
}
