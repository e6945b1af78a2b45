package filter

import (
	"regexp"
	"strconv"
	"strings"

	"vibelymap/internal/models"
)

// TagFacts is the structured view of a venue's tag set used for range
// filtering. Parsing display strings back into numbers happens exactly
// once, here; the predicates below work off ordinals, never raw text.
type TagFacts struct {
	Lighting *int // 1-5, nil when no lighting tag present
	Seating  *int // 0-3, nil when no seating tag present

	// labels is every tag and feature lowercased, for set matching.
	labels []string
}

var numberRe = regexp.MustCompile(`\d+`)

// ExtractFacts parses a venue's combined tag and feature set.
func ExtractFacts(v models.Venue) TagFacts {
	all := v.AllLabels()
	facts := TagFacts{labels: make([]string, 0, len(all))}

	for _, raw := range all {
		label := strings.ToLower(strings.TrimSpace(raw))
		if label == "" {
			continue
		}
		facts.labels = append(facts.labels, label)

		if facts.Lighting == nil && strings.Contains(label, "lighting") {
			if n, ok := embeddedNumber(label); ok && n >= 1 && n <= 5 {
				facts.Lighting = &n
			}
		}
		if facts.Seating == nil && strings.Contains(label, "seating") {
			if n, ok := seatingLevel(label); ok {
				facts.Seating = &n
			}
		}
	}
	return facts
}

func embeddedNumber(label string) (int, bool) {
	m := numberRe.FindString(label)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// seatingLevel recovers the seating ordinal from a tag, preferring an
// embedded number and falling back to the textual scale.
func seatingLevel(label string) (int, bool) {
	if n, ok := embeddedNumber(label); ok && n >= 0 && n <= 3 {
		return n, true
	}
	switch {
	case strings.Contains(label, "no seating"), strings.Contains(label, "none"):
		return 0, true
	case strings.Contains(label, "few"), strings.Contains(label, "limited"):
		return 1, true
	case strings.Contains(label, "moderate"):
		return 2, true
	case strings.Contains(label, "most"), strings.Contains(label, "available"), strings.Contains(label, "plenty"):
		return 3, true
	}
	return 0, false
}
