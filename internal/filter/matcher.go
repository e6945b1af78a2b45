// Package filter narrows venue lists against user-selected criteria.
// Matching is a pure, synchronous, side-effect-free predicate: no I/O, no
// concurrency, no hidden state.
package filter

import (
	"strings"

	"vibelymap/internal/filter/specs"
	"vibelymap/internal/models"
)

// Matcher evaluates filter selections against venues.
type Matcher struct{}

func NewMatcher() *Matcher { return &Matcher{} }

// Matches reports whether the venue passes every selected criterion.
// With nothing selected, every venue passes. Missing structured data never
// excludes: a venue with no lighting tag passes any lighting threshold.
func (m *Matcher) Matches(venue models.Venue, sel models.FilterSelection) bool {
	if sel.IsEmpty() {
		return true
	}

	facts := ExtractFacts(venue)

	all := []specs.Specification[models.Venue]{
		rangeSpec(facts.Lighting, sel.Ranges.Lighting),
		rangeSpec(facts.Seating, sel.Ranges.Seating),
	}
	if len(sel.Categories) > 0 {
		all = append(all, categorySpec(sel.Categories))
	}
	for _, options := range sel.Criteria {
		if len(options) == 0 {
			continue // a criterion with zero selections imposes no constraint
		}
		all = append(all, criterionSpec(options, facts))
	}

	return specs.All(all...).IsSatisfiedBy(venue)
}

// MatchAll filters a venue slice, preserving order.
func (m *Matcher) MatchAll(venues []models.Venue, sel models.FilterSelection) []models.Venue {
	out := make([]models.Venue, 0, len(venues))
	for _, v := range venues {
		if m.Matches(v, sel) {
			out = append(out, v)
		}
	}
	return out
}

// rangeSpec implements the minimum-threshold rules: no threshold selected
// or no structured value on the venue means pass; otherwise the comparison
// is inclusive (>=).
func rangeSpec(value *int, threshold *int) specs.Specification[models.Venue] {
	return specs.New(func(models.Venue) bool {
		if threshold == nil || value == nil {
			return true
		}
		return *value >= *threshold
	})
}

// categorySpec passes when any selected category's keyword set matches the
// venue's category label, raw types, tags, or name.
func categorySpec(selected []string) specs.Specification[models.Venue] {
	return specs.New(func(v models.Venue) bool {
		haystack := make([]string, 0, len(v.RawTypes)+len(v.Tags)+2)
		haystack = append(haystack, strings.ToLower(v.Category), strings.ToLower(v.Name))
		for _, t := range v.RawTypes {
			haystack = append(haystack, strings.ToLower(t))
		}
		for _, t := range v.Tags {
			haystack = append(haystack, strings.ToLower(t))
		}

		for _, option := range selected {
			for _, kw := range keywordsFor(option) {
				for _, h := range haystack {
					if h == "" || kw == "" {
						continue
					}
					if h == kw || strings.Contains(h, kw) || strings.Contains(kw, h) {
						return true
					}
				}
			}
		}
		return false
	})
}

// criterionSpec passes when at least one selected option matches the
// venue's combined label set by exact match, substring match in either
// direction, or a same-group cross-match.
func criterionSpec(options []string, facts TagFacts) specs.Specification[models.Venue] {
	return specs.New(func(models.Venue) bool {
		for _, option := range options {
			opt := strings.ToLower(strings.TrimSpace(option))
			if opt == "" {
				continue
			}
			for _, label := range facts.labels {
				if label == opt || strings.Contains(label, opt) || strings.Contains(opt, label) {
					return true
				}
			}
			for _, member := range groupOf(opt) {
				for _, label := range facts.labels {
					if label == member {
						return true
					}
				}
			}
		}
		return false
	})
}
