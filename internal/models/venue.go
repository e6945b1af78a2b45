package models

import (
	"time"
)

// Venue is a place returned by the place-search provider, enriched with
// AI-inferred ambiance tags. ID is the provider-assigned place id and the
// only stable join key across caching, filtering and display; name
// collisions are expected and irrelevant.
type Venue struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Address   *string  `json:"address,omitempty"`
	Phone     *string  `json:"phone,omitempty"`
	Website   *string  `json:"website,omitempty"`
	OpenHours *string  `json:"open_hours,omitempty"`
	PhotoURLs []string `json:"photo_urls,omitempty"`

	// Tags and Features carry the same kind of short human-readable strings;
	// Features is kept as a parallel list for compatibility with the search
	// provider payloads, Tags holds AI-inferred entries after analysis.
	Tags     []string `json:"tags,omitempty"`
	Features []string `json:"features,omitempty"`

	// RawTypes are the untranslated place types from the search provider
	// (e.g. "coffee_shop", "bar"). Used by category matching.
	RawTypes []string `json:"raw_types,omitempty"`

	Rating     *float64 `json:"rating,omitempty"`
	PriceLevel *int     `json:"price_level,omitempty"`

	AnalyzedAt *time.Time `json:"analyzed_at,omitempty"`
}

// MergeTags appends tags not already present on the venue. Order of
// existing tags is preserved; new tags keep their incoming order.
func (v *Venue) MergeTags(tags []string) {
	seen := make(map[string]struct{}, len(v.Tags))
	for _, t := range v.Tags {
		seen[t] = struct{}{}
	}
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		v.Tags = append(v.Tags, t)
	}
}

// AllLabels returns the combined tag+feature set used for filter matching.
func (v *Venue) AllLabels() []string {
	out := make([]string, 0, len(v.Tags)+len(v.Features))
	out = append(out, v.Tags...)
	out = append(out, v.Features...)
	return out
}
