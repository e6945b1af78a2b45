package models

// FilterSelection is the user's chosen search-narrowing criteria. Created
// fresh per search, never persisted. Categories and Criteria are
// set-membership; Ranges are minimum thresholds over ordinal tag values.
type FilterSelection struct {
	Categories []string            `json:"categories,omitempty"`
	Criteria   map[string][]string `json:"criteria,omitempty"`
	Ranges     FilterRanges        `json:"ranges"`
}

// FilterRanges holds the two threshold criteria. A nil field imposes no
// constraint; a set field requires the venue's ordinal to be >= the value,
// with venues carrying no corresponding tag passing by default.
type FilterRanges struct {
	Lighting *int `json:"lighting,omitempty"`
	Seating  *int `json:"seating,omitempty"`
}

// IsEmpty reports whether no filters are selected at all (open state:
// every venue passes).
func (f FilterSelection) IsEmpty() bool {
	if len(f.Categories) > 0 {
		return false
	}
	for _, opts := range f.Criteria {
		if len(opts) > 0 {
			return false
		}
	}
	return f.Ranges.Lighting == nil && f.Ranges.Seating == nil
}
