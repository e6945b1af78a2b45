package models

// Observation is the fixed-shape record parsed from a vision model
// completion. Every field is a pointer: absent means the model expressed no
// explicit visual evidence, and the tag conversion must never default or
// guess an absent field. The record is ephemeral; it is converted to flat
// tags immediately and never persisted in this shape.
type Observation struct {
	// LightingLevel is an ordinal 1 (dim) to 5 (bright).
	LightingLevel *int `json:"lighting_level,omitempty"`

	Ambiance *AmbianceObservation `json:"ambiance,omitempty"`

	// OutletLevel is an ordinal 1-4: few, moderate, available, table outlet.
	OutletLevel *int `json:"outlet_level,omitempty"`

	// SeatingLevel is an ordinal 0-3: none, limited, moderate, available.
	SeatingLevel *int `json:"seating_level,omitempty"`

	SmokingAllowed *bool `json:"smoking_allowed,omitempty"`
	// SmokingZone is free text expected to contain "open" or "closed".
	SmokingZone *string `json:"smoking_zone,omitempty"`

	SeaView *bool `json:"sea_view,omitempty"`
}

// AmbianceObservation flags are independent; both may be set.
type AmbianceObservation struct {
	Retro  bool `json:"retro"`
	Modern bool `json:"modern"`
}

// Tag strings produced by the Observation conversion. The exact wording is
// load-bearing: cached entries and the filter matcher both carry it.
const (
	TagRetro  = "Retro"
	TagModern = "Modern"

	TagOutletsFew       = "Outlets few"
	TagOutletsModerate  = "Outlets moderate"
	TagOutletsAvailable = "Outlets available"
	TagTableOutlet      = "Table outlet"

	TagNoSeating        = "No seating"
	TagSeatingLimited   = "Seating limited"
	TagSeatingModerate  = "Seating moderate"
	TagSeatingAvailable = "Seating available"

	TagSmokingAllowed = "Smoking allowed"
	TagSmokingIndoors = "Smoking allowed indoors"

	TagSeaView = "Sea view"

	// TagLightingPrefix is followed by the ordinal, e.g. "Lighting 3".
	TagLightingPrefix = "Lighting "
)
