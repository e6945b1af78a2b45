package vision

import (
	"fmt"
	"strings"

	"vibelymap/internal/models"
)

// ConvertObservation maps a parsed Observation into the flat tag list the
// rest of the system consumes. Each present field maps to exactly one tag
// (ambiance may contribute two); absent fields contribute nothing. The
// wording must stay stable: cached entries and the filter matcher depend
// on it.
func ConvertObservation(o models.Observation) []string {
	var tags []string

	if o.LightingLevel != nil {
		if n := *o.LightingLevel; n >= 1 && n <= 5 {
			tags = append(tags, fmt.Sprintf("%s%d", models.TagLightingPrefix, n))
		}
	}

	if o.Ambiance != nil {
		if o.Ambiance.Retro {
			tags = append(tags, models.TagRetro)
		}
		if o.Ambiance.Modern {
			tags = append(tags, models.TagModern)
		}
	}

	if o.OutletLevel != nil {
		switch *o.OutletLevel {
		case 1:
			tags = append(tags, models.TagOutletsFew)
		case 2:
			tags = append(tags, models.TagOutletsModerate)
		case 3:
			tags = append(tags, models.TagOutletsAvailable)
		case 4:
			tags = append(tags, models.TagTableOutlet)
		}
	}

	if o.SeatingLevel != nil {
		switch *o.SeatingLevel {
		case 0:
			tags = append(tags, models.TagNoSeating)
		case 1:
			tags = append(tags, models.TagSeatingLimited)
		case 2:
			tags = append(tags, models.TagSeatingModerate)
		case 3:
			tags = append(tags, models.TagSeatingAvailable)
		}
	}

	// A true smoking flag without a zone emits no tag: the zone is the part
	// with user-facing meaning, and the model gave no evidence for one.
	if o.SmokingAllowed != nil && *o.SmokingAllowed && o.SmokingZone != nil {
		zone := strings.ToLower(*o.SmokingZone)
		if strings.Contains(zone, "open") {
			tags = append(tags, models.TagSmokingAllowed)
		} else if strings.Contains(zone, "closed") {
			tags = append(tags, models.TagSmokingIndoors)
		}
	}

	if o.SeaView != nil && *o.SeaView {
		tags = append(tags, models.TagSeaView)
	}

	return tags
}
