package region

import (
	"strings"

	"rcjcal/internal/config"
	"rcjcal/internal/model"
)

// searchText is the lower-cased text keywords are matched against: the
// event name followed by the venue name and address.
func searchText(ev model.Event) string {
	venue := ""
	if ev.Venue != nil {
		venue = ev.Venue.Name + " " + ev.Venue.Address
	}
	return strings.ToLower(ev.Name + " " + venue)
}

// Classify assigns ev to a region of cfg.
//
// Regions are tried in configured order and the first one with a keyword
// contained in the search text wins. Unmatched state or national events
// fall back to the default region; anything else matches nothing.
func Classify(ev model.Event, cfg config.TerritoryRegions) (string, bool) {
	text := searchText(ev)

	for _, r := range cfg.Regions {
		for _, kw := range r.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				return r.Key, true
			}
		}
	}

	if mentionsStateOrNational(text) {
		return cfg.DefaultRegion, true
	}
	return "", false
}

func mentionsStateOrNational(lower string) bool {
	return strings.Contains(lower, "state") || strings.Contains(lower, "national")
}
