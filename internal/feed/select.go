package feed

import (
	"errors"
	"slices"
	"strings"

	"rcjcal/internal/model"
)

// ErrInvalidTerritory is returned when a query names a territory the
// snapshot does not know.
var ErrInvalidTerritory = errors.New("invalid state code(s) provided")

// Values accepted by the hide directive.
const (
	HideCompetitions = "competitions"
	HideWorkshops    = "workshops"
)

// australianCodes are the territories whose calendar subscribers also get
// national events.
var australianCodes = []string{"VIC", "NSW", "QLD", "SA", "WA", "NT", "ACT", "TAS", model.NationalCode}

// Query selects events from a snapshot.
type Query struct {
	// Regions lists territory codes; empty means every territory.
	Regions []string
	// Hide is HideCompetitions or HideWorkshops. Anything else hides nothing.
	Hide string
	// IncludeNational adds NAT when an Australian territory is requested
	// without it.
	IncludeNational bool
}

// ParseRegions splits a comma-separated regions parameter into upper-case
// codes. An empty parameter yields nil.
func ParseRegions(param string) []string {
	if param == "" {
		return nil
	}
	parts := strings.Split(param, ",")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		codes = append(codes, strings.ToUpper(strings.TrimSpace(p)))
	}
	return codes
}

// Select returns the events of the requested territories in request order,
// each territory contributing its competitions and then its workshops.
func Select(snap *model.Snapshot, q Query) ([]model.Event, error) {
	codes := slices.Clone(q.Regions)
	if len(codes) == 0 {
		codes = snap.Codes()
	}
	for _, code := range codes {
		if !snap.Has(code) {
			return nil, ErrInvalidTerritory
		}
	}

	if q.IncludeNational && !slices.Contains(codes, model.NationalCode) && snap.Has(model.NationalCode) {
		if slices.ContainsFunc(codes, isAustralian) {
			codes = append(codes, model.NationalCode)
		}
	}

	events := make([]model.Event, 0)
	for _, code := range codes {
		evs := snap.Events[code]
		if q.Hide != HideCompetitions {
			events = appendType(events, evs, model.EventTypeCompetition)
		}
		if q.Hide != HideWorkshops {
			events = appendType(events, evs, model.EventTypeWorkshop)
		}
	}
	return events, nil
}

func appendType(dst, src []model.Event, eventType string) []model.Event {
	for _, ev := range src {
		if ev.EventType == eventType {
			dst = append(dst, ev)
		}
	}
	return dst
}

func isAustralian(code string) bool {
	return slices.Contains(australianCodes, code)
}
