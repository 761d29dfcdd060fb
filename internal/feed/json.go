package feed

import (
	"fmt"

	"rcjcal/internal/ics"
	"rcjcal/internal/model"
)

// isoLayout matches JavaScript's Date.prototype.toISOString, which existing
// consumers of the listing parse.
const isoLayout = "2006-01-02T15:04:05.000Z"

// Record is the flat JSON shape of one event.
type Record struct {
	ID                     int64  `json:"id"`
	Title                  string `json:"title"`
	RegistrationsOpenDate  string `json:"registrationsOpenDate"`
	RegistrationsCloseDate string `json:"registrationsCloseDate"`
	StartDate              string `json:"startDate"`
	EndDate                string `json:"endDate"`
	Start                  string `json:"start"`
	End                    string `json:"end"`
	Enquiries              string `json:"enquiries"`
	AvailableDivisions     string `json:"availableDivisions"`
	Venue                  string `json:"venue"`
	State                  string `json:"state"`
	EventType              string `json:"eventType"`
	RegistrationURL        string `json:"registrationURL"`
	BleachedEventDetails   string `json:"bleachedEventDetails"`
	AllDay                 bool   `json:"allDay"`
}

// Project converts events into records, preserving order. Start and End are
// the same all-day range the calendar feed publishes; StartDate and EndDate
// pass through untouched.
func Project(events []model.Event) ([]Record, error) {
	records := make([]Record, 0, len(events))
	for _, ev := range events {
		start, end, err := ics.AllDayRange(ev)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.ID, err)
		}
		records = append(records, Record{
			ID:                     ev.ID,
			Title:                  ev.Name + " (" + ev.Origin() + ")",
			RegistrationsOpenDate:  ev.RegistrationsOpenDate,
			RegistrationsCloseDate: ev.RegistrationsCloseDate,
			StartDate:              ev.StartDate,
			EndDate:                ev.EndDate,
			Start:                  start.UTC().Format(isoLayout),
			End:                    end.UTC().Format(isoLayout),
			Enquiries:              ev.Enquiries(),
			AvailableDivisions:     ev.DivisionNames(),
			Venue:                  ev.Location(),
			State:                  ev.Origin(),
			EventType:              ev.EventType,
			RegistrationURL:        ev.RegistrationURL,
			BleachedEventDetails:   ev.BleachedEventDetails,
			AllDay:                 true,
		})
	}
	return records, nil
}
