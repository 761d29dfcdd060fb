package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// NationalCode is the pseudo-territory whose events are shared with every
// other territory's regional view.
const NationalCode = "NAT"

// Event types as reported by the entry system.
const (
	EventTypeCompetition = "competition"
	EventTypeWorkshop    = "workshop"
)

// DateLayout is the layout of every date field in the upstream payload.
const DateLayout = "2006-01-02"

// Venue is where an event is held. Upstream sends null when it is not yet known.
type Venue struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Contact is the person enquiries about an event should be directed to.
type Contact struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Division is one competition division offered at an event.
type Division struct {
	Name string `json:"name"`
}

// Event is one scheduled competition or workshop as returned by the
// allEventsDetailed endpoint.
type Event struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	EventType string `json:"eventType"`

	Venue *Venue `json:"venue"`

	// StartDate / EndDate are inclusive calendar dates (YYYY-MM-DD).
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`

	RegistrationsOpenDate  string `json:"registrationsOpenDate"`
	RegistrationsCloseDate string `json:"registrationsCloseDate"`
	RegistrationURL        string `json:"registrationURL"`

	DirectEnquiriesTo  Contact    `json:"directEnquiriesTo"`
	AvailableDivisions []Division `json:"availabledivisions"`

	// BleachedEventDetails is the upstream-sanitized description text.
	BleachedEventDetails string `json:"bleachedEventDetails"`

	origin string
}

// Origin returns the territory code the event was fetched from.
func (e Event) Origin() string {
	return e.origin
}

// WithOrigin returns a copy of e stamped with the given territory code.
// An event that already carries an origin is returned unchanged.
func (e Event) WithOrigin(code string) Event {
	if e.origin == "" {
		e.origin = code
	}
	return e
}

// Start parses StartDate.
func (e Event) Start() (time.Time, error) {
	return ParseDate(e.StartDate)
}

// End parses EndDate.
func (e Event) End() (time.Time, error) {
	return ParseDate(e.EndDate)
}

// Location renders the venue as "name, address", or "" when there is none.
func (e Event) Location() string {
	if e.Venue == nil {
		return ""
	}
	return e.Venue.Name + ", " + e.Venue.Address
}

// Enquiries renders the contact as "Full Name (email)".
func (e Event) Enquiries() string {
	return e.DirectEnquiriesTo.FullName + " (" + e.DirectEnquiriesTo.Email + ")"
}

// DivisionNames joins the available division names with ", ".
func (e Event) DivisionNames() string {
	names := make([]string, 0, len(e.AvailableDivisions))
	for _, d := range e.AvailableDivisions {
		names = append(names, d.Name)
	}
	return strings.Join(names, ", ")
}

// ParseDate parses an upstream calendar date into midnight UTC. Full
// RFC 3339 timestamps are accepted and truncated to their date part.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// Territory is a state, province or the national pseudo-territory.
type Territory struct {
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`

	// raw keeps the upstream object so it can be re-served unchanged.
	raw json.RawMessage
}

func (t *Territory) UnmarshalJSON(data []byte) error {
	type plain Territory
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Territory(p)
	t.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (t Territory) MarshalJSON() ([]byte, error) {
	if len(t.raw) > 0 {
		return t.raw, nil
	}
	type plain Territory
	return json.Marshal(plain(t))
}

// Snapshot is one complete fetch result covering every territory. It is
// never modified after construction.
type Snapshot struct {
	Territories []Territory
	Events      map[string][]Event
	FetchedAt   time.Time
}

// Codes lists the territory codes in upstream order.
func (s *Snapshot) Codes() []string {
	codes := make([]string, 0, len(s.Territories))
	for _, t := range s.Territories {
		codes = append(codes, t.Abbreviation)
	}
	return codes
}

// Has reports whether the snapshot holds an event list for code.
func (s *Snapshot) Has(code string) bool {
	_, ok := s.Events[code]
	return ok
}

// EventCount is the total number of cached events.
func (s *Snapshot) EventCount() int {
	n := 0
	for _, evs := range s.Events {
		n += len(evs)
	}
	return n
}
