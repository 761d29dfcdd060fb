package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"rcjcal/internal/model"
)

// DefaultPrefix is used for territories without an entry in Prefixes.
const DefaultPrefix = "RCJA"

// Prefixes maps territory codes to the organizing body's short name shown
// at the start of each calendar entry.
var Prefixes = map[string]string{
	"VIC": "RCJV",
	"NSW": "RCJNSW",
	"QLD": "RCJQ",
	"SA":  "RCJSA",
	"WA":  "RCJWA",
	"NT":  "RCJNT",
	"ACT": "RCJACT",
	"TAS": "RCJTAS",
	"NAT": "RCJA",
	"NZ":  "RCJNZ",
}

const productID = "-//RoboCup Junior Australia//rcjcal//EN"

// Options controls feed-level properties of the rendered calendar.
type Options struct {
	// Name is the calendar display name.
	Name string
	// Timezone is published as X-WR-TIMEZONE. Entries are all-day and carry
	// no zone of their own.
	Timezone string
	// EventURLBase is joined with the event ID to form each entry's URL.
	// Empty disables URLs.
	EventURLBase string
	// Now stamps DTSTAMP. Zero means time.Now.
	Now time.Time
}

// Prefix returns the organizing body's short name for a territory code.
func Prefix(code string) string {
	if p, ok := Prefixes[code]; ok {
		return p
	}
	return DefaultPrefix
}

// Render builds an ICS document with one all-day entry per event.
//
// Event end dates are inclusive while DTEND of an all-day entry is
// exclusive, so every entry ends the day after the event's end date.
func Render(events []model.Event, opts Options) (string, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	cal.SetCalscale("GREGORIAN")
	if opts.Name != "" {
		cal.SetName(opts.Name)
		cal.SetXWRCalName(opts.Name)
	}
	if opts.Timezone != "" {
		cal.SetXWRTimezone(opts.Timezone)
	}
	cal.SetRefreshInterval("PT1H")
	cal.SetXPublishedTTL("PT1H")

	for _, ev := range events {
		start, end, err := AllDayRange(ev)
		if err != nil {
			return "", fmt.Errorf("event %d: %w", ev.ID, err)
		}

		url := ""
		if opts.EventURLBase != "" {
			url = opts.EventURLBase + "/" + strconv.FormatInt(ev.ID, 10)
		}

		vev := cal.AddEvent(entryUID(ev, url))
		vev.SetDtStampTime(now)
		vev.SetAllDayStartAt(start)
		vev.SetAllDayEndAt(end)
		vev.SetSummary(Summary(ev))
		vev.SetDescription(Description(ev))
		vev.SetLocation(ev.Location())
		if url != "" {
			vev.SetURL(url)
		}
	}

	return cal.Serialize(), nil
}

// AllDayRange returns the start date and the exclusive end boundary
// (end date plus one day) of ev.
func AllDayRange(ev model.Event) (time.Time, time.Time, error) {
	start, err := ev.Start()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ev.End()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end.AddDate(0, 0, 1), nil
}

// Summary renders "{prefix} {name} ({code})".
func Summary(ev model.Event) string {
	return Prefix(ev.Origin()) + " " + ev.Name + " (" + ev.Origin() + ")"
}

// TitleType title-cases an event type, "competition" -> "Competition".
func TitleType(t string) string {
	// Casers keep state; one per call keeps Render safe for concurrent use.
	return cases.Title(language.English).String(strings.ToLower(t))
}

// Description composes the multi-line entry body.
func Description(ev model.Event) string {
	var b strings.Builder
	b.WriteString(ev.Name + " (" + ev.Origin() + ")")
	b.WriteString("\n\nEvent type: " + TitleType(ev.EventType))
	b.WriteString("\n\nStart date: " + ev.StartDate)
	b.WriteString("\nEnd date: " + ev.EndDate)
	b.WriteString("\nRegistrations open: " + ev.RegistrationsOpenDate)
	b.WriteString("\nRegistrations close: " + ev.RegistrationsCloseDate)
	b.WriteString("\n\nDirect enquiries to: " + ev.Enquiries())
	b.WriteString("\nAvailable divisions: " + ev.DivisionNames())
	b.WriteString("\n\n" + ev.BleachedEventDetails)
	b.WriteString("\n\n\n" + ev.RegistrationURL)
	return b.String()
}

// entryUID is a name-based UUID of the event URL, or of origin/id when
// there is no URL. It is stable across refreshes.
func entryUID(ev model.Event, url string) string {
	name := url
	if name == "" {
		name = ev.Origin() + "/" + strconv.FormatInt(ev.ID, 10)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String() + "@rcja.app"
}
