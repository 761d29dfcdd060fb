package region

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"rcjcal/internal/config"
	"rcjcal/internal/model"
)

// ErrUnavailable means the snapshot holds no data for the territory yet.
var ErrUnavailable = errors.New("events are not yet available, please try again shortly")

// Entry is one event as shown on a regional landing page.
type Entry struct {
	Date            string `json:"date"`
	Name            string `json:"name"`
	Desc            string `json:"desc"`
	Highlight       bool   `json:"highlight"`
	RegistrationURL string `json:"registrationURL"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`

	start time.Time
}

// Bucket is one region's title and its upcoming events.
type Bucket struct {
	Title  string  `json:"title"`
	Events []Entry `json:"events"`
}

// View maps region keys to buckets, keeping the configured region order.
type View struct {
	keys    []string
	buckets map[string]*Bucket
}

// Keys returns region keys in configured order.
func (v *View) Keys() []string {
	return slices.Clone(v.keys)
}

// Bucket returns the bucket for key.
func (v *View) Bucket(key string) (*Bucket, bool) {
	b, ok := v.buckets[key]
	return b, ok
}

// MarshalJSON encodes the view as an object whose keys follow region order.
func (v *View) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range v.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		b, err := json.Marshal(v.buckets[key])
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Build derives the regional view of cfg.Code from snap.
//
// Candidates are the territory's own events followed by the national ones.
// Events starting before today are dropped, the rest are classified and
// each bucket is sorted by start date. today is compared by calendar date
// only.
func Build(snap *model.Snapshot, cfg config.TerritoryRegions, today time.Time) (*View, error) {
	if snap == nil || !snap.Has(cfg.Code) {
		return nil, ErrUnavailable
	}

	view := &View{
		keys:    cfg.RegionOrder(),
		buckets: make(map[string]*Bucket, len(cfg.Regions)),
	}
	for _, r := range cfg.Regions {
		view.buckets[r.Key] = &Bucket{Title: r.Title, Events: []Entry{}}
	}

	candidates := slices.Clone(snap.Events[cfg.Code])
	if cfg.Code != model.NationalCode {
		candidates = append(candidates, snap.Events[model.NationalCode]...)
	}

	floor := civilDate(today)
	for _, ev := range candidates {
		start, err := ev.Start()
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.ID, err)
		}
		if start.Before(floor) {
			continue
		}

		key, ok := Classify(ev, cfg)
		if !ok {
			continue
		}
		bucket, ok := view.buckets[key]
		if !ok {
			continue
		}
		bucket.Events = append(bucket.Events, newEntry(ev, start))
	}

	for _, b := range view.buckets {
		slices.SortStableFunc(b.Events, func(x, y Entry) int {
			return x.start.Compare(y.start)
		})
	}
	return view, nil
}

func newEntry(ev model.Event, start time.Time) Entry {
	desc := "TBC"
	if ev.Venue != nil {
		desc = ev.Location()
	}
	return Entry{
		Date:            ShortDate(start),
		Name:            ev.Name,
		Desc:            desc,
		Highlight:       mentionsStateOrNational(strings.ToLower(ev.Name)),
		RegistrationURL: ev.RegistrationURL,
		StartDate:       ev.StartDate,
		EndDate:         ev.EndDate,
		start:           start,
	}
}

// civilDate is midnight UTC of t's calendar date in t's own location, the
// same representation model.ParseDate produces.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Australian English abbreviated month names.
var auMonths = [...]string{
	"Jan", "Feb", "Mar", "Apr", "May", "June",
	"July", "Aug", "Sept", "Oct", "Nov", "Dec",
}

// ShortDate formats t the way en-AU renders a numeric day and short month,
// e.g. "1 June" or "14 Sept".
func ShortDate(t time.Time) string {
	return strconv.Itoa(t.Day()) + " " + auMonths[t.Month()-1]
}
