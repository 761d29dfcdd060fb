package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rcjcal/internal/cache"
	"rcjcal/internal/config"
	"rcjcal/internal/model"
)

type stubReader struct {
	snap *model.Snapshot
}

func (r stubReader) Current() (*model.Snapshot, error) {
	if r.snap == nil {
		return nil, cache.ErrNotReady
	}
	return r.snap, nil
}

func event(id int64, name, eventType, start string) model.Event {
	return model.Event{
		ID:        id,
		Name:      name,
		EventType: eventType,
		StartDate: start,
		EndDate:   start,
	}
}

func testSnapshot() *model.Snapshot {
	snap := &model.Snapshot{
		Territories: []model.Territory{
			{Abbreviation: "QLD", Name: "Queensland"},
			{Abbreviation: "NSW", Name: "New South Wales"},
			{Abbreviation: "NAT", Name: "National"},
		},
		Events: map[string][]model.Event{},
	}
	byCode := map[string][]model.Event{
		"QLD": {
			event(1, "Brisbane Regional", model.EventTypeCompetition, "2025-08-01"),
			event(2, "Cairns Coding Workshop", model.EventTypeWorkshop, "2025-07-01"),
			event(3, "Brisbane Past", model.EventTypeCompetition, "2025-01-01"),
		},
		"NSW": {
			event(4, "Sydney Open", model.EventTypeCompetition, "2025-09-01"),
		},
		"NAT": {
			event(5, "Australian National Championships", model.EventTypeCompetition, "2025-10-03"),
		},
	}
	for code, evs := range byCode {
		for _, ev := range evs {
			snap.Events[code] = append(snap.Events[code], ev.WithOrigin(code))
		}
	}
	return snap
}

func newTestServer(t *testing.T, snap *model.Snapshot) http.Handler {
	t.Helper()
	regions, err := config.LoadRegions("")
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	s := NewServer(cfg, stubReader{snap: snap}, regions)
	s.now = func() time.Time { return time.Date(2025, time.May, 20, 8, 0, 0, 0, time.UTC) }
	return s.Handler()
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestNotReady(t *testing.T) {
	h := newTestServer(t, nil)

	for _, target := range []string{"/file", "/api/events/json", "/api/qld/regions"} {
		rec := get(h, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
		assert.Equal(t, "Events cache is not yet populated, please try again shortly.", errorMessage(t, rec), target)
	}

	rec := get(h, "/api/regions")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "States cache is not yet populated, please try again shortly.", errorMessage(t, rec))

	// Region config does not depend on the cache.
	rec = get(h, "/api/qld/config")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := get(newTestServer(t, nil), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestCalendarFile(t *testing.T) {
	h := newTestServer(t, testSnapshot())

	rec := get(h, "/file?regions=qld&hide=workshops")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="calendar.ics"`, rec.Header().Get("Content-Disposition"))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR"))
	assert.Contains(t, body, "SUMMARY:RCJQ Brisbane Regional (QLD)")
	assert.Contains(t, body, "SUMMARY:RCJA Australian National Championships (NAT)")
	assert.NotContains(t, body, "Cairns Coding Workshop (QLD)")
	assert.NotContains(t, body, "Sydney Open")
}

func TestCalendarFileInvalidRegion(t *testing.T) {
	rec := get(newTestServer(t, testSnapshot()), "/file?regions=QLD,XYZ")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid state code(s) provided.", errorMessage(t, rec))
}

func TestEventsJSON(t *testing.T) {
	h := newTestServer(t, testSnapshot())

	rec := get(h, "/api/events/json?regions=QLD")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var records []struct {
		ID    int64  `json:"id"`
		State string `json:"state"`
		Start string `json:"start"`
		End   string `json:"end"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 3, "national events are not added to the JSON listing")
	assert.Equal(t, int64(1), records[0].ID)
	assert.Equal(t, int64(3), records[1].ID)
	assert.Equal(t, int64(2), records[2].ID)
	assert.Equal(t, "2025-08-01T00:00:00.000Z", records[0].Start)
	assert.Equal(t, "2025-08-02T00:00:00.000Z", records[0].End)

	rec = get(h, "/api/events/json?hide=competitions")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].ID)
}

func TestTerritories(t *testing.T) {
	rec := get(newTestServer(t, testSnapshot()), "/api/regions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"abbreviation":"QLD","name":"Queensland"},
		{"abbreviation":"NSW","name":"New South Wales"},
		{"abbreviation":"NAT","name":"National"}
	]`, rec.Body.String())
}

func TestRegionView(t *testing.T) {
	h := newTestServer(t, testSnapshot())

	rec := get(h, "/api/qld/regions")
	require.Equal(t, http.StatusOK, rec.Code)

	var view map[string]struct {
		Title  string `json:"title"`
		Events []struct {
			Name      string `json:"name"`
			Date      string `json:"date"`
			Highlight bool   `json:"highlight"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))

	require.Contains(t, view, "seq")
	require.Len(t, view["seq"].Events, 1)
	assert.Equal(t, "Brisbane Regional", view["seq"].Events[0].Name)
	assert.Equal(t, "1 Aug", view["seq"].Events[0].Date)

	require.Len(t, view["fnq"].Events, 1)
	assert.Equal(t, "Cairns Coding Workshop", view["fnq"].Events[0].Name)

	require.Len(t, view["nationals"].Events, 1)
	assert.True(t, view["nationals"].Events[0].Highlight)

	body := rec.Body.String()
	assert.Less(t, strings.Index(body, `"seq"`), strings.Index(body, `"nationals"`))
}

func TestRegionViewErrors(t *testing.T) {
	h := newTestServer(t, testSnapshot())

	rec := get(h, "/api/xx/regions")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Regional page not available for state: XX", errorMessage(t, rec))

	rec = get(h, "/api/vic/regions")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "VIC events are not yet available, please try again shortly.", errorMessage(t, rec))
}

func TestRegionConfig(t *testing.T) {
	h := newTestServer(t, nil)

	rec := get(h, "/api/vic/config")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "keywords")
	assert.NotContains(t, rec.Body.String(), "collingwood")

	var cfg struct {
		Title        string            `json:"title"`
		Year         string            `json:"year"`
		RegionOrder  []string          `json:"regionOrder"`
		RegionTitles map[string]string `json:"regionTitles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, "2025", cfg.Year)
	assert.Equal(t, "metro", cfg.RegionOrder[0])
	assert.Equal(t, "Melbourne Metro", cfg.RegionTitles["metro"])
	assert.NotEmpty(t, cfg.Title)

	rec = get(h, "/api/nat/config")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, testSnapshot())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/file", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, testSnapshot())

	req := httptest.NewRequest(http.MethodGet, "/api/regions", nil)
	req.Header.Set("Origin", "https://rcja.app")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
