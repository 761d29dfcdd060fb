package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rcjcal/internal/model"
)

func ev(id int64, eventType, code string) model.Event {
	return model.Event{
		ID:        id,
		Name:      "Event",
		EventType: eventType,
		StartDate: "2025-06-01",
		EndDate:   "2025-06-01",
	}.WithOrigin(code)
}

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Territories: []model.Territory{
			{Abbreviation: "VIC"}, {Abbreviation: "NSW"}, {Abbreviation: "NAT"}, {Abbreviation: "NZ"},
		},
		Events: map[string][]model.Event{
			"VIC": {
				ev(1, model.EventTypeWorkshop, "VIC"),
				ev(2, model.EventTypeCompetition, "VIC"),
			},
			"NSW": {
				ev(3, model.EventTypeCompetition, "NSW"),
				ev(4, model.EventTypeWorkshop, "NSW"),
			},
			"NAT": {
				ev(5, model.EventTypeCompetition, "NAT"),
				ev(6, model.EventTypeWorkshop, "NAT"),
			},
			"NZ": {
				ev(7, model.EventTypeCompetition, "NZ"),
				ev(8, "social", "NZ"),
			},
		},
	}
}

func ids(events []model.Event) []int64 {
	out := make([]int64, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestSelect(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name  string
		query Query
		want  []int64
	}{
		{
			name:  "all territories in upstream order",
			query: Query{},
			want:  []int64{2, 1, 3, 4, 5, 6, 7},
		},
		{
			name:  "request order is kept",
			query: Query{Regions: []string{"NSW", "VIC"}},
			want:  []int64{3, 4, 2, 1},
		},
		{
			name:  "hide workshops",
			query: Query{Regions: []string{"VIC"}, Hide: HideWorkshops},
			want:  []int64{2},
		},
		{
			name:  "hide competitions",
			query: Query{Regions: []string{"VIC"}, Hide: HideCompetitions},
			want:  []int64{1},
		},
		{
			name:  "unknown hide value hides nothing",
			query: Query{Regions: []string{"VIC"}, Hide: "everything"},
			want:  []int64{2, 1},
		},
		{
			name:  "national appended for Australian territories",
			query: Query{Regions: []string{"VIC", "NSW"}, Hide: HideWorkshops, IncludeNational: true},
			want:  []int64{2, 3, 5},
		},
		{
			name:  "national not duplicated when requested",
			query: Query{Regions: []string{"NAT", "VIC"}, IncludeNational: true},
			want:  []int64{5, 6, 2, 1},
		},
		{
			name:  "national not added for other territories",
			query: Query{Regions: []string{"NZ"}, IncludeNational: true},
			want:  []int64{7},
		},
		{
			name:  "national left out without the flag",
			query: Query{Regions: []string{"VIC"}},
			want:  []int64{2, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(snap, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSelectInvalidTerritory(t *testing.T) {
	_, err := Select(testSnapshot(), Query{Regions: []string{"VIC", "XX"}})
	assert.ErrorIs(t, err, ErrInvalidTerritory)
}

func TestSelectWithoutNationalData(t *testing.T) {
	snap := testSnapshot()
	delete(snap.Events, "NAT")

	got, err := Select(snap, Query{Regions: []string{"VIC"}, IncludeNational: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(got))
}

func TestSelectEmptyTerritory(t *testing.T) {
	snap := testSnapshot()
	snap.Events["VIC"] = []model.Event{}

	got, err := Select(snap, Query{Regions: []string{"VIC"}})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestParseRegions(t *testing.T) {
	assert.Nil(t, ParseRegions(""))
	assert.Equal(t, []string{"VIC"}, ParseRegions("vic"))
	assert.Equal(t, []string{"VIC", "NSW"}, ParseRegions("vic, Nsw"))
}
