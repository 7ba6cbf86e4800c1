package merge

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tripflow-ai/itinerary-platform/internal/model"
)

func baseItinerary() model.TripData {
	return model.TripData{
		TripMeta: model.TripMeta{
			DateRange:         "2026-04-01 to 2026-04-03",
			DayCount:          3,
			TransportStrategy: "walk + metro",
			Pace:              "relaxed",
		},
		Days: []model.TripDay{
			{Day: 1, Theme: "Old town", Stops: []model.TripStop{{Name: "Nidaros Cathedral"}}},
			{Day: 2, Theme: "Fjord", Stops: []model.TripStop{{Name: "Munkholmen"}}},
			{Day: 3, Theme: "Museums", Stops: []model.TripStop{{Name: "Rockheim"}}},
		},
		Totals: map[string]any{"cost": "about 4000 NOK"},
		Risks:  []string{"ferry cancels in high wind"},
	}
}

func TestApplyDayReplacementAndAppend(t *testing.T) {
	t.Parallel()

	base := baseItinerary()
	patch := `{"days":[
		{"day":2,"theme":"Fjord, revised","stops":[{"name":"Kristiansten Fortress"}]},
		{"day":4,"theme":"Day trip","stops":[{"name":"Røros"}]}
	]}`

	got, err := Apply(base, []byte(patch))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if len(got.Days) != 4 {
		t.Fatalf("got %d days, want 4", len(got.Days))
	}
	for i, want := range []int{1, 2, 3, 4} {
		if got.Days[i].Day != want {
			t.Errorf("days[%d].Day = %d, want %d", i, got.Days[i].Day, want)
		}
	}
	if got.Days[1].Theme != "Fjord, revised" {
		t.Errorf("day 2 theme = %q, want replacement", got.Days[1].Theme)
	}
	if len(got.Days[1].Stops) != 1 || got.Days[1].Stops[0].Name != "Kristiansten Fortress" {
		t.Errorf("day 2 stops not replaced wholesale: %+v", got.Days[1].Stops)
	}
	if got.Days[0].Theme != "Old town" {
		t.Errorf("untouched day 1 changed: %q", got.Days[0].Theme)
	}

	// The base must be untouched.
	if base.Days[1].Theme != "Fjord" {
		t.Errorf("base mutated: day 2 theme = %q", base.Days[1].Theme)
	}
}

func TestApplyEmptyPatchIsIdentity(t *testing.T) {
	t.Parallel()

	base := baseItinerary()
	got, err := Apply(base, []byte(`{}`))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !reflect.DeepEqual(got, base) {
		t.Errorf("empty patch changed itinerary:\ngot  %+v\nwant %+v", got, base)
	}
}

func TestApplyMetaShallowMerge(t *testing.T) {
	t.Parallel()

	base := baseItinerary()
	got, err := Apply(base, []byte(`{"tripMeta":{"pace":"packed"}}`))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.TripMeta.Pace != "packed" {
		t.Errorf("pace = %q, want %q", got.TripMeta.Pace, "packed")
	}
	if got.TripMeta.TransportStrategy != "walk + metro" {
		t.Errorf("omitted meta field lost: transportStrategy = %q", got.TripMeta.TransportStrategy)
	}
	if got.TripMeta.DayCount != 3 {
		t.Errorf("omitted meta field lost: dayCount = %d", got.TripMeta.DayCount)
	}
}

func TestApplyRisksAndTotalsReplaced(t *testing.T) {
	t.Parallel()

	base := baseItinerary()
	got, err := Apply(base, []byte(`{"risks":["rain"],"totals":{"cost":"5000 NOK"}}`))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !reflect.DeepEqual(got.Risks, []string{"rain"}) {
		t.Errorf("risks = %v, want full replacement", got.Risks)
	}
	if got.Totals["cost"] != "5000 NOK" {
		t.Errorf("totals = %v, want full replacement", got.Totals)
	}
	if len(got.Days) != 3 {
		t.Errorf("days changed by risks/totals patch: %d", len(got.Days))
	}
}

func TestApplySkipsMalformedFields(t *testing.T) {
	t.Parallel()

	base := baseItinerary()
	// days is not an array: skipped. risks is valid: applied.
	got, err := Apply(base, []byte(`{"days":{"oops":true},"risks":["avalanche season"]}`))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(got.Days) != 3 || got.Days[0].Theme != "Old town" {
		t.Errorf("malformed days field was not skipped: %+v", got.Days)
	}
	if !reflect.DeepEqual(got.Risks, []string{"avalanche season"}) {
		t.Errorf("valid sibling field not applied: %v", got.Risks)
	}
}

func TestApplyRejectsNonObject(t *testing.T) {
	t.Parallel()

	base := baseItinerary()
	got, err := Apply(base, []byte(`not json`))
	if err == nil {
		t.Fatal("Apply accepted non-JSON input")
	}
	if !reflect.DeepEqual(got, base) {
		t.Error("failed Apply did not return base unchanged")
	}
}

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, nil},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, nil},
		{"commentary around", "Here you go:\n{\"a\":1}\nEnjoy!", `{"a":1}`, nil},
		{"no object", "no braces here", "", ErrNoJSONObject},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractJSONObject(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTripData(t *testing.T) {
	t.Parallel()

	text := "Here is the plan:\n```json\n" +
		`{"tripMeta":{"dayCount":2},"days":[{"day":2,"stops":[]},{"day":1,"stops":[{"name":"Bakklandet"}]}]}` +
		"\n```"

	data, err := ParseTripData(text)
	if err != nil {
		t.Fatalf("ParseTripData: %v", err)
	}
	if data.TripMeta.DayCount != 2 {
		t.Errorf("dayCount = %d", data.TripMeta.DayCount)
	}
	if data.Days[0].Day != 1 || data.Days[1].Day != 2 {
		t.Errorf("days not sorted: %+v", data.Days)
	}
}

func TestParseTripDataMissingFields(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		`{"days":[{"day":1,"stops":[]}]}`,
		`{"tripMeta":{"dayCount":1}}`,
		`{"tripMeta":{"dayCount":0},"days":[]}`,
	} {
		if _, err := ParseTripData(in); !errors.Is(err, ErrMissingItineraryFields) {
			t.Errorf("ParseTripData(%q) err = %v, want ErrMissingItineraryFields", in, err)
		}
	}
}
