// Package merge combines partial itinerary patches with a base itinerary
// and parses full generation responses. All operations are pure: the base
// is never mutated.
package merge

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/tripflow-ai/itinerary-platform/internal/model"
	"github.com/tripflow-ai/itinerary-platform/internal/stream"
)

// ErrNoJSONObject indicates the text contained no JSON object at all.
var ErrNoJSONObject = errors.New("no JSON object found in response")

// ErrMissingItineraryFields indicates a generation response parsed as JSON
// but lacked the mandatory tripMeta/days fields.
var ErrMissingItineraryFields = errors.New("itinerary JSON missing tripMeta or days")

// tripPatch defers field decoding so a malformed field can be skipped
// without rejecting the whole patch.
type tripPatch struct {
	TripMeta json.RawMessage `json:"tripMeta"`
	Days     json.RawMessage `json:"days"`
	Totals   json.RawMessage `json:"totals"`
	Risks    json.RawMessage `json:"risks"`
}

// Apply merges a raw partial patch into base and returns a new TripData.
// Per-field rules: tripMeta is shallow-merged (patch fields override, base
// fields survive omission), days are matched by day number with whole-day
// replacement and new days appended, totals and risks are replaced
// wholesale when present. A field that fails to decode is treated as
// absent. An error is returned only when raw is not a JSON object, in
// which case base is returned unchanged.
func Apply(base model.TripData, raw []byte) (model.TripData, error) {
	var p tripPatch
	if err := json.Unmarshal(raw, &p); err != nil {
		return base, err
	}

	out := base
	out.Days = append([]model.TripDay(nil), base.Days...)

	if len(p.TripMeta) > 0 {
		meta := base.TripMeta
		if err := json.Unmarshal(p.TripMeta, &meta); err == nil {
			out.TripMeta = meta
		}
	}

	if len(p.Days) > 0 {
		var patched []model.TripDay
		if err := json.Unmarshal(p.Days, &patched); err == nil {
			out.Days = mergeDays(out.Days, patched)
		}
	}

	if len(p.Totals) > 0 {
		var totals map[string]any
		if err := json.Unmarshal(p.Totals, &totals); err == nil {
			out.Totals = totals
		}
	}

	if len(p.Risks) > 0 {
		var risks []string
		if err := json.Unmarshal(p.Risks, &risks); err == nil {
			out.Risks = risks
		}
	}

	return out, nil
}

// mergeDays replaces matching day numbers wholesale, appends new days,
// and re-sorts ascending by day number.
func mergeDays(days, patched []model.TripDay) []model.TripDay {
	byNumber := make(map[int]int, len(days))
	for i, d := range days {
		byNumber[d.Day] = i
	}
	for _, pd := range patched {
		if i, ok := byNumber[pd.Day]; ok {
			days[i] = pd
		} else {
			byNumber[pd.Day] = len(days)
			days = append(days, pd)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return days
}

// ExtractJSONObject pulls the JSON object out of free text: code fences
// are stripped, then the slice from the first '{' to the last '}' is
// taken, tolerating leading and trailing commentary.
func ExtractJSONObject(text string) (string, error) {
	text = stream.StripCodeFence(text)
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", ErrNoJSONObject
	}
	return text[start : end+1], nil
}

// ParseTripData parses a full generation response into a TripData. Both
// tripMeta and days are mandatory for a full itinerary; their absence is
// a parse error. Days are sorted ascending by day number.
func ParseTripData(text string) (*model.TripData, error) {
	obj, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var probe tripPatch
	if err := json.Unmarshal([]byte(obj), &probe); err != nil {
		return nil, err
	}
	if len(probe.TripMeta) == 0 || len(probe.Days) == 0 {
		return nil, ErrMissingItineraryFields
	}

	var data model.TripData
	if err := json.Unmarshal([]byte(obj), &data); err != nil {
		return nil, err
	}
	if len(data.Days) == 0 {
		return nil, ErrMissingItineraryFields
	}
	sort.Slice(data.Days, func(i, j int) bool { return data.Days[i].Day < data.Days[j].Day })
	return &data, nil
}
