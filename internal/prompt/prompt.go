// Package prompt builds the prompts sent to the generation backends.
// Prompt text is the only consumer of the free-text TripInput fields.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tripflow-ai/itinerary-platform/internal/model"
	"github.com/tripflow-ai/itinerary-platform/internal/stream"
)

const itinerarySchema = `{
  "tripMeta": {
    "dateRange": string,
    "dayCount": number,
    "budgetEstimate": {"transport": number, "dining": number, "tickets": number, "other": number, "total": number},
    "transportStrategy": string,
    "pace": string
  },
  "days": [
    {
      "day": number (1-based, unique),
      "date": string,
      "theme": string,
      "stops": [
        {
          "name": string (a concrete place name, never a transition like "A to B"),
          "type": one of "attraction"|"landmark"|"nature"|"history"|"dining"|"cafe"|"shopping"|"transport"|"activity"|"accommodation"|"other",
          "lat": number, "lng": number,
          "startTime": "HH:MM", "endTime": "HH:MM",
          "transport": string (how to reach this stop from the previous one),
          "costEstimate": string (e.g. "¥2000"),
          "placeLink": string, "routeLinkToNext": string,
          "notes": string,
          "alternatives": [string]
        }
      ],
      "dailyChecklist": [string]
    }
  ],
  "totals": object,
  "risks": [string]
}`

// GenerateSystem is the system prompt for full itinerary generation.
func GenerateSystem() string {
	return "You are an expert travel planner. Respond with a single JSON object " +
		"matching this schema, with no surrounding commentary and no Markdown code fences:\n" +
		itinerarySchema
}

// Generate renders the user prompt for full itinerary generation.
func Generate(input model.TripInput) string {
	var b strings.Builder
	b.WriteString("Plan a complete trip itinerary.\n")
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	field("Destination", input.Destination)
	field("Dates", input.DateRange)
	field("Travelers", input.Travelers)
	field("Interests", input.Interests)
	field("Budget", input.Budget)
	field("Preferred transport", input.Transport)
	field("Accommodation", input.Accommodation)
	field("Pace", input.Pace)
	field("Must visit", input.MustVisit)
	field("Constraints", input.Constraints)
	if input.Language != "" {
		fmt.Fprintf(&b, "Write all text fields in %s.\n", input.Language)
	}
	return b.String()
}

// UpdateSystem is the system prompt for a chat refinement turn. The model
// answers conversationally and, only when the itinerary actually changes,
// appends the sentinel followed by a partial patch containing just the
// changed top-level fields.
func UpdateSystem(current *model.TripData) string {
	var b strings.Builder
	b.WriteString("You are refining an existing trip itinerary through conversation.\n")
	b.WriteString("First reply to the user in plain conversational text.\n")
	fmt.Fprintf(&b, "If and only if the itinerary should change, then append the exact marker %s ", stream.Sentinel)
	b.WriteString("followed by a JSON object containing only the changed top-level fields " +
		"(tripMeta, days, totals, risks). Days you include replace the whole day with the " +
		"same day number; days you omit are kept. Do not wrap the JSON in code fences.\n")
	b.WriteString("The itinerary JSON schema is:\n")
	b.WriteString(itinerarySchema)
	if current != nil {
		if cur, err := json.Marshal(current); err == nil {
			b.WriteString("\nThe current itinerary is:\n")
			b.Write(cur)
		}
	}
	return b.String()
}

// Recommendations renders the prompt for the attraction explorer. The
// exclusion list covers everything already committed or on screen so the
// same place is never suggested twice in a session.
func Recommendations(location, interests string, tab model.ExploreTab, exclude []string, language string) string {
	kind := "attractions and sights"
	if tab == model.TabFood {
		kind = "restaurants, cafes and local food experiences"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recommend 12 %s in or near %s.\n", kind, location)
	if interests != "" {
		fmt.Fprintf(&b, "Traveler interests: %s\n", interests)
	}
	if len(exclude) > 0 {
		fmt.Fprintf(&b, "Do not suggest any of these already-known places: %s\n", strings.Join(exclude, "; "))
	}
	if language != "" {
		fmt.Fprintf(&b, "Write all text in %s.\n", language)
	}
	b.WriteString(`Respond with a JSON array only, each element shaped as ` +
		`{"name": string, "description": string, "category": string, "reason": string, "openHours": string}.`)
	return b.String()
}

// Feasibility renders the prompt for checking a proposed modification
// against the current itinerary.
func Feasibility(current *model.TripData, modification string) string {
	var b strings.Builder
	b.WriteString("Assess whether the following modification fits the current itinerary " +
		"considering travel times, opening hours and pacing.\n")
	fmt.Fprintf(&b, "Modification: %s\n", modification)
	if current != nil {
		if cur, err := json.Marshal(current); err == nil {
			b.WriteString("Current itinerary:\n")
			b.Write(cur)
			b.WriteString("\n")
		}
	}
	b.WriteString(`Respond with a single JSON object only: ` +
		`{"feasible": bool, "riskLevel": "low"|"moderate"|"high", "issues": [string], "suggestions": [string]}.`)
	return b.String()
}
