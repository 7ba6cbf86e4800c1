// Package model defines data structures for the trip planning platform.
package model

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TripStatus represents the lifecycle state of a trip.
type TripStatus string

const (
	StatusGenerating TripStatus = "generating"
	StatusComplete   TripStatus = "complete"
	StatusError      TripStatus = "error"
)

// TripInput holds the free-text travel preferences submitted by the user.
// Fields are opaque strings consumed only by prompt construction.
type TripInput struct {
	Destination   string `json:"destination"`
	DateRange     string `json:"dateRange"`
	Travelers     string `json:"travelers"`
	Interests     string `json:"interests"`
	Budget        string `json:"budget"`
	Transport     string `json:"transport"`
	Accommodation string `json:"accommodation"`
	Pace          string `json:"pace"`
	MustVisit     string `json:"mustVisit"`
	Language      string `json:"language"`
	Constraints   string `json:"constraints"`
}

// StopCategory is the closed set of categorical tags for a stop.
type StopCategory string

const (
	CategoryAttraction    StopCategory = "attraction"
	CategoryLandmark      StopCategory = "landmark"
	CategoryNature        StopCategory = "nature"
	CategoryHistory       StopCategory = "history"
	CategoryDining        StopCategory = "dining"
	CategoryCafe          StopCategory = "cafe"
	CategoryShopping      StopCategory = "shopping"
	CategoryTransport     StopCategory = "transport"
	CategoryActivity      StopCategory = "activity"
	CategoryAccommodation StopCategory = "accommodation"
	CategoryOther         StopCategory = "other"
)

// TripStop is one visit within a day. Name always refers to a concrete
// place, never a transition like "A to B" (a generation-time contract).
type TripStop struct {
	Name            string       `json:"name"`
	Type            StopCategory `json:"type,omitempty"`
	Lat             float64      `json:"lat,omitempty"`
	Lng             float64      `json:"lng,omitempty"`
	StartTime       string       `json:"startTime,omitempty"`
	EndTime         string       `json:"endTime,omitempty"`
	Transport       string       `json:"transport,omitempty"`
	CostEstimate    string       `json:"costEstimate,omitempty"`
	PlaceLink       string       `json:"placeLink,omitempty"`
	RouteLinkToNext string       `json:"routeLinkToNext,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	Alternatives    []string     `json:"alternatives,omitempty"`
}

// TripDay is one day of the itinerary. Day is the 1-based sequence number
// and the merge key; it is unique within a trip.
type TripDay struct {
	Day            int        `json:"day"`
	Date           string     `json:"date,omitempty"`
	Theme          string     `json:"theme,omitempty"`
	Stops          []TripStop `json:"stops"`
	DailyChecklist []string   `json:"dailyChecklist,omitempty"`
}

// BudgetEstimate holds numeric subtotals for the trip budget.
type BudgetEstimate struct {
	Transport int `json:"transport"`
	Dining    int `json:"dining"`
	Tickets   int `json:"tickets"`
	Other     int `json:"other"`
	Total     int `json:"total"`
}

// TripMeta is the aggregate itinerary info.
type TripMeta struct {
	DateRange         string         `json:"dateRange,omitempty"`
	DayCount          int            `json:"dayCount,omitempty"`
	BudgetEstimate    BudgetEstimate `json:"budgetEstimate,omitempty"`
	TransportStrategy string         `json:"transportStrategy,omitempty"`
	Pace              string         `json:"pace,omitempty"`
}

// TripData is the full structured itinerary. Days are kept sorted
// ascending by Day with no duplicates.
type TripData struct {
	TripMeta TripMeta       `json:"tripMeta"`
	Days     []TripDay      `json:"days"`
	Totals   map[string]any `json:"totals,omitempty"`
	Risks    []string       `json:"risks,omitempty"`
}

// StopNames returns the names of every stop already committed to the
// itinerary, in day order.
func (d *TripData) StopNames() []string {
	var names []string
	for _, day := range d.Days {
		for _, stop := range day.Stops {
			names = append(names, stop.Name)
		}
	}
	return names
}

// Trip is the persisted wrapper around one itinerary session.
type Trip struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	CreatedAt        time.Time  `json:"createdAt"`
	Status           TripStatus `json:"status"`
	Input            TripInput  `json:"input"`
	Data             *TripData  `json:"data,omitempty"`
	Error            string     `json:"error,omitempty"`
	GenerationTimeMs int64      `json:"generationTimeMs,omitempty"`
}

var digitRun = regexp.MustCompile(`[0-9]+`)

// ParseCostAmount extracts a numeric amount from a free-text currency
// string such as "¥2,500" or "$30 per person". Thousands separators are
// removed first; the first run of digits is the amount. Unparseable
// input, including "Free", yields 0.
func ParseCostAmount(s string) int {
	cleaned := strings.NewReplacer(",", "", " ", "").Replace(s)
	digits := digitRun.FindString(cleaned)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
