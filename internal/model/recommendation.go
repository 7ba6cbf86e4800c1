package model

// ExploreTab identifies a recommendation category tab.
type ExploreTab string

const (
	TabAttraction ExploreTab = "attraction"
	TabFood       ExploreTab = "food"
)

// AttractionRecommendation is one suggested place from the recommendation
// provider. Name is the identity used for de-duplication.
type AttractionRecommendation struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Reason      string `json:"reason"`
	OpenHours   string `json:"openHours,omitempty"`
}

// RiskLevel grades the outcome of a feasibility check.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// FeasibilityResult is the outcome of checking a proposed modification
// against the current itinerary. Produced fresh per check, never persisted.
type FeasibilityResult struct {
	Feasible    bool      `json:"feasible"`
	RiskLevel   RiskLevel `json:"riskLevel"`
	Issues      []string  `json:"issues"`
	Suggestions []string  `json:"suggestions"`
}
