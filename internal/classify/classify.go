// Package classify infers a stop category when the generation backend
// omitted the type tag. The keyword heuristic is a fallback, not the
// primary path, and sits behind a capability interface so a
// model-assigned tag can replace it without touching callers.
package classify

import (
	"strings"

	"github.com/tripflow-ai/itinerary-platform/internal/model"
)

// Classifier assigns a category to a stop.
type Classifier interface {
	Classify(stop model.TripStop) model.StopCategory
}

// KeywordClassifier matches keywords across several languages against
// the stop name and notes.
type KeywordClassifier struct{}

// NewKeywordClassifier creates the default fallback classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// keyword tables are checked in order; the first category with a hit
// wins. More specific categories come before broader ones.
var keywordTable = []struct {
	category model.StopCategory
	keywords []string
}{
	{model.CategoryCafe, []string{
		"cafe", "café", "coffee", "カフェ", "喫茶", "咖啡", "tea house", "茶屋", "boulangerie", "bakery",
	}},
	{model.CategoryDining, []string{
		"restaurant", "dinner", "lunch", "breakfast", "food", "ramen", "sushi", "izakaya",
		"レストラン", "食堂", "居酒屋", "餐厅", "美食", "market hall", "bistro", "trattoria", "tapas",
	}},
	{model.CategoryAccommodation, []string{
		"hotel", "hostel", "ryokan", "check-in", "check in", "ホテル", "旅館", "民宿", "酒店", "airbnb", "resort",
	}},
	{model.CategoryTransport, []string{
		"station", "airport", "ferry", "terminal", "駅", "空港", "车站", "机场", "bus stop", "metro", "train",
	}},
	{model.CategoryShopping, []string{
		"shop", "market", "mall", "store", "boutique", "商店", "市场", "市場", "商店街", "outlet", "bazaar",
	}},
	{model.CategoryNature, []string{
		"park", "garden", "mountain", "beach", "lake", "forest", "公園", "庭園", "山", "海岸", "公园", "湖",
		"trail", "falls", "waterfall", "national park",
	}},
	{model.CategoryHistory, []string{
		"museum", "temple", "shrine", "castle", "cathedral", "ruins", "monument", "palace",
		"博物館", "寺", "神社", "城", "博物馆", "庙", "basilica", "abbey", "heritage",
	}},
	{model.CategoryLandmark, []string{
		"tower", "bridge", "square", "plaza", "landmark", "タワー", "塔", "大桥", "观景", "observation", "skyline",
	}},
	{model.CategoryActivity, []string{
		"tour", "cruise", "hike", "onsen", "spa", "workshop", "class", "体験", "温泉", "表演", "show", "kayak",
	}},
}

// Classify returns the stop's own tag when present, otherwise the first
// keyword match over name and notes, otherwise CategoryOther.
func (c *KeywordClassifier) Classify(stop model.TripStop) model.StopCategory {
	if stop.Type != "" {
		return stop.Type
	}
	haystack := strings.ToLower(stop.Name + " " + stop.Notes)
	for _, entry := range keywordTable {
		for _, kw := range entry.keywords {
			if strings.Contains(haystack, kw) {
				return entry.category
			}
		}
	}
	return model.CategoryOther
}
