package classify

import (
	"testing"

	"github.com/tripflow-ai/itinerary-platform/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	c := NewKeywordClassifier()

	tests := []struct {
		name string
		stop model.TripStop
		want model.StopCategory
	}{
		{"explicit tag wins", model.TripStop{Name: "Fushimi Inari", Type: model.CategoryHistory}, model.CategoryHistory},
		{"cafe before dining", model.TripStop{Name: "Breakfast at a canal-side cafe"}, model.CategoryCafe},
		{"dining", model.TripStop{Name: "Ichiran Ramen"}, model.CategoryDining},
		{"accommodation", model.TripStop{Name: "Check-in at Hotel Granvia"}, model.CategoryAccommodation},
		{"transport japanese", model.TripStop{Name: "京都駅"}, model.CategoryTransport},
		{"nature", model.TripStop{Name: "Maruyama Park"}, model.CategoryNature},
		{"history japanese", model.TripStop{Name: "清水寺"}, model.CategoryHistory},
		{"landmark", model.TripStop{Name: "Tokyo Tower"}, model.CategoryLandmark},
		{"activity", model.TripStop{Name: "Evening onsen visit"}, model.CategoryActivity},
		{"notes consulted", model.TripStop{Name: "Nishiki", Notes: "a covered food market"}, model.CategoryDining},
		{"no match", model.TripStop{Name: "Somewhere nice"}, model.CategoryOther},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.Classify(tt.stop); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.stop.Name, got, tt.want)
			}
		})
	}
}
