package model

import (
	"reflect"
	"testing"
)

func TestParseCostAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"¥2,500", 2500},
		{"$30 per person", 30},
		{"1 200 kr", 1200},
		{"about 150-200 CZK", 150},
		{"Free", 0},
		{"", 0},
		{"varies", 0},
	}

	for _, tt := range tests {
		if got := ParseCostAmount(tt.in); got != tt.want {
			t.Errorf("ParseCostAmount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStopNames(t *testing.T) {
	t.Parallel()

	data := TripData{
		Days: []TripDay{
			{Day: 1, Stops: []TripStop{{Name: "Charles Bridge"}, {Name: "Prague Castle"}}},
			{Day: 2, Stops: []TripStop{{Name: "Vyšehrad"}}},
		},
	}
	want := []string{"Charles Bridge", "Prague Castle", "Vyšehrad"}
	if got := data.StopNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("StopNames() = %v, want %v", got, want)
	}

	var empty TripData
	if got := empty.StopNames(); got != nil {
		t.Errorf("StopNames() on empty data = %v, want nil", got)
	}
}
