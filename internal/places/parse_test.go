// internal/places/parse_test.go
package places

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Cuisine Derivation Tests
// ==========================

func TestCuisineFromPlace(t *testing.T) {
	tests := []struct {
		name     string
		place    string
		types    []string
		expected string
	}{
		{"type wins", "Joe's Place", []string{"thai_restaurant", "restaurant"}, "Thai"},
		{"sushi type maps to japanese", "Ocean Roll", []string{"sushi_restaurant"}, "Japanese"},
		{"coffee shop is cafe", "Bean There", []string{"coffee_shop"}, "Cafe"},
		{"keyword fallback", "Tony's Pizza Palace", []string{"restaurant"}, "Pizza"},
		{"keyword is case insensitive", "KANSAS CITY BBQ CO", []string{"restaurant"}, "BBQ"},
		{"taqueria keyword", "La Taqueria Roja", []string{"restaurant"}, "Mexican"},
		{"type beats keyword", "Pizza House of Bangkok", []string{"thai_restaurant"}, "Thai"},
		{"generic restaurant defaults to american", "The Corner Spot", []string{"restaurant"}, "American"},
		{"meal takeaway defaults to american", "Quick Bites", []string{"meal_takeaway"}, "American"},
		{"no signal at all", "Widget Emporium", []string{"store"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CuisineFromPlace(tt.place, tt.types))
		})
	}
}

// ==========================
// Opening Hours Tests
// ==========================

func TestParseWeekdayText(t *testing.T) {
	lines := []string{
		"Monday: 11:00 AM - 9:00 PM",
		"Tuesday: 11:00 AM - 9:00 PM",
		"Sunday: Closed",
	}

	hours := ParseWeekdayText(lines)

	require.Len(t, hours, 3)
	assert.Equal(t, "11:00 AM - 9:00 PM", hours["Monday"])
	assert.Equal(t, "Closed", hours["Sunday"])
}

func TestParseWeekdayText_SkipsMalformedLines(t *testing.T) {
	hours := ParseWeekdayText([]string{"no separator here", "Friday: 10:00 AM - 2:00 AM"})

	require.Len(t, hours, 1)
	assert.Equal(t, "10:00 AM - 2:00 AM", hours["Friday"])
}

func TestParseWeekdayText_EmptyInput(t *testing.T) {
	assert.Nil(t, ParseWeekdayText(nil))
	assert.Nil(t, ParseWeekdayText([]string{}))
	assert.Nil(t, ParseWeekdayText([]string{"garbage"}))
}

// ==========================
// Price Level Tests
// ==========================

func TestNormalizePriceLevel(t *testing.T) {
	two := 2
	four := 4
	zero := 0

	tests := []struct {
		name     string
		raw      interface{}
		expected *int
	}{
		{"nil", nil, nil},
		{"json number", float64(2), &two},
		{"int", 4, &four},
		{"zero is valid", 0, &zero},
		{"dollar signs", "$$", &two},
		{"four dollars", "$$$$", &four},
		{"out of range int", 7, nil},
		{"negative", -1, nil},
		{"mixed string", "$2", nil},
		{"empty string", "", nil},
		{"unrelated type", []string{"$"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePriceLevel(tt.raw)
			if tt.expected == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.expected, *got)
			}
		})
	}
}

// ==========================
// Child-Friendly Inference Tests
// ==========================

func TestInferGoodForChildren(t *testing.T) {
	tests := []struct {
		name     string
		place    string
		types    []string
		expected *bool
	}{
		{"family type", "Mel's", []string{"family_restaurant"}, boolPtr(true)},
		{"fast food type", "Quick Burger", []string{"fast_food"}, boolPtr(true)},
		{"bar is not", "The Dive", []string{"bar"}, boolPtr(false)},
		{"night club is not", "Neon", []string{"night_club"}, boolPtr(false)},
		{"keyword ice cream", "Polar Ice Cream Shoppe", []string{"store"}, boolPtr(true)},
		{"keyword pizza", "Tony's Pizza", []string{"restaurant"}, boolPtr(true)},
		{"no signal stays unknown", "The Corner Spot", []string{"restaurant"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferGoodForChildren(tt.place, tt.types)
			if tt.expected == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.expected, *got)
			}
		})
	}
}

func boolPtr(v bool) *bool { return &v }
