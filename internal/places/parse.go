// internal/places/parse.go
package places

import (
	"strings"
)

// cuisineByType maps API place types to cuisine labels. Checked before name
// keywords because types are more reliable.
var cuisineByType = map[string]string{
	"chinese_restaurant":        "Chinese",
	"mexican_restaurant":        "Mexican",
	"italian_restaurant":        "Italian",
	"japanese_restaurant":       "Japanese",
	"thai_restaurant":           "Thai",
	"indian_restaurant":         "Indian",
	"korean_restaurant":         "Korean",
	"vietnamese_restaurant":     "Vietnamese",
	"greek_restaurant":          "Greek",
	"french_restaurant":         "French",
	"mediterranean_restaurant":  "Mediterranean",
	"middle_eastern_restaurant": "Middle Eastern",
	"american_restaurant":       "American",
	"barbecue_restaurant":       "BBQ",
	"seafood_restaurant":        "Seafood",
	"steak_house":               "Steakhouse",
	"pizza_restaurant":          "Pizza",
	"sushi_restaurant":          "Japanese",
	"bakery":                    "Bakery",
	"cafe":                      "Cafe",
	"coffee_shop":               "Cafe",
}

// cuisineByKeyword is the fallback: name substrings checked in order.
var cuisineByKeyword = []struct {
	keyword string
	cuisine string
}{
	{"pizza", "Pizza"},
	{"sushi", "Japanese"},
	{"bbq", "BBQ"},
	{"barbecue", "BBQ"},
	{"taco", "Mexican"},
	{"burrito", "Mexican"},
	{"taqueria", "Mexican"},
	{"pho", "Vietnamese"},
	{"noodle", "Asian"},
	{"ramen", "Japanese"},
	{"thai", "Thai"},
	{"curry", "Indian"},
	{"burger", "American"},
	{"steak", "Steakhouse"},
	{"seafood", "Seafood"},
	{"deli", "Deli"},
	{"bakery", "Bakery"},
	{"cafe", "Cafe"},
	{"coffee", "Cafe"},
}

// CuisineFromPlace derives a cuisine label from place types first, then name
// keywords. A generic restaurant with no better signal reads as American.
func CuisineFromPlace(name string, types []string) string {
	for _, t := range types {
		if cuisine, ok := cuisineByType[t]; ok {
			return cuisine
		}
	}

	lowerName := strings.ToLower(name)
	for _, kw := range cuisineByKeyword {
		if strings.Contains(lowerName, kw.keyword) {
			return kw.cuisine
		}
	}

	for _, t := range types {
		if t == "restaurant" || t == "food" || t == "meal_takeaway" {
			return "American"
		}
	}
	return ""
}

// ParseWeekdayText turns API weekday lines like
// "Monday: 11:00 AM - 9:00 PM" into a weekday-to-hours mapping.
func ParseWeekdayText(lines []string) map[string]string {
	if len(lines) == 0 {
		return nil
	}

	hours := make(map[string]string, len(lines))
	for _, line := range lines {
		day, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		hours[strings.TrimSpace(day)] = strings.TrimSpace(rest)
	}

	if len(hours) == 0 {
		return nil
	}
	return hours
}

// NormalizePriceLevel maps an external price tier to the 0..4 integer
// domain. Dollar-sign strings count symbols; out-of-domain values read as
// unknown.
func NormalizePriceLevel(raw interface{}) *int {
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		return priceLevelInt(int(v))
	case int:
		return priceLevelInt(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		if strings.Count(trimmed, "$") == len(trimmed) {
			return priceLevelInt(len(trimmed))
		}
		return nil
	default:
		return nil
	}
}

func priceLevelInt(level int) *int {
	if level < 0 || level > 4 {
		return nil
	}
	return &level
}

// childFriendlyTypes and childFriendlyKeywords drive the good_for_children
// inference; fast food and family venues lean child-friendly.
var childFriendlyTypes = map[string]bool{
	"family_restaurant": true,
	"fast_food":         true,
	"meal_takeaway":     true,
	"ice_cream_shop":    true,
}

var childFriendlyKeywords = []string{"family", "kids", "ice cream", "pizza", "burger"}

// InferGoodForChildren guesses the child-friendly flag from types and name.
// No signal at all stays unknown rather than false.
func InferGoodForChildren(name string, types []string) *bool {
	for _, t := range types {
		if childFriendlyTypes[t] {
			yes := true
			return &yes
		}
		if t == "bar" || t == "night_club" {
			no := false
			return &no
		}
	}

	lowerName := strings.ToLower(name)
	for _, kw := range childFriendlyKeywords {
		if strings.Contains(lowerName, kw) {
			yes := true
			return &yes
		}
	}

	return nil
}
