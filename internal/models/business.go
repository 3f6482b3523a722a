// internal/models/business.go
package models

import (
	"strings"
	"time"
)

// BusinessRecord is one row per physical food-business license/location.
// (business_name, address, business_type) is the dedup key among non-deleted
// records. Optional enrichment fields are pointers so "unknown" survives the
// round trip through both backends.
type BusinessRecord struct {
	// identity
	BusinessName string `json:"business_name"`
	DBAName      string `json:"dba_name,omitempty"`
	Address      string `json:"address"`

	// license
	BusinessType    string    `json:"business_type"`
	ValidLicenseFor string    `json:"valid_license_for,omitempty"`
	InsertDate      time.Time `json:"insert_date"`
	Deleted         bool      `json:"deleted"`

	// enrichment
	PlaceID     *string  `json:"google_place_id,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount int      `json:"review_count,omitempty"`
	PriceLevel  *int     `json:"price_level,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	CuisineType string   `json:"cuisine_type,omitempty"`

	// amenity flags, tri-state: true/false/unknown(nil)
	OutdoorSeating       *bool `json:"outdoor_seating,omitempty"`
	TakeoutAvailable     *bool `json:"takeout_available,omitempty"`
	DeliveryAvailable    *bool `json:"delivery_available,omitempty"`
	ReservationsAccepted *bool `json:"reservations_accepted,omitempty"`
	WheelchairAccessible *bool `json:"wheelchair_accessible,omitempty"`
	GoodForChildren      *bool `json:"good_for_children,omitempty"`
	ServesAlcohol        *bool `json:"serves_alcohol,omitempty"`
	ParkingAvailable     *bool `json:"parking_available,omitempty"`

	BusinessHours map[string]string `json:"business_hours,omitempty"`

	// review analysis
	SentimentAvg          *float64           `json:"sentiment_avg,omitempty"`
	SentimentDistribution map[string]float64 `json:"sentiment_distribution,omitempty"`
	ReviewKeywords        []string           `json:"review_keywords,omitempty"`
	SentimentSummary      string             `json:"sentiment_summary,omitempty"`

	// prediction
	AIPredictedRating       *float64 `json:"ai_predicted_rating,omitempty"`
	AIPredictedGrade        string   `json:"ai_predicted_grade,omitempty"`
	AIPredictionConfidence  string   `json:"ai_prediction_confidence,omitempty"`
	AIConfidencePercentage  *int     `json:"ai_confidence_percentage,omitempty"`
	AIConfidenceLevel       string   `json:"ai_confidence_level,omitempty"`
	AISimilarCount          int      `json:"ai_similar_restaurants_count,omitempty"`
	AIPredictionExplanation string   `json:"ai_prediction_explanation,omitempty"`

	// metadata
	EnrichedDate       *time.Time `json:"enriched_date,omitempty"`
	LastUpdated        *time.Time `json:"last_updated,omitempty"`
	APIFieldsRetrieved []string   `json:"api_fields_retrieved,omitempty"`
}

// SearchName returns the name used for external lookups. The trade name is
// preferred over the legal entity name when both are present.
func (r *BusinessRecord) SearchName() string {
	if strings.TrimSpace(r.DBAName) != "" {
		return r.DBAName
	}
	return r.BusinessName
}

// AmenityFlags returns the eight tri-state amenity flags in a fixed order
// for pairwise comparison.
func (r *BusinessRecord) AmenityFlags() []*bool {
	return []*bool{
		r.OutdoorSeating,
		r.TakeoutAvailable,
		r.DeliveryAvailable,
		r.ReservationsAccepted,
		r.WheelchairAccessible,
		r.GoodForChildren,
		r.ServesAlcohol,
		r.ParkingAvailable,
	}
}

// HasCoordinates reports whether both latitude and longitude are set.
func (r *BusinessRecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// PlaceData is what the external place lookup returns for one business.
type PlaceData struct {
	PlaceID     string   `json:"place_id"`
	Name        string   `json:"name,omitempty"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount int      `json:"review_count,omitempty"`
	PriceLevel  *int     `json:"price_level,omitempty"`
	CuisineType string   `json:"cuisine_type,omitempty"`

	OutdoorSeating       *bool `json:"outdoor_seating,omitempty"`
	TakeoutAvailable     *bool `json:"takeout_available,omitempty"`
	DeliveryAvailable    *bool `json:"delivery_available,omitempty"`
	ReservationsAccepted *bool `json:"reservations_accepted,omitempty"`
	WheelchairAccessible *bool `json:"wheelchair_accessible,omitempty"`
	GoodForChildren      *bool `json:"good_for_children,omitempty"`
	ServesAlcohol        *bool `json:"serves_alcohol,omitempty"`
	ParkingAvailable     *bool `json:"parking_available,omitempty"`

	BusinessHours map[string]string `json:"business_hours,omitempty"`

	SentimentAvg          *float64           `json:"sentiment_avg,omitempty"`
	SentimentDistribution map[string]float64 `json:"sentiment_distribution,omitempty"`
	ReviewKeywords        []string           `json:"review_keywords,omitempty"`
	SentimentSummary      string             `json:"sentiment_summary,omitempty"`

	FieldsRetrieved []string `json:"fields_retrieved,omitempty"`
}

// AmenityFlags returns the eight tri-state amenity flags in the same fixed
// order as BusinessRecord.AmenityFlags.
func (p *PlaceData) AmenityFlags() []*bool {
	return []*bool{
		p.OutdoorSeating,
		p.TakeoutAvailable,
		p.DeliveryAvailable,
		p.ReservationsAccepted,
		p.WheelchairAccessible,
		p.GoodForChildren,
		p.ServesAlcohol,
		p.ParkingAvailable,
	}
}

// RunStats carries one monitoring run's counters into logs and the digest.
type RunStats struct {
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	TotalRecords    int       `json:"total_records"`
	FoodBusinesses  int       `json:"food_businesses"`
	NewBusinesses   int       `json:"new_businesses"`
	Enriched        int       `json:"enriched"`
	EnrichmentFails int       `json:"enrichment_fails"`
	Skipped         int       `json:"skipped"`
}
