// internal/common/validation/record.go
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"kc-restaurants/internal/models"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateRecord checks the structural invariants of a business record
// before it reaches either store backend.
func ValidateRecord(rec *models.BusinessRecord) *ValidationResult {
	errors := []ValidationError{}

	if strings.TrimSpace(rec.BusinessName) == "" {
		errors = append(errors, ValidationError{
			Field:   "business_name",
			Message: "required field missing",
			Code:    "REQUIRED_FIELD_MISSING",
		})
	}
	if strings.TrimSpace(rec.Address) == "" {
		errors = append(errors, ValidationError{
			Field:   "address",
			Message: "required field missing",
			Code:    "REQUIRED_FIELD_MISSING",
		})
	}

	// latitude and longitude travel together
	if (rec.Latitude == nil) != (rec.Longitude == nil) {
		errors = append(errors, ValidationError{
			Field:   "latitude",
			Message: "latitude and longitude must be present together",
			Code:    "COORDINATE_PAIR_VIOLATION",
		})
	}
	if rec.Latitude != nil && (*rec.Latitude < -90 || *rec.Latitude > 90) {
		errors = append(errors, ValidationError{
			Field:   "latitude",
			Message: "value must be within [-90, 90]",
			Code:    "RANGE_VIOLATION",
		})
	}
	if rec.Longitude != nil && (*rec.Longitude < -180 || *rec.Longitude > 180) {
		errors = append(errors, ValidationError{
			Field:   "longitude",
			Message: "value must be within [-180, 180]",
			Code:    "RANGE_VIOLATION",
		})
	}

	if rec.PriceLevel != nil && (*rec.PriceLevel < 0 || *rec.PriceLevel > 4) {
		errors = append(errors, ValidationError{
			Field:   "price_level",
			Message: "value must be one of 0..4",
			Code:    "INVALID_ENUM_VALUE",
		})
	}

	if rec.ReviewCount < 0 {
		errors = append(errors, ValidationError{
			Field:   "review_count",
			Message: "value must be >= 0",
			Code:    "MINIMUM_VIOLATION",
		})
	}

	if rec.Rating != nil && (*rec.Rating < 0 || *rec.Rating > 5) {
		errors = append(errors, ValidationError{
			Field:   "rating",
			Message: "value must be within [0, 5]",
			Code:    "RANGE_VIOLATION",
		})
	}

	if rec.AIPredictedRating != nil && (*rec.AIPredictedRating < 1.0 || *rec.AIPredictedRating > 5.0) {
		errors = append(errors, ValidationError{
			Field:   "ai_predicted_rating",
			Message: "value must be within [1.0, 5.0]",
			Code:    "RANGE_VIOLATION",
		})
	}

	if rec.SentimentAvg != nil && (*rec.SentimentAvg < -1 || *rec.SentimentAvg > 1) {
		errors = append(errors, ValidationError{
			Field:   "sentiment_avg",
			Message: "value must be within [-1, 1]",
			Code:    "RANGE_VIOLATION",
		})
	}

	if len(rec.SentimentDistribution) > 0 {
		errors = append(errors, validateSentimentDistribution(rec.SentimentDistribution)...)
	}

	return &ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

// validateSentimentDistribution requires percentages in [0,100] that
// approximately sum to 100.
func validateSentimentDistribution(dist map[string]float64) []ValidationError {
	errors := []ValidationError{}

	sum := 0.0
	for key, pct := range dist {
		if pct < 0 || pct > 100 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("sentiment_distribution.%s", key),
				Message: "percentage must be within [0, 100]",
				Code:    "RANGE_VIOLATION",
			})
		}
		sum += pct
	}

	if math.Abs(sum-100.0) > 1.0 {
		errors = append(errors, ValidationError{
			Field:   "sentiment_distribution",
			Message: fmt.Sprintf("percentages must sum to ~100, got %.1f", sum),
			Code:    "SUM_VIOLATION",
		})
	}

	return errors
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			return true
		}
	}
	return false
}

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	emailPattern := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailPattern.MatchString(email)
}
