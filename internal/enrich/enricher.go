// internal/enrich/enricher.go

// Package enrich sequences place lookup, rating prediction and the merged
// write, exactly once per business per run. Enrichment is best-effort: a
// failed or empty lookup still persists the original record, and the
// predictor only ever runs on post-lookup data because it needs the
// coordinates and cuisine the lookup supplies.
package enrich

import (
	"context"
	"strings"
	"time"

	"kc-restaurants/internal/common/errors"
	"kc-restaurants/internal/common/logger"
	"kc-restaurants/internal/common/metrics"
	"kc-restaurants/internal/models"
	"kc-restaurants/internal/predictor"
)

// PlaceLookup is the external place-data collaborator.
type PlaceLookup interface {
	Enrich(ctx context.Context, businessName, dbaName, address string) (*models.PlaceData, error)
}

// RatingPredictor produces a prediction from place data.
type RatingPredictor interface {
	Predict(ctx context.Context, target *models.PlaceData) predictor.Prediction
}

// Inserter is the slice of the record store the enricher writes through.
type Inserter interface {
	Insert(ctx context.Context, rec *models.BusinessRecord) bool
}

type Enricher struct {
	lookup PlaceLookup
	pred   RatingPredictor
	store  Inserter
	log    logger.Logger
}

func New(lookup PlaceLookup, pred RatingPredictor, store Inserter, log logger.Logger) *Enricher {
	return &Enricher{lookup: lookup, pred: pred, store: store, log: log}
}

// EnrichAndPersist runs lookup, prediction and the merged write for one
// business. The returned record is what was persisted; nil means the record
// was skipped entirely (missing name or address). The bool reports whether
// place data made it onto the record.
func (e *Enricher) EnrichAndPersist(ctx context.Context, rec *models.BusinessRecord) (*models.BusinessRecord, bool) {
	name := rec.SearchName()
	if strings.TrimSpace(name) == "" || strings.TrimSpace(rec.Address) == "" {
		e.log.Warn("skipping record with missing name or address", map[string]interface{}{
			"business_name": rec.BusinessName,
			"address":       rec.Address,
		})
		return nil, false
	}

	place, err := e.lookup.Enrich(ctx, rec.BusinessName, rec.DBAName, rec.Address)
	if err != nil {
		code := "unknown"
		if stdErr, ok := err.(*errors.StandardError); ok {
			code = string(stdErr.Code)
		}
		metrics.EnrichmentFailures.WithLabelValues(code).Inc()
		e.log.Warn("place lookup failed, persisting unenriched", map[string]interface{}{
			"business_name": rec.BusinessName,
			"error":         err.Error(),
		})
	}

	if place == nil {
		now := time.Now().UTC()
		rec.LastUpdated = &now
		e.store.Insert(ctx, rec)
		return rec, false
	}

	mergePlace(rec, place)

	pred := e.pred.Predict(ctx, place)
	applyPrediction(rec, pred)

	now := time.Now().UTC()
	rec.EnrichedDate = &now
	rec.LastUpdated = &now

	e.store.Insert(ctx, rec)
	return rec, true
}

func mergePlace(rec *models.BusinessRecord, place *models.PlaceData) {
	if place.PlaceID != "" {
		id := place.PlaceID
		rec.PlaceID = &id
	}
	lat, lon := place.Latitude, place.Longitude
	rec.Latitude = &lat
	rec.Longitude = &lon

	rec.Rating = place.Rating
	rec.ReviewCount = place.ReviewCount
	rec.PriceLevel = place.PriceLevel
	if place.CuisineType != "" {
		rec.CuisineType = place.CuisineType
	}

	rec.OutdoorSeating = place.OutdoorSeating
	rec.TakeoutAvailable = place.TakeoutAvailable
	rec.DeliveryAvailable = place.DeliveryAvailable
	rec.ReservationsAccepted = place.ReservationsAccepted
	rec.WheelchairAccessible = place.WheelchairAccessible
	rec.GoodForChildren = place.GoodForChildren
	rec.ServesAlcohol = place.ServesAlcohol
	rec.ParkingAvailable = place.ParkingAvailable

	if len(place.BusinessHours) > 0 {
		rec.BusinessHours = place.BusinessHours
	}

	rec.SentimentAvg = place.SentimentAvg
	if len(place.SentimentDistribution) > 0 {
		rec.SentimentDistribution = place.SentimentDistribution
	}
	if len(place.ReviewKeywords) > 0 {
		rec.ReviewKeywords = place.ReviewKeywords
	}
	if place.SentimentSummary != "" {
		rec.SentimentSummary = place.SentimentSummary
	}

	if len(place.FieldsRetrieved) > 0 {
		rec.APIFieldsRetrieved = place.FieldsRetrieved
	}
}

func applyPrediction(rec *models.BusinessRecord, pred predictor.Prediction) {
	rating := pred.Rating
	rec.AIPredictedRating = &rating
	rec.AIPredictedGrade = pred.Grade
	rec.AIPredictionConfidence = pred.Confidence
	pct := pred.ConfidencePercentage
	rec.AIConfidencePercentage = &pct
	rec.AIConfidenceLevel = pred.ConfidenceLevel
	rec.AISimilarCount = len(pred.Similar)
	rec.AIPredictionExplanation = pred.Explanation
}
