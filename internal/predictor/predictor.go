// internal/predictor/predictor.go

// Package predictor scores nearby rated restaurants by weighted similarity
// and produces a predicted rating, confidence descriptor and explanation for
// a business awaiting its first rating.
package predictor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"kc-restaurants/internal/common/config"
	"kc-restaurants/internal/common/logger"
	"kc-restaurants/internal/common/metrics"
	"kc-restaurants/internal/geo"
	"kc-restaurants/internal/models"
)

const (
	proximityWeight = 0.4
	cuisineWeight   = 0.3
	amenityWeight   = 0.2
	reviewWeight    = 0.1

	cuisineMismatchScore = 0.3
	neutralAmenityScore  = 0.5
	nearbyMiles          = 2.0

	confidenceInsufficient = "Low - insufficient nearby data"
	confidenceHigh         = "High - strong cuisine and proximity matches"
	confidenceMediumLocal  = "Medium - good local or cuisine data"
	confidenceMediumData   = "Medium - sufficient nearby data"
	confidenceLow          = "Low - limited comparison data"
)

// SimilarRestaurant is one scored candidate. Created fresh per prediction
// call, never persisted.
type SimilarRestaurant struct {
	Name            string  `json:"name"`
	DistanceMiles   float64 `json:"distance_miles"`
	CuisineMatch    bool    `json:"cuisine_match"`
	Rating          float64 `json:"rating"`
	ReviewCount     int     `json:"review_count"`
	SimilarityScore float64 `json:"similarity_score"`
	Weight          float64 `json:"weight"`
}

// Prediction is the full predictor output for one target.
type Prediction struct {
	Rating               float64
	Grade                string
	Confidence           string
	ConfidencePercentage int
	ConfidenceLevel      string
	Similar              []SimilarRestaurant
	Explanation          string
}

// CandidateSource yields already-rated records near a coordinate.
type CandidateSource interface {
	CandidatesNear(ctx context.Context, lat, lon, radiusMiles float64) []*models.BusinessRecord
}

type Predictor struct {
	source            CandidateSource
	maxCuisineMiles   float64
	maxProximityMiles float64
	minSimilar        int
	defaultRating     float64
	log               logger.Logger
}

func New(source CandidateSource, cfg config.PredictorConfig, log logger.Logger) *Predictor {
	return &Predictor{
		source:            source,
		maxCuisineMiles:   cfg.MaxCuisineMiles,
		maxProximityMiles: cfg.MaxProximityMiles,
		minSimilar:        cfg.MinSimilar,
		defaultRating:     cfg.DefaultRating,
		log:               log,
	}
}

// Predict never fails: any trouble collecting candidates degrades to the
// default-rating path. The target's own rating is never consulted.
func (p *Predictor) Predict(ctx context.Context, target *models.PlaceData) Prediction {
	start := time.Now()

	similar := p.scoreCandidates(ctx, target)

	// Reporting order is by similarity, not weight.
	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].SimilarityScore > similar[j].SimilarityScore
	})

	pred := p.assemble(target, similar)

	outcome := "predicted"
	if pred.Confidence == confidenceInsufficient {
		outcome = "default"
	}
	metrics.PredictionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	p.log.Debug("prediction complete", map[string]interface{}{
		"rating":     pred.Rating,
		"confidence": pred.Confidence,
		"candidates": len(similar),
	})

	return pred
}

func (p *Predictor) scoreCandidates(ctx context.Context, target *models.PlaceData) []SimilarRestaurant {
	candidates := p.source.CandidatesNear(ctx, target.Latitude, target.Longitude, p.maxCuisineMiles)

	similar := make([]SimilarRestaurant, 0, len(candidates))
	for _, cand := range candidates {
		if !cand.HasCoordinates() || cand.Rating == nil {
			continue
		}

		distance := geo.Distance(target.Latitude, target.Longitude, *cand.Latitude, *cand.Longitude)
		if distance > p.maxCuisineMiles {
			continue
		}

		cuisineMatch := target.CuisineType != "" && cand.CuisineType != "" &&
			strings.EqualFold(target.CuisineType, cand.CuisineType)

		// A same-cuisine match may be farther away than a same-area
		// non-match.
		effectiveRadius := p.maxProximityMiles
		if cuisineMatch {
			effectiveRadius = p.maxCuisineMiles
		}
		if distance > effectiveRadius {
			continue
		}

		proximityScore := math.Max(0, 1-distance/effectiveRadius)
		cuisineScore := cuisineMismatchScore
		if cuisineMatch {
			cuisineScore = 1.0
		}
		amenityScore := amenitySimilarity(target.AmenityFlags(), cand.AmenityFlags())
		reviewScore := math.Min(1.0, float64(cand.ReviewCount)/100.0)

		similarity := proximityWeight*proximityScore +
			cuisineWeight*cuisineScore +
			amenityWeight*amenityScore +
			reviewWeight*reviewScore

		// The inverse-distance multiplier double-counts proximity on top of
		// the proximity term inside the similarity score. Kept as-is: the
		// tuning sharply favors very close matches.
		weight := similarity * (1.0 / math.Max(0.1, distance))

		similar = append(similar, SimilarRestaurant{
			Name:            cand.SearchName(),
			DistanceMiles:   distance,
			CuisineMatch:    cuisineMatch,
			Rating:          *cand.Rating,
			ReviewCount:     cand.ReviewCount,
			SimilarityScore: similarity,
			Weight:          weight,
		})
	}

	return similar
}

// amenitySimilarity compares the tri-state amenity flags pairwise: the share
// of positions where both sides know the value and agree, over positions
// where both know the value. No comparable positions means neutral 0.5, so
// missing amenity data never penalizes a candidate.
func amenitySimilarity(target, candidate []*bool) float64 {
	comparable := 0
	matches := 0

	for i := range target {
		if target[i] == nil || candidate[i] == nil {
			continue
		}
		comparable++
		if *target[i] == *candidate[i] {
			matches++
		}
	}

	if comparable == 0 {
		return neutralAmenityScore
	}
	return float64(matches) / float64(comparable)
}

func (p *Predictor) assemble(target *models.PlaceData, similar []SimilarRestaurant) Prediction {
	explanation := p.explain(target.CuisineType, similar)

	if len(similar) < p.minSimilar {
		return withDerivedConfidence(Prediction{
			Rating:      p.defaultRating,
			Grade:       GradeForRating(p.defaultRating),
			Confidence:  confidenceInsufficient,
			Similar:     similar,
			Explanation: explanation,
		})
	}

	var weightedSum, weightTotal float64
	for _, s := range similar {
		weightedSum += s.Rating * s.Weight
		weightTotal += s.Weight
	}

	rating := p.defaultRating
	if weightTotal > 0 {
		rating = weightedSum / weightTotal
	}
	rating = math.Min(5.0, math.Max(1.0, rating))

	return withDerivedConfidence(Prediction{
		Rating:      rating,
		Grade:       GradeForRating(rating),
		Confidence:  p.classifyConfidence(similar),
		Similar:     similar,
		Explanation: explanation,
	})
}

// classifyConfidence is evaluated in priority order; first match wins.
func (p *Predictor) classifyConfidence(similar []SimilarRestaurant) string {
	cuisineMatches := 0
	proximityMatches := 0
	for _, s := range similar {
		if s.CuisineMatch {
			cuisineMatches++
		}
		if s.DistanceMiles <= p.maxProximityMiles {
			proximityMatches++
		}
	}

	switch {
	case cuisineMatches >= 3 && proximityMatches >= 2:
		return confidenceHigh
	case cuisineMatches >= 2 || proximityMatches >= 3:
		return confidenceMediumLocal
	case len(similar) >= 5:
		return confidenceMediumData
	default:
		return confidenceLow
	}
}

// withDerivedConfidence fills the digest-facing percentage and level from
// the confidence descriptor.
func withDerivedConfidence(pred Prediction) Prediction {
	level, _, found := strings.Cut(pred.Confidence, " ")
	if !found {
		level = pred.Confidence
	}
	pred.ConfidenceLevel = level

	switch level {
	case "High":
		pred.ConfidencePercentage = 85
	case "Medium":
		pred.ConfidencePercentage = 65
	default:
		pred.ConfidencePercentage = 40
	}
	return pred
}

func (p *Predictor) explain(cuisineType string, similar []SimilarRestaurant) string {
	if len(similar) == 0 {
		return "Prediction based on default ratings due to insufficient nearby restaurant data."
	}

	// The cuisine and nearby groups overlap on purpose: a cuisine match
	// inside the nearby radius counts in both, and the leftover count is
	// whatever the two groups together do not cover.
	var cuisineRatings, nearbyRatings []float64
	minDist := similar[0].DistanceMiles
	maxDist := similar[0].DistanceMiles

	for _, s := range similar {
		if s.CuisineMatch {
			cuisineRatings = append(cuisineRatings, s.Rating)
		}
		if s.DistanceMiles <= nearbyMiles {
			nearbyRatings = append(nearbyRatings, s.Rating)
		}
		if s.DistanceMiles < minDist {
			minDist = s.DistanceMiles
		}
		if s.DistanceMiles > maxDist {
			maxDist = s.DistanceMiles
		}
	}

	parts := []string{}
	if len(cuisineRatings) > 0 {
		parts = append(parts, fmt.Sprintf("%d %s restaurants averaging %.1f stars",
			len(cuisineRatings), cuisineType, mean(cuisineRatings)))
	}
	if len(nearbyRatings) > 0 {
		parts = append(parts, fmt.Sprintf("%d nearby restaurants averaging %.1f stars",
			len(nearbyRatings), mean(nearbyRatings)))
	}
	if others := len(similar) - len(cuisineRatings) - len(nearbyRatings); others > 0 {
		parts = append(parts, fmt.Sprintf("%d other area restaurants", others))
	}

	return fmt.Sprintf("Based on %s within %.1f-%.1f miles.",
		strings.Join(parts, ", "), minDist, maxDist)
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
