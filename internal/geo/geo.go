// internal/geo/geo.go

// Package geo narrows the record store to geographically plausible
// candidates before expensive scoring. Both the bounding-box filter and the
// per-candidate distance use the same flat-Earth approximation, so no
// candidate inside the box is ever reported farther away than the box's own
// radius. The approximation holds under ~100 miles.
package geo

import (
	"context"
	"math"

	"kc-restaurants/internal/models"
	"kc-restaurants/internal/store"
)

const milesPerDegree = 69.0

// Distance returns the flat-Earth distance in miles between two coordinates.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	latMiles := (lat2 - lat1) * milesPerDegree
	midLat := (lat1 + lat2) / 2
	lonMiles := (lon2 - lon1) * milesPerDegree * math.Cos(midLat*math.Pi/180)
	return math.Sqrt(latMiles*latMiles + lonMiles*lonMiles)
}

// Box is a latitude/longitude window around a center point.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// BoundingBox computes the window covering radiusMiles around the center.
func BoundingBox(lat, lon, radiusMiles float64) Box {
	latDelta := radiusMiles / milesPerDegree
	lonDelta := radiusMiles / (milesPerDegree * math.Cos(lat*math.Pi/180))
	return Box{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
}

// Finder is the slice of the record store the index needs.
type Finder interface {
	Find(ctx context.Context, filter store.Filter, limit int) []*models.BusinessRecord
}

// Index answers candidate queries against the record store.
type Index struct {
	finder Finder
}

func NewIndex(finder Finder) *Index {
	return &Index{finder: finder}
}

// CandidatesNear returns already-rated records whose coordinates fall inside
// the bounding box for the given radius. Exact distance refinement is the
// caller's concern.
func (idx *Index) CandidatesNear(ctx context.Context, lat, lon, radiusMiles float64) []*models.BusinessRecord {
	box := BoundingBox(lat, lon, radiusMiles)

	filter := store.Filter{
		"latitude":  map[string]interface{}{"$gte": box.MinLat, "$lte": box.MaxLat},
		"longitude": map[string]interface{}{"$gte": box.MinLon, "$lte": box.MaxLon},
		"rating":    map[string]interface{}{"$exists": true, "$ne": nil},
		"deleted":   false,
	}

	return idx.finder.Find(ctx, filter, 0)
}
