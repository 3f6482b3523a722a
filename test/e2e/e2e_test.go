// test/e2e/e2e_test.go

// Package e2e runs the full feed-to-digest flow against in-memory store
// backends and fake HTTP endpoints for the feed and the place-lookup API.
// No live Postgres, Elasticsearch or Redis is required.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kc-restaurants/internal/common/config"
	"kc-restaurants/internal/common/logger"
	"kc-restaurants/internal/common/retry"
	"kc-restaurants/internal/enrich"
	"kc-restaurants/internal/geo"
	"kc-restaurants/internal/models"
	"kc-restaurants/internal/pipeline"
	"kc-restaurants/internal/places"
	"kc-restaurants/internal/predictor"
	"kc-restaurants/internal/report"
	"kc-restaurants/internal/store"
)

// ==========================
// In-Memory Store Backend
// ==========================

// memBackend evaluates filters against JSON projections of records, the same
// field names both real backends use.
type memBackend struct {
	name    string
	records []*models.BusinessRecord
}

func (m *memBackend) Name() string { return m.name }

func (m *memBackend) Reachable(ctx context.Context) bool { return true }

func (m *memBackend) Insert(ctx context.Context, rec *models.BusinessRecord) error {
	for i, existing := range m.records {
		if existing.BusinessName == rec.BusinessName && existing.Address == rec.Address {
			m.records[i] = rec
			return nil
		}
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memBackend) Find(ctx context.Context, filter store.Filter, limit int) ([]*models.BusinessRecord, error) {
	conds, err := filter.Conditions()
	if err != nil {
		return nil, err
	}

	var matched []*models.BusinessRecord
	for _, rec := range m.records {
		if matches(rec, conds) {
			matched = append(matched, rec)
			if limit > 0 && len(matched) == limit {
				break
			}
		}
	}
	return matched, nil
}

func (m *memBackend) Count(ctx context.Context, filter store.Filter) (int, error) {
	records, err := m.Find(ctx, filter, 0)
	return len(records), err
}

func (m *memBackend) DeleteAll(ctx context.Context, filter store.Filter) (int, error) {
	conds, err := filter.Conditions()
	if err != nil {
		return 0, err
	}

	var kept []*models.BusinessRecord
	deleted := 0
	for _, rec := range m.records {
		if matches(rec, conds) {
			deleted++
		} else {
			kept = append(kept, rec)
		}
	}
	m.records = kept
	return deleted, nil
}

func matches(rec *models.BusinessRecord, conds []store.Condition) bool {
	raw, _ := json.Marshal(rec)
	var doc map[string]interface{}
	json.Unmarshal(raw, &doc)

	for _, cond := range conds {
		val, present := doc[cond.Field]
		if val == nil {
			present = false
		}

		switch cond.Operator {
		case "":
			if !equalJSON(val, cond.Value) {
				return false
			}
		case "$exists":
			if present != cond.Value.(bool) {
				return false
			}
		case "$ne":
			if cond.Value == nil {
				if !present {
					return false
				}
			} else if equalJSON(val, cond.Value) {
				return false
			}
		case "$gte", "$lte", "$gt", "$lt":
			have, ok1 := toFloat(val)
			want, ok2 := toFloat(cond.Value)
			if !ok1 || !ok2 {
				return false
			}
			switch cond.Operator {
			case "$gte":
				if have < want {
					return false
				}
			case "$lte":
				if have > want {
					return false
				}
			case "$gt":
				if have <= want {
					return false
				}
			case "$lt":
				if have >= want {
					return false
				}
			}
		}
	}
	return true
}

func equalJSON(have, want interface{}) bool {
	if hf, ok := toFloat(have); ok {
		if wf, ok := toFloat(want); ok {
			return hf == wf
		}
	}
	return fmt.Sprint(have) == fmt.Sprint(want)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// ==========================
// Fixture Helpers
// ==========================

const (
	targetLat = 39.0997
	targetLon = -94.5786
)

func seededRecord(name string, latOffset, lonOffset, rating float64) *models.BusinessRecord {
	lat := targetLat + latOffset
	lon := targetLon + lonOffset
	r := rating
	return &models.BusinessRecord{
		BusinessName: name,
		Address:      fmt.Sprintf("%s address", name),
		BusinessType: "Full-Service Restaurants",
		CuisineType:  "Thai",
		Latitude:     &lat,
		Longitude:    &lon,
		Rating:       &r,
	}
}

func lookupHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/textsearch/json", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("query"), "Ghost Kitchen") {
			fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`)
			return
		}
		fmt.Fprint(w, `{"status":"OK","results":[{"place_id":"place-new-thai"}]}`)
	})
	mux.HandleFunc("/details/json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
		  "status": "OK",
		  "result": {
		    "name": "New Thai Garden",
		    "geometry": {"location": {"lat": %f, "lng": %f}},
		    "rating": 4.3,
		    "user_ratings_total": 57,
		    "types": ["thai_restaurant", "restaurant"]
		  }
		}`, targetLat, targetLon)
	})
	return mux
}

type capturingSender struct {
	subject string
	body    string
}

func (c *capturingSender) SendHTMLEmail(ctx context.Context, from string, to []string, subject, htmlBody string) error {
	c.subject = subject
	c.body = htmlBody
	return nil
}

// ==========================
// End-To-End Test
// ==========================

func TestFeedToDigest(t *testing.T) {
	log := logger.NewTestLogger(t)
	retryer := retry.New(config.RetryConfig{MaxRetries: 1, BaseDelayMs: 1, MaxDelayMs: 10}, log)

	doc := &memBackend{name: "elasticsearch"}
	rel := &memBackend{name: "postgres"}
	recordStore := store.New(doc, rel, log)

	// Existing nearby Thai restaurants give the predictor something to
	// work with.
	ctx := context.Background()
	for _, rec := range []*models.BusinessRecord{
		seededRecord("Thai Orchid", 0.01, 0.0, 4.5),
		seededRecord("Bangkok Bistro", -0.01, 0.01, 4.2),
		seededRecord("Som Tum Corner", 0.02, -0.01, 4.0),
		seededRecord("Lotus Thai", -0.02, 0.02, 4.6),
	} {
		require.True(t, recordStore.Insert(ctx, rec))
	}

	lookupSrv := httptest.NewServer(lookupHandler())
	t.Cleanup(lookupSrv.Close)

	year := fmt.Sprintf("%d", time.Now().Year())
	feedCSV := "Business Name,DBA Name,Address,Business Type,Valid License For\n" +
		"New Thai Garden LLC,New Thai Garden,2101 Grand Blvd,Full-Service Restaurants," + year + "\n" +
		"Ghost Kitchen Holdings,Ghost Kitchen,99 Nowhere Ln,Full-Service Restaurants," + year + "\n" +
		"Gear Supply Co,,500 Industrial Dr,Auto Repair Shops," + year + "\n" +
		"Thai Orchid,,Thai Orchid address,Full-Service Restaurants," + year + "\n"

	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedCSV)
	}))
	t.Cleanup(feedSrv.Close)

	quota := places.NewQuotaTracker(200.0)
	lookup := places.NewClient(config.PlacesConfig{
		BaseURL: lookupSrv.URL,
		APIKey:  "test-key",
		Timeout: 2000,
	}, retryer, nil, quota, log)

	pred := predictor.New(geo.NewIndex(recordStore), config.PredictorConfig{
		MaxCuisineMiles:   7.0,
		MaxProximityMiles: 5.0,
		MinSimilar:        3,
		DefaultRating:     3.7,
	}, log)

	enricher := enrich.New(lookup, pred, recordStore, log)
	processor := pipeline.NewProcessor(recordStore, enricher, log)

	fetcher := pipeline.NewFeedFetcher(config.FeedConfig{URL: feedSrv.URL, Timeout: 2000}, retryer)
	feed, err := fetcher.Fetch(ctx)
	require.NoError(t, err)
	defer feed.Close()

	result, err := processor.Process(ctx, feed)
	require.NoError(t, err)

	// One new food business: the non-food row is filtered, the seeded one
	// deduplicates, and the ghost kitchen persists unenriched.
	assert.Equal(t, 4, result.Stats.TotalRecords)
	assert.Equal(t, 3, result.Stats.FoodBusinesses)
	assert.Equal(t, 2, result.Stats.NewBusinesses)
	assert.Equal(t, 1, result.Stats.Enriched)
	assert.Equal(t, 1, result.Stats.EnrichmentFails)
	require.Len(t, result.NewBusinesses, 2)

	enriched := result.NewBusinesses[0]
	assert.Equal(t, "New Thai Garden LLC", enriched.BusinessName)
	assert.Equal(t, "Thai", enriched.CuisineType)
	require.NotNil(t, enriched.Latitude)
	assert.Equal(t, targetLat, *enriched.Latitude)
	require.NotNil(t, enriched.AIPredictedRating)
	assert.GreaterOrEqual(t, *enriched.AIPredictedRating, 4.0)
	assert.LessOrEqual(t, *enriched.AIPredictedRating, 4.6)
	assert.NotEmpty(t, enriched.AIPredictedGrade)
	assert.NotEmpty(t, enriched.AIPredictionExplanation)

	unenriched := result.NewBusinesses[1]
	assert.Equal(t, "Ghost Kitchen Holdings", unenriched.BusinessName)
	assert.Nil(t, unenriched.EnrichedDate)

	// Both backends took the writes.
	status := recordStore.Status(ctx)
	assert.Equal(t, 6, status["elasticsearch"].RecordCount)
	assert.Equal(t, 6, status["postgres"].RecordCount)

	// Re-processing the same feed finds nothing new.
	rerun, err := processor.Process(ctx, strings.NewReader(feedCSV))
	require.NoError(t, err)
	assert.Zero(t, rerun.Stats.NewBusinesses)

	// The digest names the new business with its prediction.
	sender := &capturingSender{}
	reporter := report.New(sender, config.EmailConfig{
		Enabled:    true,
		FromEmail:  "digest@example.com",
		Recipients: []string{"ops@example.com"},
	}, log)

	require.NoError(t, reporter.SendDigest(ctx, result.Stats, result.NewBusinesses))
	assert.Contains(t, sender.subject, "2 New Food Businesses")
	assert.Contains(t, sender.body, "New Thai Garden")
	assert.Contains(t, sender.body, enriched.AIPredictedGrade)

	textSearch, details := quota.Calls()
	assert.Equal(t, 2, textSearch)
	assert.Equal(t, 1, details)
}
