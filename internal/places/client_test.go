// internal/places/client_test.go
package places

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kc-restaurants/internal/common/config"
	"kc-restaurants/internal/common/database"
	"kc-restaurants/internal/common/errors"
	"kc-restaurants/internal/common/logger"
	"kc-restaurants/internal/common/retry"
)

// ==========================
// Test Helper Functions
// ==========================

// lookupServer fakes the place-lookup API with canned JSON per endpoint.
type lookupServer struct {
	srv *httptest.Server

	textSearchBody string
	detailsBody    string

	textSearchHits atomic.Int32
	detailsHits    atomic.Int32
	lastQuery      atomic.Value
}

func newLookupServer(t *testing.T) *lookupServer {
	t.Helper()
	ls := &lookupServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/textsearch/json", func(w http.ResponseWriter, r *http.Request) {
		ls.textSearchHits.Add(1)
		ls.lastQuery.Store(r.URL.Query().Get("query"))
		fmt.Fprint(w, ls.textSearchBody)
	})
	mux.HandleFunc("/details/json", func(w http.ResponseWriter, r *http.Request) {
		ls.detailsHits.Add(1)
		fmt.Fprint(w, ls.detailsBody)
	})

	ls.srv = httptest.NewServer(mux)
	t.Cleanup(ls.srv.Close)
	return ls
}

func newTestClient(t *testing.T, baseURL string, cache *Cache, quota *QuotaTracker) *Client {
	t.Helper()
	log := logger.NewTestLogger(t)
	retryer := retry.New(config.RetryConfig{MaxRetries: 0, BaseDelayMs: 1, MaxDelayMs: 10}, log)

	return NewClient(config.PlacesConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 2000,
	}, retryer, cache, quota, log)
}

const okTextSearch = `{"status":"OK","results":[{"place_id":"place-abc"}]}`

const okDetails = `{
  "status": "OK",
  "result": {
    "name": "Som Tum House",
    "geometry": {"location": {"lat": 39.0997, "lng": -94.5786}},
    "rating": 4.4,
    "user_ratings_total": 120,
    "price_level": 2,
    "types": ["thai_restaurant", "restaurant"],
    "opening_hours": {"weekday_text": ["Monday: 11:00 AM - 9:00 PM"]},
    "takeout": true,
    "delivery": false,
    "serves_beer": false,
    "serves_wine": true
  }
}`

// ==========================
// Enrichment Tests
// ==========================

func TestEnrich_HappyPath(t *testing.T) {
	ls := newLookupServer(t)
	ls.textSearchBody = okTextSearch
	ls.detailsBody = okDetails

	quota := NewQuotaTracker(200.0)
	client := newTestClient(t, ls.srv.URL, nil, quota)

	data, err := client.Enrich(context.Background(), "Som Tum House LLC", "", "1200 Main St")
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, "place-abc", data.PlaceID)
	assert.Equal(t, "Som Tum House", data.Name)
	assert.Equal(t, 39.0997, data.Latitude)
	assert.Equal(t, -94.5786, data.Longitude)
	require.NotNil(t, data.Rating)
	assert.Equal(t, 4.4, *data.Rating)
	assert.Equal(t, 120, data.ReviewCount)
	require.NotNil(t, data.PriceLevel)
	assert.Equal(t, 2, *data.PriceLevel)
	assert.Equal(t, "Thai", data.CuisineType)
	require.NotNil(t, data.TakeoutAvailable)
	assert.True(t, *data.TakeoutAvailable)
	require.NotNil(t, data.DeliveryAvailable)
	assert.False(t, *data.DeliveryAvailable)
	require.NotNil(t, data.ServesAlcohol, "wine alone implies alcohol service")
	assert.True(t, *data.ServesAlcohol)
	assert.Equal(t, map[string]string{"Monday": "11:00 AM - 9:00 PM"}, data.BusinessHours)
	assert.Contains(t, data.FieldsRetrieved, "rating")
	assert.Contains(t, data.FieldsRetrieved, "opening_hours")

	textSearch, details := quota.Calls()
	assert.Equal(t, 1, textSearch)
	assert.Equal(t, 1, details)
}

func TestEnrich_PrefersTradeName(t *testing.T) {
	ls := newLookupServer(t)
	ls.textSearchBody = okTextSearch
	ls.detailsBody = okDetails

	client := newTestClient(t, ls.srv.URL, nil, nil)

	_, err := client.Enrich(context.Background(), "KC Holdings LLC", "Som Tum House", "1200 Main St")
	require.NoError(t, err)

	assert.Equal(t, "Som Tum House 1200 Main St", ls.lastQuery.Load())
}

func TestEnrich_NoMatchIsNilNotError(t *testing.T) {
	ls := newLookupServer(t)
	ls.textSearchBody = `{"status":"ZERO_RESULTS","results":[]}`

	client := newTestClient(t, ls.srv.URL, nil, nil)

	data, err := client.Enrich(context.Background(), "Nowhere Cafe", "", "0 Void St")
	assert.NoError(t, err)
	assert.Nil(t, data)
	assert.Zero(t, ls.detailsHits.Load(), "no details lookup without a place id")
}

func TestEnrich_DetailsNotFoundIsNil(t *testing.T) {
	ls := newLookupServer(t)
	ls.textSearchBody = okTextSearch
	ls.detailsBody = `{"status":"NOT_FOUND"}`

	client := newTestClient(t, ls.srv.URL, nil, nil)

	data, err := client.Enrich(context.Background(), "Gone Diner", "", "9 Dust Rd")
	assert.NoError(t, err)
	assert.Nil(t, data)
}

func TestEnrich_FallsBackToSearchNameWhenDetailsOmitName(t *testing.T) {
	ls := newLookupServer(t)
	ls.textSearchBody = okTextSearch
	ls.detailsBody = `{"status":"OK","result":{"geometry":{"location":{"lat":1,"lng":2}}}}`

	client := newTestClient(t, ls.srv.URL, nil, nil)

	data, err := client.Enrich(context.Background(), "Fallback Grill", "", "1 Main St")
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, "Fallback Grill", data.Name)
}

// ==========================
// API Status Tests
// ==========================

func TestEnrich_RequestDenied(t *testing.T) {
	ls := newLookupServer(t)
	ls.textSearchBody = `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid"}`

	client := newTestClient(t, ls.srv.URL, nil, nil)

	_, err := client.Enrich(context.Background(), "Som Tum House", "", "1200 Main St")
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodePlacesDenied, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestEnrich_OverQueryLimit(t *testing.T) {
	ls := newLookupServer(t)
	ls.textSearchBody = `{"status":"OVER_QUERY_LIMIT","error_message":"You have exceeded your daily request quota"}`

	client := newTestClient(t, ls.srv.URL, nil, nil)

	_, err := client.Enrich(context.Background(), "Som Tum House", "", "1200 Main St")
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodePlacesRateLimited, stdErr.Code)
	assert.Equal(t, errors.CategoryRateLimited, stdErr.Category)
}

func TestEnrich_HTTPErrorWrapsAsLookupFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := newTestClient(t, srv.URL, nil, nil)

	_, err := client.Enrich(context.Background(), "Som Tum House", "", "1200 Main St")
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodePlacesLookupFailed, stdErr.Code)
}

// ==========================
// Budget Gate Tests
// ==========================

func TestEnrich_StopsWhenOverBudget(t *testing.T) {
	ls := newLookupServer(t)
	ls.textSearchBody = okTextSearch
	ls.detailsBody = okDetails

	quota := NewQuotaTracker(0.01)
	quota.RecordTextSearch() // 0.032 estimated, past the ceiling
	client := newTestClient(t, ls.srv.URL, nil, quota)

	_, err := client.Enrich(context.Background(), "Som Tum House", "", "1200 Main St")
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodePlacesQuotaReached, stdErr.Code)
	assert.Zero(t, ls.textSearchHits.Load(), "no API call once over budget")
}

// ==========================
// Cache Integration Tests
// ==========================

func TestEnrich_CachedPlaceIDSkipsTextSearch(t *testing.T) {
	ls := newLookupServer(t)
	ls.detailsBody = okDetails

	redisClient, mock := redismock.NewClientMock()
	t.Cleanup(func() { redisClient.Close() })
	mock.ExpectGet(cacheKey("Som Tum House", "1200 Main St")).SetVal("place-abc")

	cache := NewCache(&database.RedisClient{Client: redisClient}, time.Hour, logger.NewTestLogger(t))
	client := newTestClient(t, ls.srv.URL, cache, nil)

	data, err := client.Enrich(context.Background(), "Som Tum House", "", "1200 Main St")
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Zero(t, ls.textSearchHits.Load())
	assert.Equal(t, int32(1), ls.detailsHits.Load())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrich_StoresResolvedPlaceID(t *testing.T) {
	ls := newLookupServer(t)
	ls.textSearchBody = okTextSearch
	ls.detailsBody = okDetails

	redisClient, mock := redismock.NewClientMock()
	t.Cleanup(func() { redisClient.Close() })
	mock.ExpectGet(cacheKey("Som Tum House", "1200 Main St")).RedisNil()
	mock.ExpectSet(cacheKey("Som Tum House", "1200 Main St"), "place-abc", time.Hour).SetVal("OK")

	cache := NewCache(&database.RedisClient{Client: redisClient}, time.Hour, logger.NewTestLogger(t))
	client := newTestClient(t, ls.srv.URL, cache, nil)

	_, err := client.Enrich(context.Background(), "Som Tum House", "", "1200 Main St")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Flag Combination Tests
// ==========================

func TestCombineFlags(t *testing.T) {
	yes := true
	no := false

	tests := []struct {
		name     string
		flags    []*bool
		expected *bool
	}{
		{"both unknown", []*bool{nil, nil}, nil},
		{"one true", []*bool{&yes, nil}, &yes},
		{"one false", []*bool{nil, &no}, &no},
		{"true wins over false", []*bool{&no, &yes}, &yes},
		{"both false", []*bool{&no, &no}, &no},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := combineFlags(tt.flags...)
			if tt.expected == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.expected, *got)
			}
		})
	}
}
