// internal/places/client.go

// Package places resolves a business name and address to place details
// (coordinates, cuisine, rating, amenities, hours) through a paid lookup
// API. Lookups are best-effort: "no match" is a nil result, not an error.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"kc-restaurants/internal/common/config"
	"kc-restaurants/internal/common/errors"
	commonhttp "kc-restaurants/internal/common/http"
	"kc-restaurants/internal/common/logger"
	"kc-restaurants/internal/common/retry"
	"kc-restaurants/internal/models"
)

type Client struct {
	http    *commonhttp.Client
	baseURL string
	apiKey  string
	limiter *retry.RateLimiter
	retryer *retry.Retryer
	cache   *Cache
	quota   *QuotaTracker
	log     logger.Logger
}

func NewClient(cfg config.PlacesConfig, retryer *retry.Retryer, cache *Cache, quota *QuotaTracker, log logger.Logger) *Client {
	return &Client{
		http:    commonhttp.NewClient(config.GetDuration(cfg.Timeout)),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		limiter: retry.NewRateLimiter(config.GetDuration(cfg.MinCallIntervalMs)),
		retryer: retryer,
		cache:   cache,
		quota:   quota,
		log:     log,
	}
}

// Enrich resolves a business to place details. The trade name is preferred
// for the search. Returns (nil, nil) when the API has no match.
func (c *Client) Enrich(ctx context.Context, businessName, dbaName, address string) (*models.PlaceData, error) {
	name := businessName
	if dbaName != "" {
		name = dbaName
	}

	if c.quota != nil && c.quota.OverBudget() {
		return nil, errors.NewPlacesQuotaReachedError(
			fmt.Sprintf("estimated spend $%.2f", c.quota.EstimatedCostUSD()))
	}

	placeID, cached := c.cache.GetPlaceID(ctx, name, address)
	if !cached {
		var err error
		placeID, err = c.textSearch(ctx, name, address)
		if err != nil {
			return nil, err
		}
		if placeID == "" {
			return nil, nil
		}
		c.cache.SetPlaceID(ctx, name, address, placeID)
	}

	return c.details(ctx, placeID, name)
}

type textSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID string `json:"place_id"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

func (c *Client) textSearch(ctx context.Context, name, address string) (string, error) {
	params := url.Values{}
	params.Set("query", name+" "+address)
	params.Set("key", c.apiKey)

	var parsed textSearchResponse
	err := c.retryer.Do(ctx, "places.text_search", func() error {
		if c.quota != nil {
			c.quota.RecordTextSearch()
		}
		return c.getJSON(ctx, "/textsearch/json?"+params.Encode(), &parsed)
	})
	if err != nil {
		return "", errors.NewPlacesLookupFailedError(err)
	}

	switch parsed.Status {
	case "OK":
		if len(parsed.Results) == 0 {
			return "", nil
		}
		return parsed.Results[0].PlaceID, nil
	case "ZERO_RESULTS":
		return "", nil
	case "OVER_QUERY_LIMIT":
		return "", errors.NewPlacesRateLimitedError(parsed.ErrorMessage)
	case "REQUEST_DENIED":
		return "", errors.NewPlacesDeniedError(parsed.ErrorMessage)
	default:
		return "", errors.NewPlacesLookupFailedError(
			fmt.Errorf("text search status %s: %s", parsed.Status, parsed.ErrorMessage))
	}
}

type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name     string `json:"name"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		Rating           *float64    `json:"rating"`
		UserRatingsTotal int         `json:"user_ratings_total"`
		PriceLevel       interface{} `json:"price_level"`
		Types            []string    `json:"types"`
		OpeningHours     struct {
			WeekdayText []string `json:"weekday_text"`
		} `json:"opening_hours"`
		Takeout              *bool `json:"takeout"`
		Delivery             *bool `json:"delivery"`
		Reservable           *bool `json:"reservable"`
		WheelchairAccessible *bool `json:"wheelchair_accessible_entrance"`
		ServesBeer           *bool `json:"serves_beer"`
		ServesWine           *bool `json:"serves_wine"`
	} `json:"result"`
	ErrorMessage string `json:"error_message"`
}

var detailsFields = []string{
	"name", "geometry", "rating", "user_ratings_total", "price_level",
	"types", "opening_hours", "takeout", "delivery", "reservable",
	"wheelchair_accessible_entrance", "serves_beer", "serves_wine",
}

func (c *Client) details(ctx context.Context, placeID, searchName string) (*models.PlaceData, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("key", c.apiKey)
	fields := ""
	for i, f := range detailsFields {
		if i > 0 {
			fields += ","
		}
		fields += f
	}
	params.Set("fields", fields)

	var parsed detailsResponse
	err := c.retryer.Do(ctx, "places.details", func() error {
		if c.quota != nil {
			c.quota.RecordDetails()
		}
		return c.getJSON(ctx, "/details/json?"+params.Encode(), &parsed)
	})
	if err != nil {
		return nil, errors.NewPlacesLookupFailedError(err)
	}

	switch parsed.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, nil
	case "OVER_QUERY_LIMIT":
		return nil, errors.NewPlacesRateLimitedError(parsed.ErrorMessage)
	case "REQUEST_DENIED":
		return nil, errors.NewPlacesDeniedError(parsed.ErrorMessage)
	default:
		return nil, errors.NewPlacesLookupFailedError(
			fmt.Errorf("details status %s: %s", parsed.Status, parsed.ErrorMessage))
	}

	result := parsed.Result
	name := result.Name
	if name == "" {
		name = searchName
	}

	servesAlcohol := combineFlags(result.ServesBeer, result.ServesWine)

	data := &models.PlaceData{
		PlaceID:              placeID,
		Name:                 name,
		Latitude:             result.Geometry.Location.Lat,
		Longitude:            result.Geometry.Location.Lng,
		Rating:               result.Rating,
		ReviewCount:          result.UserRatingsTotal,
		PriceLevel:           NormalizePriceLevel(result.PriceLevel),
		CuisineType:          CuisineFromPlace(name, result.Types),
		TakeoutAvailable:     result.Takeout,
		DeliveryAvailable:    result.Delivery,
		ReservationsAccepted: result.Reservable,
		WheelchairAccessible: result.WheelchairAccessible,
		ServesAlcohol:        servesAlcohol,
		GoodForChildren:      InferGoodForChildren(name, result.Types),
		BusinessHours:        ParseWeekdayText(result.OpeningHours.WeekdayText),
	}
	// outdoor seating and parking are not observable through this API
	data.FieldsRetrieved = retrievedFields(data)

	c.log.Debug("place details resolved", map[string]interface{}{
		"place_id": placeID,
		"cuisine":  data.CuisineType,
	})

	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup API returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode lookup response: %w", err)
	}

	c.log.Debug("lookup call complete", map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func combineFlags(flags ...*bool) *bool {
	known := false
	any := false
	for _, f := range flags {
		if f == nil {
			continue
		}
		known = true
		if *f {
			any = true
		}
	}
	if !known {
		return nil
	}
	return &any
}

func retrievedFields(data *models.PlaceData) []string {
	fields := []string{"place_id", "geometry"}
	if data.Rating != nil {
		fields = append(fields, "rating")
	}
	if data.ReviewCount > 0 {
		fields = append(fields, "user_ratings_total")
	}
	if data.PriceLevel != nil {
		fields = append(fields, "price_level")
	}
	if data.CuisineType != "" {
		fields = append(fields, "cuisine_type")
	}
	if len(data.BusinessHours) > 0 {
		fields = append(fields, "opening_hours")
	}
	return fields
}
