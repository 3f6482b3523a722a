// internal/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kc-restaurants/internal/common/logger"
	"kc-restaurants/internal/models"
	"kc-restaurants/internal/store"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeCounter struct {
	counts  map[string]int
	filters []store.Filter
}

func (f *fakeCounter) Count(ctx context.Context, filter store.Filter) int {
	f.filters = append(f.filters, filter)
	name, _ := filter["business_name"].(string)
	return f.counts[name]
}

type fakeEnricher struct {
	enriched map[string]bool
	failFor  map[string]bool
	calls    []string
}

func (f *fakeEnricher) EnrichAndPersist(ctx context.Context, rec *models.BusinessRecord) (*models.BusinessRecord, bool) {
	f.calls = append(f.calls, rec.BusinessName)
	if f.failFor[rec.BusinessName] {
		return nil, false
	}
	return rec, f.enriched[rec.BusinessName]
}

func newTestProcessor(t *testing.T, counter *fakeCounter, enricher *fakeEnricher) *Processor {
	t.Helper()
	if counter.counts == nil {
		counter.counts = map[string]int{}
	}
	p := NewProcessor(counter, enricher, logger.NewTestLogger(t))
	p.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	return p
}

const feedHeader = "Business Name,DBA Name,Address,Business Type,Valid License For\n"

func feedRow(name, dba, address, businessType, year string) string {
	return strings.Join([]string{name, dba, address, businessType, year}, ",") + "\n"
}

// ==========================
// Filtering Tests
// ==========================

func TestIsFoodBusiness(t *testing.T) {
	assert.True(t, IsFoodBusiness("Full-Service Restaurants"))
	assert.True(t, IsFoodBusiness("  Retail Bakeries  "), "surrounding whitespace is tolerated")
	assert.False(t, IsFoodBusiness("Full-Service Restaurant"), "matching is exact, not fuzzy")
	assert.False(t, IsFoodBusiness("Auto Repair Shops"))
	assert.False(t, IsFoodBusiness(""))
}

func TestProcess_KeepsOnlyFoodBusinesses(t *testing.T) {
	enricher := &fakeEnricher{}
	p := newTestProcessor(t, &fakeCounter{}, enricher)

	feed := feedHeader +
		feedRow("Thai Spot", "", "1 Main St", "Full-Service Restaurants", "2026") +
		feedRow("Lube Express", "", "2 Main St", "Auto Repair Shops", "2026") +
		feedRow("Corner Bakery", "", "3 Main St", "Retail Bakeries", "2026")

	result, err := p.Process(context.Background(), strings.NewReader(feed))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Stats.TotalRecords)
	assert.Equal(t, 2, result.Stats.FoodBusinesses)
	assert.Equal(t, []string{"Thai Spot", "Corner Bakery"}, enricher.calls)
}

func TestProcess_SkipsStaleLicenseYears(t *testing.T) {
	enricher := &fakeEnricher{}
	p := newTestProcessor(t, &fakeCounter{}, enricher)

	feed := feedHeader +
		feedRow("Old Diner", "", "1 Main St", "Full-Service Restaurants", "2025") +
		feedRow("New Diner", "", "2 Main St", "Full-Service Restaurants", "2026")

	result, err := p.Process(context.Background(), strings.NewReader(feed))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.FoodBusinesses, "year filter applies after the food filter")
	assert.Equal(t, []string{"New Diner"}, enricher.calls)
}

func TestProcess_DeduplicatesAgainstStore(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int{"Known Cafe": 1}}
	enricher := &fakeEnricher{}
	p := newTestProcessor(t, counter, enricher)

	feed := feedHeader +
		feedRow("Known Cafe", "", "1 Main St", "Limited-Service Restaurants", "2026") +
		feedRow("Fresh Cafe", "", "2 Main St", "Limited-Service Restaurants", "2026")

	result, err := p.Process(context.Background(), strings.NewReader(feed))
	require.NoError(t, err)

	assert.Equal(t, []string{"Fresh Cafe"}, enricher.calls)
	assert.Equal(t, 1, result.Stats.NewBusinesses)

	require.NotEmpty(t, counter.filters)
	first := counter.filters[0]
	assert.Equal(t, "Known Cafe", first["business_name"])
	assert.Equal(t, "1 Main St", first["address"])
	assert.Equal(t, "Limited-Service Restaurants", first["business_type"])
	assert.Equal(t, false, first["deleted"])
}

// ==========================
// Row Handling Tests
// ==========================

func TestProcess_MissingRequiredColumnFailsRun(t *testing.T) {
	p := newTestProcessor(t, &fakeCounter{}, &fakeEnricher{})

	feed := "Business Name,DBA Name,Business Type,Valid License For\n"

	_, err := p.Process(context.Background(), strings.NewReader(feed))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Address")
}

func TestProcess_EmptyFeedFailsRun(t *testing.T) {
	p := newTestProcessor(t, &fakeCounter{}, &fakeEnricher{})

	_, err := p.Process(context.Background(), strings.NewReader(""))
	require.Error(t, err)
}

func TestProcess_SkipsRowsFailingSchema(t *testing.T) {
	enricher := &fakeEnricher{}
	p := newTestProcessor(t, &fakeCounter{}, enricher)

	feed := feedHeader +
		feedRow("", "", "1 Main St", "Full-Service Restaurants", "2026") +
		feedRow("Bad Year Bar", "", "2 Main St", "Full-Service Restaurants", "next year") +
		feedRow("Good Grill", "", "3 Main St", "Full-Service Restaurants", "2026")

	result, err := p.Process(context.Background(), strings.NewReader(feed))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.Skipped)
	assert.Equal(t, []string{"Good Grill"}, enricher.calls)
}

func TestProcess_TrimsWhitespaceInFields(t *testing.T) {
	enricher := &fakeEnricher{}
	p := newTestProcessor(t, &fakeCounter{}, enricher)

	feed := feedHeader + "  Thai Spot  ,  Som Tum  ,  1 Main St  ,  Full-Service Restaurants  ,  2026  \n"

	result, err := p.Process(context.Background(), strings.NewReader(feed))
	require.NoError(t, err)

	require.Len(t, result.NewBusinesses, 1)
	rec := result.NewBusinesses[0]
	assert.Equal(t, "Thai Spot", rec.BusinessName)
	assert.Equal(t, "Som Tum", rec.DBAName)
	assert.Equal(t, "1 Main St", rec.Address)
}

// ==========================
// Result Accounting Tests
// ==========================

func TestProcess_CountsEnrichmentOutcomes(t *testing.T) {
	enricher := &fakeEnricher{
		enriched: map[string]bool{"Enriched Eats": true},
	}
	p := newTestProcessor(t, &fakeCounter{}, enricher)

	feed := feedHeader +
		feedRow("Enriched Eats", "", "1 Main St", "Full-Service Restaurants", "2026") +
		feedRow("Plain Plates", "", "2 Main St", "Full-Service Restaurants", "2026")

	result, err := p.Process(context.Background(), strings.NewReader(feed))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.NewBusinesses)
	assert.Equal(t, 1, result.Stats.Enriched)
	assert.Equal(t, 1, result.Stats.EnrichmentFails)
}

func TestProcess_PersistFailureCountsAsSkip(t *testing.T) {
	enricher := &fakeEnricher{failFor: map[string]bool{"Doomed Deli": true}}
	p := newTestProcessor(t, &fakeCounter{}, enricher)

	feed := feedHeader + feedRow("Doomed Deli", "", "1 Main St", "Full-Service Restaurants", "2026")

	result, err := p.Process(context.Background(), strings.NewReader(feed))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Skipped)
	assert.Zero(t, result.Stats.NewBusinesses)
	assert.Empty(t, result.NewBusinesses)
}

func TestProcess_NewBusinessesPreserveFeedOrder(t *testing.T) {
	enricher := &fakeEnricher{}
	p := newTestProcessor(t, &fakeCounter{}, enricher)

	feed := feedHeader +
		feedRow("Alpha Cafe", "", "1 Main St", "Limited-Service Restaurants", "2026") +
		feedRow("Beta Bakery", "", "2 Main St", "Retail Bakeries", "2026") +
		feedRow("Gamma Grill", "", "3 Main St", "Full-Service Restaurants", "2026")

	result, err := p.Process(context.Background(), strings.NewReader(feed))
	require.NoError(t, err)

	names := make([]string, len(result.NewBusinesses))
	for i, rec := range result.NewBusinesses {
		names[i] = rec.BusinessName
	}
	assert.Equal(t, []string{"Alpha Cafe", "Beta Bakery", "Gamma Grill"}, names)
}

func TestProcess_StampsRunMetadata(t *testing.T) {
	p := newTestProcessor(t, &fakeCounter{}, &fakeEnricher{})

	result, err := p.Process(context.Background(), strings.NewReader(feedHeader))
	require.NoError(t, err)

	assert.NotEmpty(t, result.Stats.RunID)
	assert.Equal(t, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC), result.Stats.StartedAt)
}

// ==========================
// Schema Tests
// ==========================

func TestValidateFeedRow(t *testing.T) {
	valid := map[string]interface{}{
		"business_name":     "Thai Spot",
		"dba_name":          "",
		"address":           "1 Main St",
		"business_type":     "Full-Service Restaurants",
		"valid_license_for": "2026",
	}
	assert.NoError(t, validateFeedRow(valid))

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"empty business name", func(m map[string]interface{}) { m["business_name"] = "" }},
		{"missing address", func(m map[string]interface{}) { delete(m, "address") }},
		{"non numeric year", func(m map[string]interface{}) { m["valid_license_for"] = "20A6" }},
		{"short year", func(m map[string]interface{}) { m["valid_license_for"] = "26" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := make(map[string]interface{}, len(valid))
			for k, v := range valid {
				row[k] = v
			}
			tt.mutate(row)
			assert.Error(t, validateFeedRow(row))
		})
	}
}
