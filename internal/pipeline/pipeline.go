// internal/pipeline/pipeline.go

// Package pipeline turns the raw license feed into persisted, enriched
// business records: parse the CSV, keep current-year food businesses,
// deduplicate against the record store, and hand new businesses to the
// enricher.
package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"kc-restaurants/internal/common/errors"
	"kc-restaurants/internal/common/logger"
	"kc-restaurants/internal/common/metrics"
	"kc-restaurants/internal/models"
	"kc-restaurants/internal/store"

	"github.com/google/uuid"
)

// foodBusinessTypes is the fixed allow-list of license categories that count
// as food businesses. Matching is exact.
var foodBusinessTypes = map[string]bool{
	"Supermarkets and Other Grocery Retailers (except Convenience Retailers)": true,
	"Retail Bakeries":                      true,
	"All Other Specialty Food Retailers":   true,
	"Food (Health) Supplement Retailers":   true,
	"Mobile Food Services":                 true,
	"Full-Service Restaurants":             true,
	"Limited-Service Restaurants":          true,
	"Snack and Nonalcoholic Beverage Bars": true,
	"Confectionery and Nut Retailers":      true,
	"Cafeterias Grill Buffets and Buffets": true,
}

// IsFoodBusiness reports whether a license category is on the allow-list.
func IsFoodBusiness(businessType string) bool {
	return foodBusinessTypes[strings.TrimSpace(businessType)]
}

var requiredColumns = []string{
	"Business Name", "DBA Name", "Address", "Business Type", "Valid License For",
}

// RecordEnricher persists one record, enriched when possible.
type RecordEnricher interface {
	EnrichAndPersist(ctx context.Context, rec *models.BusinessRecord) (*models.BusinessRecord, bool)
}

// RecordCounter answers dedup queries against the record store.
type RecordCounter interface {
	Count(ctx context.Context, filter store.Filter) int
}

type Processor struct {
	store    RecordCounter
	enricher RecordEnricher
	log      logger.Logger

	// test seam for the current-year check
	now func() time.Time
}

func NewProcessor(recordStore RecordCounter, enricher RecordEnricher, log logger.Logger) *Processor {
	return &Processor{
		store:    recordStore,
		enricher: enricher,
		log:      log,
		now:      time.Now,
	}
}

// Result is one run's outcome: counters plus the records that were new this
// run, in feed order, for the digest.
type Result struct {
	Stats         models.RunStats
	NewBusinesses []*models.BusinessRecord
}

// Process consumes the feed CSV and returns the run result. Individual bad
// rows are logged and skipped; only an unreadable feed fails the run.
func (p *Processor) Process(ctx context.Context, feed io.Reader) (*Result, error) {
	reader := csv.NewReader(feed)

	header, err := reader.Read()
	if err != nil {
		return nil, errors.NewFeedParseFailedError(fmt.Errorf("read header: %w", err))
	}

	columns, err := columnIndexes(header)
	if err != nil {
		return nil, errors.NewFeedParseFailedError(err)
	}

	result := &Result{
		Stats: models.RunStats{
			RunID:     uuid.NewString(),
			StartedAt: p.now().UTC(),
		},
	}
	currentYear := fmt.Sprintf("%d", p.now().Year())

	runLog := p.log.WithFields(map[string]interface{}{"run_id": result.Stats.RunID})
	runLog.Info("feed processing started", nil)

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			runLog.Warn("skipping malformed csv row", map[string]interface{}{"error": err.Error()})
			result.Stats.Skipped++
			continue
		}

		result.Stats.TotalRecords++
		metrics.RecordsProcessed.WithLabelValues("total").Inc()

		rec, err := p.rowToRecord(row, columns)
		if err != nil {
			runLog.Warn("skipping invalid row", map[string]interface{}{"error": err.Error()})
			result.Stats.Skipped++
			continue
		}

		if !IsFoodBusiness(rec.BusinessType) {
			continue
		}
		result.Stats.FoodBusinesses++
		metrics.RecordsProcessed.WithLabelValues("food").Inc()

		if rec.ValidLicenseFor != currentYear {
			continue
		}

		if p.exists(ctx, rec) {
			continue
		}

		persisted, enriched := p.enricher.EnrichAndPersist(ctx, rec)
		if persisted == nil {
			result.Stats.Skipped++
			continue
		}

		result.Stats.NewBusinesses++
		metrics.RecordsProcessed.WithLabelValues("new").Inc()
		if enriched {
			result.Stats.Enriched++
		} else {
			result.Stats.EnrichmentFails++
		}
		result.NewBusinesses = append(result.NewBusinesses, persisted)
	}

	runLog.Info("feed processing finished", map[string]interface{}{
		"total":    result.Stats.TotalRecords,
		"food":     result.Stats.FoodBusinesses,
		"new":      result.Stats.NewBusinesses,
		"enriched": result.Stats.Enriched,
		"skipped":  result.Stats.Skipped,
	})

	return result, nil
}

func columnIndexes(header []string) (map[string]int, error) {
	indexes := make(map[string]int, len(header))
	for i, name := range header {
		indexes[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := indexes[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}
	return indexes, nil
}

func (p *Processor) rowToRecord(row []string, columns map[string]int) (*models.BusinessRecord, error) {
	field := func(name string) string {
		idx := columns[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	raw := map[string]interface{}{
		"business_name":     field("Business Name"),
		"dba_name":          field("DBA Name"),
		"address":           field("Address"),
		"business_type":     field("Business Type"),
		"valid_license_for": field("Valid License For"),
	}
	if err := validateFeedRow(raw); err != nil {
		return nil, err
	}

	return &models.BusinessRecord{
		BusinessName:    field("Business Name"),
		DBAName:         field("DBA Name"),
		Address:         field("Address"),
		BusinessType:    field("Business Type"),
		ValidLicenseFor: field("Valid License For"),
		InsertDate:      p.now().UTC(),
	}, nil
}

// exists checks the dedup key (business_name, address, business_type)
// against live records.
func (p *Processor) exists(ctx context.Context, rec *models.BusinessRecord) bool {
	count := p.store.Count(ctx, store.Filter{
		"business_name": rec.BusinessName,
		"address":       rec.Address,
		"business_type": rec.BusinessType,
		"deleted":       false,
	})
	return count > 0
}
