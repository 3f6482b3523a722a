// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"kc-restaurants/internal/common/database"
	"kc-restaurants/internal/common/errors"
	"kc-restaurants/internal/common/logger"
	"kc-restaurants/internal/models"
)

// RelationalBackend is the PostgreSQL adapter. It is the durable local
// mirror: fixed schema, upsert on (business_name, address), structured
// sub-objects serialized as text columns and parsed back on read.
type RelationalBackend struct {
	client *database.PostgresClient
	log    logger.Logger
}

func NewRelationalBackend(client *database.PostgresClient, log logger.Logger) *RelationalBackend {
	return &RelationalBackend{
		client: client,
		log:    log.WithFields(map[string]interface{}{"backend": "postgres"}),
	}
}

func (b *RelationalBackend) Name() string {
	return "postgres"
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS food_businesses (
	id SERIAL PRIMARY KEY,
	business_name TEXT NOT NULL,
	dba_name TEXT,
	address TEXT NOT NULL,
	business_type TEXT,
	valid_license_for TEXT,
	insert_date TIMESTAMPTZ,
	deleted BOOLEAN NOT NULL DEFAULT FALSE,
	google_place_id TEXT,
	rating DOUBLE PRECISION,
	review_count INTEGER,
	price_level INTEGER,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	cuisine_type TEXT,
	outdoor_seating BOOLEAN,
	takeout_available BOOLEAN,
	delivery_available BOOLEAN,
	reservations_accepted BOOLEAN,
	wheelchair_accessible BOOLEAN,
	good_for_children BOOLEAN,
	serves_alcohol BOOLEAN,
	parking_available BOOLEAN,
	business_hours TEXT,
	sentiment_avg DOUBLE PRECISION,
	sentiment_distribution TEXT,
	review_keywords TEXT,
	sentiment_summary TEXT,
	ai_predicted_rating DOUBLE PRECISION,
	ai_predicted_grade TEXT,
	ai_prediction_confidence TEXT,
	ai_confidence_percentage INTEGER,
	ai_confidence_level TEXT,
	ai_similar_restaurants_count INTEGER,
	ai_prediction_explanation TEXT,
	enriched_date TIMESTAMPTZ,
	last_updated TIMESTAMPTZ,
	api_fields_retrieved TEXT,
	UNIQUE (business_name, address)
)`

var createIndexSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_food_businesses_name ON food_businesses (business_name)`,
	`CREATE INDEX IF NOT EXISTS idx_food_businesses_location ON food_businesses (latitude, longitude)`,
	`CREATE INDEX IF NOT EXISTS idx_food_businesses_cuisine ON food_businesses (cuisine_type)`,
	`CREATE INDEX IF NOT EXISTS idx_food_businesses_place_id ON food_businesses (google_place_id)`,
}

// EnsureSchema creates the mirror table and its indexes when missing.
func (b *RelationalBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.client.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	for _, stmt := range createIndexSQL {
		if _, err := b.client.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// Reachable reports whether the database answers a ping within a short
// deadline.
func (b *RelationalBackend) Reachable(ctx context.Context) bool {
	if b.client == nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return b.client.Ping(pingCtx) == nil
}

// recordColumns is the insert/select column order. It must match
// insertRecordSQL placeholders and scanRecord.
var recordColumns = []string{
	"business_name", "dba_name", "address", "business_type", "valid_license_for",
	"insert_date", "deleted",
	"google_place_id", "rating", "review_count", "price_level",
	"latitude", "longitude", "cuisine_type",
	"outdoor_seating", "takeout_available", "delivery_available",
	"reservations_accepted", "wheelchair_accessible", "good_for_children",
	"serves_alcohol", "parking_available",
	"business_hours", "sentiment_avg", "sentiment_distribution",
	"review_keywords", "sentiment_summary",
	"ai_predicted_rating", "ai_predicted_grade", "ai_prediction_confidence",
	"ai_confidence_percentage", "ai_confidence_level",
	"ai_similar_restaurants_count", "ai_prediction_explanation",
	"enriched_date", "last_updated", "api_fields_retrieved",
}

// opaque text columns holding serialized JSON; the filter engine does not
// reach inside them.
var opaqueColumns = map[string]bool{
	"business_hours":         true,
	"sentiment_distribution": true,
	"review_keywords":        true,
	"api_fields_retrieved":   true,
}

var columnSet = func() map[string]bool {
	set := make(map[string]bool, len(recordColumns))
	for _, col := range recordColumns {
		set[col] = true
	}
	return set
}()

func insertRecordSQL() string {
	placeholders := make([]string, len(recordColumns))
	updates := make([]string, 0, len(recordColumns))
	for i, col := range recordColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "business_name" && col != "address" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return fmt.Sprintf(
		"INSERT INTO food_businesses (%s) VALUES (%s) ON CONFLICT (business_name, address) DO UPDATE SET %s",
		strings.Join(recordColumns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

func (b *RelationalBackend) Insert(ctx context.Context, rec *models.BusinessRecord) error {
	args, err := recordArgs(rec)
	if err != nil {
		return err
	}
	if _, err := b.client.Exec(ctx, insertRecordSQL(), args...); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

func recordArgs(rec *models.BusinessRecord) ([]interface{}, error) {
	hours, err := marshalOpaque(rec.BusinessHours)
	if err != nil {
		return nil, err
	}
	dist, err := marshalOpaque(rec.SentimentDistribution)
	if err != nil {
		return nil, err
	}
	keywords, err := marshalOpaque(rec.ReviewKeywords)
	if err != nil {
		return nil, err
	}
	apiFields, err := marshalOpaque(rec.APIFieldsRetrieved)
	if err != nil {
		return nil, err
	}

	return []interface{}{
		rec.BusinessName, nullString(rec.DBAName), rec.Address,
		nullString(rec.BusinessType), nullString(rec.ValidLicenseFor),
		nullTimeVal(rec.InsertDate), rec.Deleted,
		rec.PlaceID, rec.Rating, rec.ReviewCount, rec.PriceLevel,
		rec.Latitude, rec.Longitude, nullString(rec.CuisineType),
		rec.OutdoorSeating, rec.TakeoutAvailable, rec.DeliveryAvailable,
		rec.ReservationsAccepted, rec.WheelchairAccessible, rec.GoodForChildren,
		rec.ServesAlcohol, rec.ParkingAvailable,
		hours, rec.SentimentAvg, dist,
		keywords, nullString(rec.SentimentSummary),
		rec.AIPredictedRating, nullString(rec.AIPredictedGrade), nullString(rec.AIPredictionConfidence),
		rec.AIConfidencePercentage, nullString(rec.AIConfidenceLevel),
		rec.AISimilarCount, nullString(rec.AIPredictionExplanation),
		rec.EnrichedDate, rec.LastUpdated, apiFields,
	}, nil
}

func marshalOpaque(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case map[string]string:
		if len(val) == 0 {
			return nil, nil
		}
	case map[string]float64:
		if len(val) == 0 {
			return nil, nil
		}
	case []string:
		if len(val) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serialize opaque field: %w", err)
	}
	return string(data), nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTimeVal(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

// buildWhere translates a filter into a WHERE clause over whitelisted
// columns. Equality with nil and $ne use NULL-aware comparison so semantics
// match the document backend, where an absent field fails a term match.
func buildWhere(filter Filter) (string, []interface{}, error) {
	conds, err := filter.Conditions()
	if err != nil {
		return "", nil, err
	}

	clauses := make([]string, 0, len(conds))
	args := make([]interface{}, 0, len(conds))

	for _, cond := range conds {
		if !columnSet[cond.Field] {
			return "", nil, errors.NewInvalidFilterFormatError(
				fmt.Sprintf("unknown field %q", cond.Field))
		}
		if opaqueColumns[cond.Field] {
			return "", nil, errors.NewInvalidFilterFormatError(
				fmt.Sprintf("field %q is not filterable", cond.Field))
		}

		switch cond.Operator {
		case "":
			if cond.Value == nil {
				clauses = append(clauses, fmt.Sprintf("%s IS NULL", cond.Field))
			} else {
				args = append(args, cond.Value)
				clauses = append(clauses, fmt.Sprintf("%s = $%d", cond.Field, len(args)))
			}
		case opExists:
			if cond.Value.(bool) {
				clauses = append(clauses, fmt.Sprintf("%s IS NOT NULL", cond.Field))
			} else {
				clauses = append(clauses, fmt.Sprintf("%s IS NULL", cond.Field))
			}
		case opNe:
			if cond.Value == nil {
				clauses = append(clauses, fmt.Sprintf("%s IS NOT NULL", cond.Field))
			} else {
				args = append(args, cond.Value)
				clauses = append(clauses, fmt.Sprintf("%s IS DISTINCT FROM $%d", cond.Field, len(args)))
			}
		case opGte:
			args = append(args, cond.Value)
			clauses = append(clauses, fmt.Sprintf("%s >= $%d", cond.Field, len(args)))
		case opLte:
			args = append(args, cond.Value)
			clauses = append(clauses, fmt.Sprintf("%s <= $%d", cond.Field, len(args)))
		case opGt:
			args = append(args, cond.Value)
			clauses = append(clauses, fmt.Sprintf("%s > $%d", cond.Field, len(args)))
		case opLt:
			args = append(args, cond.Value)
			clauses = append(clauses, fmt.Sprintf("%s < $%d", cond.Field, len(args)))
		}
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (b *RelationalBackend) Find(ctx context.Context, filter Filter, limit int) ([]*models.BusinessRecord, error) {
	where, args, err := buildWhere(filter)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM food_businesses%s", strings.Join(recordColumns, ", "), where)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := b.client.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer rows.Close()

	var records []*models.BusinessRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			b.log.Warn("skipping unscannable row", map[string]interface{}{"error": err.Error()})
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func (b *RelationalBackend) Count(ctx context.Context, filter Filter) (int, error) {
	where, args, err := buildWhere(filter)
	if err != nil {
		return 0, err
	}

	var count int
	query := "SELECT COUNT(*) FROM food_businesses" + where
	if err := b.client.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

func (b *RelationalBackend) DeleteAll(ctx context.Context, filter Filter) (int, error) {
	where, args, err := buildWhere(filter)
	if err != nil {
		return 0, err
	}

	res, err := b.client.Exec(ctx, "DELETE FROM food_businesses"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}

func scanRecord(rows *sql.Rows) (*models.BusinessRecord, error) {
	var (
		rec models.BusinessRecord

		dbaName, businessType, validLicenseFor      sql.NullString
		insertDate, enrichedDate, lastUpdated       sql.NullTime
		placeID, cuisineType, sentimentSummary      sql.NullString
		rating, latitude, longitude, sentimentAvg   sql.NullFloat64
		reviewCount, priceLevel, confidencePct      sql.NullInt64
		similarCount                                sql.NullInt64
		hours, dist, keywords, apiFields            sql.NullString
		outdoorSeating, takeout, delivery           sql.NullBool
		reservations, wheelchair, children          sql.NullBool
		alcohol, parking                            sql.NullBool
		aiRating                                    sql.NullFloat64
		aiGrade, aiConfidence, aiLevel, aiExplained sql.NullString
	)

	err := rows.Scan(
		&rec.BusinessName, &dbaName, &rec.Address, &businessType, &validLicenseFor,
		&insertDate, &rec.Deleted,
		&placeID, &rating, &reviewCount, &priceLevel,
		&latitude, &longitude, &cuisineType,
		&outdoorSeating, &takeout, &delivery,
		&reservations, &wheelchair, &children,
		&alcohol, &parking,
		&hours, &sentimentAvg, &dist,
		&keywords, &sentimentSummary,
		&aiRating, &aiGrade, &aiConfidence,
		&confidencePct, &aiLevel,
		&similarCount, &aiExplained,
		&enrichedDate, &lastUpdated, &apiFields,
	)
	if err != nil {
		return nil, err
	}

	rec.DBAName = dbaName.String
	rec.BusinessType = businessType.String
	rec.ValidLicenseFor = validLicenseFor.String
	if insertDate.Valid {
		rec.InsertDate = insertDate.Time
	}
	rec.PlaceID = nullStringPtr(placeID)
	rec.Rating = nullFloatPtr(rating)
	rec.ReviewCount = int(reviewCount.Int64)
	rec.PriceLevel = nullIntPtr(priceLevel)
	rec.Latitude = nullFloatPtr(latitude)
	rec.Longitude = nullFloatPtr(longitude)
	rec.CuisineType = cuisineType.String
	rec.OutdoorSeating = nullBoolPtr(outdoorSeating)
	rec.TakeoutAvailable = nullBoolPtr(takeout)
	rec.DeliveryAvailable = nullBoolPtr(delivery)
	rec.ReservationsAccepted = nullBoolPtr(reservations)
	rec.WheelchairAccessible = nullBoolPtr(wheelchair)
	rec.GoodForChildren = nullBoolPtr(children)
	rec.ServesAlcohol = nullBoolPtr(alcohol)
	rec.ParkingAvailable = nullBoolPtr(parking)
	rec.SentimentAvg = nullFloatPtr(sentimentAvg)
	rec.SentimentSummary = sentimentSummary.String
	rec.AIPredictedRating = nullFloatPtr(aiRating)
	rec.AIPredictedGrade = aiGrade.String
	rec.AIPredictionConfidence = aiConfidence.String
	rec.AIConfidencePercentage = nullIntPtr(confidencePct)
	rec.AIConfidenceLevel = aiLevel.String
	rec.AISimilarCount = int(similarCount.Int64)
	rec.AIPredictionExplanation = aiExplained.String
	if enrichedDate.Valid {
		t := enrichedDate.Time
		rec.EnrichedDate = &t
	}
	if lastUpdated.Valid {
		t := lastUpdated.Time
		rec.LastUpdated = &t
	}

	if hours.Valid && hours.String != "" {
		_ = json.Unmarshal([]byte(hours.String), &rec.BusinessHours)
	}
	if dist.Valid && dist.String != "" {
		_ = json.Unmarshal([]byte(dist.String), &rec.SentimentDistribution)
	}
	if keywords.Valid && keywords.String != "" {
		_ = json.Unmarshal([]byte(keywords.String), &rec.ReviewKeywords)
	}
	if apiFields.Valid && apiFields.String != "" {
		_ = json.Unmarshal([]byte(apiFields.String), &rec.APIFieldsRetrieved)
	}

	return &rec, nil
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullBoolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}
