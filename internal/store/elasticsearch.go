// internal/store/elasticsearch.go
package store

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"kc-restaurants/internal/common/database"
	"kc-restaurants/internal/common/logger"
	"kc-restaurants/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// DocumentBackend is the Elasticsearch adapter. It is the primary backend:
// schema-flexible documents, one per business record, addressed by a
// deterministic ID derived from the dedup key so that re-inserting the same
// business overwrites instead of duplicating.
type DocumentBackend struct {
	client *database.ElasticsearchClient
	index  string
	log    logger.Logger
}

func NewDocumentBackend(client *database.ElasticsearchClient, index string, log logger.Logger) *DocumentBackend {
	return &DocumentBackend{
		client: client,
		index:  index,
		log:    log.WithFields(map[string]interface{}{"backend": "elasticsearch"}),
	}
}

func (b *DocumentBackend) Name() string {
	return "elasticsearch"
}

// indexMapping keeps identity strings as keywords so term queries and the
// dedup key behave like exact matches, and coordinates as doubles so range
// filters work for the bounding box.
const indexMapping = `{
  "mappings": {
    "properties": {
      "business_name":   {"type": "keyword"},
      "dba_name":        {"type": "keyword"},
      "address":         {"type": "keyword"},
      "business_type":   {"type": "keyword"},
      "valid_license_for": {"type": "keyword"},
      "insert_date":     {"type": "date"},
      "deleted":         {"type": "boolean"},
      "google_place_id": {"type": "keyword"},
      "rating":          {"type": "double"},
      "review_count":    {"type": "integer"},
      "price_level":     {"type": "integer"},
      "latitude":        {"type": "double"},
      "longitude":       {"type": "double"},
      "cuisine_type":    {"type": "keyword"},
      "ai_predicted_rating": {"type": "double"},
      "business_hours":  {"type": "object", "enabled": false},
      "sentiment_distribution": {"type": "object", "enabled": false}
    }
  }
}`

// EnsureIndex creates the index with explicit mappings when it does not
// exist yet.
func (b *DocumentBackend) EnsureIndex(ctx context.Context) error {
	existsReq := esapi.IndicesExistsRequest{Index: []string{b.index}}
	res, err := existsReq.Do(ctx, b.client.Client)
	if err != nil {
		return fmt.Errorf("index exists check failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	createReq := esapi.IndicesCreateRequest{
		Index: b.index,
		Body:  strings.NewReader(indexMapping),
	}
	createRes, err := createReq.Do(ctx, b.client.Client)
	if err != nil {
		return fmt.Errorf("index create failed: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("index create error: %s", createRes.Status())
	}

	b.log.Info("created index", map[string]interface{}{"index": b.index})
	return nil
}

// Reachable reports whether the cluster answers a ping within a short
// deadline.
func (b *DocumentBackend) Reachable(ctx context.Context) bool {
	if b.client == nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := b.client.Client.Ping(b.client.Client.Ping.WithContext(pingCtx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// documentID derives the document address from the dedup key.
func documentID(rec *models.BusinessRecord) string {
	h := sha1.Sum([]byte(rec.BusinessName + "|" + rec.Address + "|" + rec.BusinessType))
	return hex.EncodeToString(h[:])
}

func (b *DocumentBackend) Insert(ctx context.Context, rec *models.BusinessRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      b.index,
		DocumentID: documentID(rec),
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, b.client.Client)
	if err != nil {
		return fmt.Errorf("index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index error: %s", res.Status())
	}
	return nil
}

// buildQueryBody translates a filter into an Elasticsearch bool query.
func buildQueryBody(filter Filter) (map[string]interface{}, error) {
	conds, err := filter.Conditions()
	if err != nil {
		return nil, err
	}

	filterClauses := []interface{}{}
	mustNotClauses := []interface{}{}

	for _, cond := range conds {
		switch cond.Operator {
		case "":
			if cond.Value == nil {
				mustNotClauses = append(mustNotClauses, existsClause(cond.Field))
			} else {
				filterClauses = append(filterClauses, map[string]interface{}{
					"term": map[string]interface{}{cond.Field: cond.Value},
				})
			}
		case opExists:
			if cond.Value.(bool) {
				filterClauses = append(filterClauses, existsClause(cond.Field))
			} else {
				mustNotClauses = append(mustNotClauses, existsClause(cond.Field))
			}
		case opNe:
			if cond.Value == nil {
				filterClauses = append(filterClauses, existsClause(cond.Field))
			} else {
				mustNotClauses = append(mustNotClauses, map[string]interface{}{
					"term": map[string]interface{}{cond.Field: cond.Value},
				})
			}
		case opGte, opLte, opGt, opLt:
			filterClauses = append(filterClauses, map[string]interface{}{
				"range": map[string]interface{}{
					cond.Field: map[string]interface{}{
						strings.TrimPrefix(cond.Operator, "$"): cond.Value,
					},
				},
			})
		}
	}

	boolQuery := map[string]interface{}{}
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}
	if len(mustNotClauses) > 0 {
		boolQuery["must_not"] = mustNotClauses
	}
	if len(boolQuery) == 0 {
		return map[string]interface{}{
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		}, nil
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}, nil
}

func existsClause(field string) map[string]interface{} {
	return map[string]interface{}{
		"exists": map[string]interface{}{"field": field},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (b *DocumentBackend) Find(ctx context.Context, filter Filter, limit int) ([]*models.BusinessRecord, error) {
	queryBody, err := buildQueryBody(filter)
	if err != nil {
		return nil, err
	}

	body, _ := json.Marshal(queryBody)
	size := limit
	if size <= 0 {
		size = 10000
	}

	req := esapi.SearchRequest{
		Index: []string{b.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, b.client.Client)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	records := make([]*models.BusinessRecord, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		var rec models.BusinessRecord
		if err := json.Unmarshal(hit.Source, &rec); err != nil {
			b.log.Warn("skipping undecodable document", map[string]interface{}{"error": err.Error()})
			continue
		}
		records = append(records, &rec)
	}
	return records, nil
}

func (b *DocumentBackend) Count(ctx context.Context, filter Filter) (int, error) {
	queryBody, err := buildQueryBody(filter)
	if err != nil {
		return 0, err
	}

	body, _ := json.Marshal(queryBody)
	req := esapi.CountRequest{
		Index: []string{b.index},
		Body:  strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, b.client.Client)
	if err != nil {
		return 0, fmt.Errorf("count request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("count error: %s", res.Status())
	}

	var parsed struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return parsed.Count, nil
}

func (b *DocumentBackend) DeleteAll(ctx context.Context, filter Filter) (int, error) {
	queryBody, err := buildQueryBody(filter)
	if err != nil {
		return 0, err
	}

	body, _ := json.Marshal(queryBody)
	refresh := true
	req := esapi.DeleteByQueryRequest{
		Index:   []string{b.index},
		Body:    strings.NewReader(string(body)),
		Refresh: &refresh,
	}

	res, err := req.Do(ctx, b.client.Client)
	if err != nil {
		return 0, fmt.Errorf("delete by query request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("delete by query error: %s", res.Status())
	}

	var parsed struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode delete response: %w", err)
	}
	return parsed.Deleted, nil
}
