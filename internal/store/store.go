// internal/store/store.go

// Package store presents one query surface over two backends with
// independent availability: a document primary and a relational mirror.
// Callers never branch on which backend is live; every operation degrades to
// "use whichever backend answers" instead of failing.
package store

import (
	"context"

	"kc-restaurants/internal/common/logger"
	"kc-restaurants/internal/common/metrics"
	"kc-restaurants/internal/common/validation"
	"kc-restaurants/internal/models"
)

// Backend is one concrete storage adapter behind the facade.
type Backend interface {
	Name() string
	Reachable(ctx context.Context) bool
	Insert(ctx context.Context, rec *models.BusinessRecord) error
	Find(ctx context.Context, filter Filter, limit int) ([]*models.BusinessRecord, error)
	Count(ctx context.Context, filter Filter) (int, error)
	DeleteAll(ctx context.Context, filter Filter) (int, error)
}

// BackendStatus is one backend's health snapshot.
type BackendStatus struct {
	Reachable   bool `json:"reachable"`
	RecordCount int  `json:"record_count"`
}

// Store coordinates the document primary and the relational mirror.
type Store struct {
	doc Backend
	rel Backend
	log logger.Logger
}

func New(doc, rel Backend, log logger.Logger) *Store {
	return &Store{doc: doc, rel: rel, log: log}
}

// Insert writes to the document backend when reachable and always attempts
// the relational mirror. True means at least one backend took the write. The
// predicted rating is clamped to [1.0, 5.0] at the write boundary, and a
// record failing structural validation is rejected before reaching either
// backend.
func (s *Store) Insert(ctx context.Context, rec *models.BusinessRecord) bool {
	clampPredictedRating(rec)

	if result := validation.ValidateRecord(rec); !result.Valid {
		s.log.Warn("rejecting invalid record", map[string]interface{}{
			"business_name": rec.BusinessName,
			"errors":        result.GetErrorMessages(),
		})
		return false
	}

	docOK := false
	if s.reachable(ctx, s.doc) {
		if err := s.doc.Insert(ctx, rec); err != nil {
			s.log.Warn("document insert failed", map[string]interface{}{
				"backend":       s.doc.Name(),
				"business_name": rec.BusinessName,
				"error":         err.Error(),
			})
		} else {
			docOK = true
		}
	}

	relOK := false
	if err := s.rel.Insert(ctx, rec); err != nil {
		s.log.Warn("relational insert failed", map[string]interface{}{
			"backend":       s.rel.Name(),
			"business_name": rec.BusinessName,
			"error":         err.Error(),
		})
	} else {
		relOK = true
	}

	return docOK || relOK
}

// Find queries the document backend first when reachable. The relational
// mirror answers only when the document backend is unreachable or errors;
// an empty result from a reachable backend is a valid answer, not a reason
// to fall back.
func (s *Store) Find(ctx context.Context, filter Filter, limit int) []*models.BusinessRecord {
	if s.reachable(ctx, s.doc) {
		records, err := s.doc.Find(ctx, filter, limit)
		if err == nil {
			return records
		}
		s.log.Warn("document find failed, falling back", map[string]interface{}{
			"backend": s.doc.Name(),
			"error":   err.Error(),
		})
	}

	records, err := s.rel.Find(ctx, filter, limit)
	if err != nil {
		s.log.Warn("relational find failed", map[string]interface{}{
			"backend": s.rel.Name(),
			"error":   err.Error(),
		})
		return nil
	}
	return records
}

// Count uses the same backend-selection policy as Find.
func (s *Store) Count(ctx context.Context, filter Filter) int {
	if s.reachable(ctx, s.doc) {
		count, err := s.doc.Count(ctx, filter)
		if err == nil {
			return count
		}
		s.log.Warn("document count failed, falling back", map[string]interface{}{
			"backend": s.doc.Name(),
			"error":   err.Error(),
		})
	}

	count, err := s.rel.Count(ctx, filter)
	if err != nil {
		s.log.Warn("relational count failed", map[string]interface{}{
			"backend": s.rel.Name(),
			"error":   err.Error(),
		})
		return 0
	}
	return count
}

// DeleteAll removes matching rows from every reachable backend. Because one
// backend mirrors the other, the result is the larger per-backend count, not
// the sum.
func (s *Store) DeleteAll(ctx context.Context, filter Filter) int {
	maxDeleted := 0

	for _, backend := range []Backend{s.doc, s.rel} {
		if !s.reachable(ctx, backend) {
			continue
		}
		deleted, err := backend.DeleteAll(ctx, filter)
		if err != nil {
			s.log.Warn("delete failed", map[string]interface{}{
				"backend": backend.Name(),
				"error":   err.Error(),
			})
			continue
		}
		if deleted > maxDeleted {
			maxDeleted = deleted
		}
	}

	return maxDeleted
}

// Status reports reachability and live (non-deleted) record count per
// backend.
func (s *Store) Status(ctx context.Context) map[string]BackendStatus {
	status := make(map[string]BackendStatus, 2)

	for _, backend := range []Backend{s.doc, s.rel} {
		st := BackendStatus{Reachable: backend.Reachable(ctx)}
		if st.Reachable {
			count, err := backend.Count(ctx, Filter{"deleted": false})
			if err != nil {
				s.log.Warn("status count failed", map[string]interface{}{
					"backend": backend.Name(),
					"error":   err.Error(),
				})
			} else {
				st.RecordCount = count
			}
		}
		status[backend.Name()] = st
	}

	return status
}

func (s *Store) reachable(ctx context.Context, backend Backend) bool {
	ok := backend.Reachable(ctx)
	gauge := 0.0
	if ok {
		gauge = 1.0
	}
	metrics.BackendAvailable.WithLabelValues(backend.Name()).Set(gauge)
	return ok
}

func clampPredictedRating(rec *models.BusinessRecord) {
	if rec.AIPredictedRating == nil {
		return
	}
	if *rec.AIPredictedRating < 1.0 {
		v := 1.0
		rec.AIPredictedRating = &v
	} else if *rec.AIPredictedRating > 5.0 {
		v := 5.0
		rec.AIPredictedRating = &v
	}
}
