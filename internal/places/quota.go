// internal/places/quota.go
package places

import (
	"kc-restaurants/internal/common/metrics"
)

// Published per-1000-call prices for the lookup API.
const (
	textSearchCostPer1000 = 32.0
	detailsCostPer1000    = 17.0
)

// QuotaTracker keeps a running estimate of API spend for one process
// lifetime. No locking: the batch is single-threaded.
type QuotaTracker struct {
	textSearchCalls int
	detailsCalls    int
	budgetUSD       float64
}

func NewQuotaTracker(budgetUSD float64) *QuotaTracker {
	return &QuotaTracker{budgetUSD: budgetUSD}
}

func (q *QuotaTracker) RecordTextSearch() {
	q.textSearchCalls++
	metrics.PlacesAPICost.WithLabelValues("text_search").Add(textSearchCostPer1000 / 1000.0)
}

func (q *QuotaTracker) RecordDetails() {
	q.detailsCalls++
	metrics.PlacesAPICost.WithLabelValues("details").Add(detailsCostPer1000 / 1000.0)
}

// EstimatedCostUSD returns the running spend estimate in dollars.
func (q *QuotaTracker) EstimatedCostUSD() float64 {
	return float64(q.textSearchCalls)*textSearchCostPer1000/1000.0 +
		float64(q.detailsCalls)*detailsCostPer1000/1000.0
}

// OverBudget reports whether the estimate has crossed the configured soft
// ceiling. A zero budget disables the check.
func (q *QuotaTracker) OverBudget() bool {
	return q.budgetUSD > 0 && q.EstimatedCostUSD() >= q.budgetUSD
}

// Calls returns per-type call counts for run reporting.
func (q *QuotaTracker) Calls() (textSearch, details int) {
	return q.textSearchCalls, q.detailsCalls
}
