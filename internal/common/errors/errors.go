// Package errors provides standardized error handling for the monitor pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeInvalidFilterFormat    ErrorCode = "INVALID_FILTER_FORMAT"
	ErrCodeRecordValidationFailed ErrorCode = "RECORD_VALIDATION_FAILED"
	ErrCodeDuplicateRecord        ErrorCode = "DUPLICATE_RECORD"

	ErrCodeFeedDownloadFailed ErrorCode = "FEED_DOWNLOAD_FAILED"
	ErrCodeFeedParseFailed    ErrorCode = "FEED_PARSE_FAILED"

	ErrCodePlacesLookupFailed ErrorCode = "PLACES_LOOKUP_FAILED"
	ErrCodePlacesRateLimited  ErrorCode = "PLACES_RATE_LIMITED"
	ErrCodePlacesQuotaReached ErrorCode = "PLACES_QUOTA_REACHED"
	ErrCodePlacesDenied       ErrorCode = "PLACES_REQUEST_DENIED"

	ErrCodeDigestSendFailed ErrorCode = "DIGEST_SEND_FAILED"
)

// Category buckets an error by what the right retry reaction is, independent
// of which subsystem produced it.
type Category string

const (
	CategoryNetwork          Category = "network"
	CategoryRateLimited      Category = "rate_limited"
	CategoryQuotaExceeded    Category = "quota_exceeded"
	CategoryAuthentication   Category = "authentication"
	CategoryPermissionDenied Category = "permission_denied"
	CategoryNotFound         Category = "not_found"
	CategoryTemporary        Category = "temporary"
	CategoryUnknown          Category = "unknown"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Category  Category               `json:"category"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Categorization
// ==========================

// Categorize maps an arbitrary error to a retry category by inspecting its
// text. StandardError values carry their category directly.
func Categorize(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	if stdErr, ok := err.(*StandardError); ok && stdErr.Category != "" {
		return stdErr.Category
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "rate limit"):
		return CategoryRateLimited
	case strings.Contains(msg, "quota"):
		return CategoryQuotaExceeded
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key"):
		return CategoryAuthentication
	case strings.Contains(msg, "403") || strings.Contains(msg, "forbidden") || strings.Contains(msg, "request_denied") || strings.Contains(msg, "permission"):
		return CategoryPermissionDenied
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found") || strings.Contains(msg, "zero_results"):
		return CategoryNotFound
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "504") || strings.Contains(msg, "unavailable"):
		return CategoryTemporary
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "connection") || strings.Contains(msg, "dns") || strings.Contains(msg, "dial") || strings.Contains(msg, "eof") || strings.Contains(msg, "reset"):
		return CategoryNetwork
	default:
		return CategoryUnknown
	}
}

// IsRetryable reports whether the category is worth retrying at all.
// Authentication, permission and not-found failures never recover on retry.
func (c Category) IsRetryable() bool {
	switch c {
	case CategoryNetwork, CategoryRateLimited, CategoryQuotaExceeded, CategoryTemporary:
		return true
	case CategoryUnknown:
		return true // bounded by MaxAttempts below
	default:
		return false
	}
}

// MaxAttempts returns the attempt ceiling for a category, with 0 meaning
// "use the configured retry limit".
func (c Category) MaxAttempts() int {
	switch c {
	case CategoryAuthentication, CategoryPermissionDenied, CategoryNotFound:
		return 1
	case CategoryUnknown:
		return 2
	default:
		return 0
	}
}

// ==========================
// 3. Error Constructors
// ==========================

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Category:  CategoryNetwork,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Category:  CategoryTemporary,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Category:  CategoryTemporary,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeElasticsearchConnectionFailed,
		Category:  CategoryNetwork,
		Message:   "Elasticsearch connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Category:  CategoryTemporary,
		Message:   "Elasticsearch query error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexNotFoundError creates a non-retryable index not found error.
func NewIndexNotFoundError(indexName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexNotFound,
		Category:  CategoryNotFound,
		Message:   "Elasticsearch index not found",
		Details:   fmt.Sprintf("indexName: %s", indexName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFilterFormatError creates a non-retryable filter format error.
func NewInvalidFilterFormatError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidFilterFormat,
		Category:  CategoryUnknown,
		Message:   "Invalid filter format",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordValidationFailedError creates a non-retryable record validation error.
func NewRecordValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordValidationFailed,
		Category:  CategoryUnknown,
		Message:   "Business record validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateRecordError creates a non-retryable duplicate record error.
func NewDuplicateRecordError(businessName, address string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateRecord,
		Category:  CategoryUnknown,
		Message:   "Business record already exists",
		Details:   fmt.Sprintf("businessName: %s, address: %s", businessName, address),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFeedDownloadFailedError creates a retryable feed download error.
func NewFeedDownloadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFeedDownloadFailed,
		Category:  Categorize(err),
		Message:   "License feed download failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFeedParseFailedError creates a non-retryable feed parse error.
func NewFeedParseFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFeedParseFailed,
		Category:  CategoryUnknown,
		Message:   "License feed parse failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlacesLookupFailedError creates a places lookup error categorized from
// the underlying cause.
func NewPlacesLookupFailedError(err error) *StandardError {
	cat := Categorize(err)
	return &StandardError{
		Code:      ErrCodePlacesLookupFailed,
		Category:  cat,
		Message:   "Place lookup error",
		Details:   err.Error(),
		Retryable: cat.IsRetryable(),
		Timestamp: time.Now().UTC(),
	}
}

// NewPlacesRateLimitedError creates a retryable rate-limit error.
func NewPlacesRateLimitedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePlacesRateLimited,
		Category:  CategoryRateLimited,
		Message:   "Place lookup rate limited",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlacesQuotaReachedError creates a retryable quota error.
func NewPlacesQuotaReachedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePlacesQuotaReached,
		Category:  CategoryQuotaExceeded,
		Message:   "Place lookup quota exceeded",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlacesDeniedError creates a non-retryable request-denied error.
func NewPlacesDeniedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePlacesDenied,
		Category:  CategoryPermissionDenied,
		Message:   "Place lookup request denied",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDigestSendFailedError creates a retryable digest delivery error.
func NewDigestSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDigestSendFailed,
		Category:  Categorize(err),
		Message:   "Digest email delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Category:  Categorize(err),
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Category:  CategoryNetwork,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      "AUTHENTICATION_ERROR",
		Category:  CategoryAuthentication,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Utility Functions
// ==========================

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeFeedDownloadFailed,
		ErrCodeDigestSendFailed:
		return 3

	case ErrCodePlacesLookupFailed,
		ErrCodePlacesRateLimited,
		ErrCodePlacesQuotaReached:
		return 2

	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the subsystem category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	// SEARCH_QUERY_FAILED must not fall into the DATABASE bucket, so the
	// search match runs first.
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "FEED"):
		return "FEED"
	case strings.Contains(codeStr, "PLACES"):
		return "PLACES"
	case strings.Contains(codeStr, "DIGEST"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "DUPLICATE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
