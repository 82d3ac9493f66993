package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing dataset, table or job.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidSchema signals invalid input or a schema violation.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrSchemaMismatch signals an existing table whose columns do not fit the vector store layout.
	ErrSchemaMismatch = errors.New("table schema mismatch")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrNotSupported signals an operation the configured backend does not offer.
	ErrNotSupported = errors.New("not supported by backend")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingUnavailable signals a transient provider outage (5xx, timeouts).
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrEmbedderNotConfigured signals a text operation without an embedder.
	ErrEmbedderNotConfigured = errors.New("embedder not configured")
)

// IsRetryable reports whether an embedding error is worth another attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrEmbeddingUnavailable)
}

// DimensionError wraps ErrVectorDimMismatch with the expected and actual sizes.
type DimensionError struct {
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrVectorDimMismatch.Error(), e.Expected, e.Actual)
}

func (e *DimensionError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimensionError creates a dimension mismatch error.
func NewDimensionError(expected, actual int) error {
	return &DimensionError{Expected: expected, Actual: actual}
}
