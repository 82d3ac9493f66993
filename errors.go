package vecstore

import "github.com/kailas-cloud/vecstore/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrAlreadyExists          = domain.ErrAlreadyExists
	ErrInvalidSchema          = domain.ErrInvalidSchema
	ErrSchemaMismatch         = domain.ErrSchemaMismatch
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrNotSupported           = domain.ErrNotSupported
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrEmbeddingUnavailable   = domain.ErrEmbeddingUnavailable
	ErrEmbedderNotConfigured  = domain.ErrEmbedderNotConfigured
)

// DimensionError carries the expected and actual sizes of an ErrVectorDimMismatch.
type DimensionError = domain.DimensionError
