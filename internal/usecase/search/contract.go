package search

import (
	"context"

	"github.com/kailas-cloud/vecstore/internal/domain"
	"github.com/kailas-cloud/vecstore/internal/domain/search/filter"
	"github.com/kailas-cloud/vecstore/internal/domain/search/result"
	"github.com/kailas-cloud/vecstore/internal/domain/table"
)

// Repository defines the storage contract for search operations.
type Repository interface {
	SearchKNN(
		ctx context.Context, tbl table.Table,
		vector []float32, filters filter.Expression, k int,
		includeVectors, bruteForce bool,
	) (result.Page, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
