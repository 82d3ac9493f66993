package document

import (
	"context"

	"github.com/kailas-cloud/vecstore/internal/domain"
	domdoc "github.com/kailas-cloud/vecstore/internal/domain/document"
	"github.com/kailas-cloud/vecstore/internal/domain/table"
)

// Repository defines the storage contract for documents.
type Repository interface {
	Upsert(ctx context.Context, ref table.Ref, docs []domdoc.Document) (jobID string, err error)
	Delete(ctx context.Context, ref table.Ref, ids []string) (jobID string, affected int64, err error)
}

// Embedder vectorizes text into embeddings.
// Implementations that also satisfy domain.BatchEmbedder are called once per chunk.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
