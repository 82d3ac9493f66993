package document

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vecstore/internal/domain"
	domdoc "github.com/kailas-cloud/vecstore/internal/domain/document"
	"github.com/kailas-cloud/vecstore/internal/domain/table"
)

const (
	defaultMaxBatchSize = 250
	defaultConcurrency  = 4
)

// WriteResult summarises a write: stored IDs in input order and one job per chunk.
type WriteResult struct {
	IDs    []string
	JobIDs []string
	Tokens int
}

// Service embeds and stores documents.
type Service struct {
	repo         Repository
	embedder     Embedder
	maxBatchSize int
	concurrency  int
}

// New creates a document service. embedder may be nil for vector-only use.
func New(repo Repository, embedder Embedder) *Service {
	return &Service{
		repo:         repo,
		embedder:     embedder,
		maxBatchSize: defaultMaxBatchSize,
		concurrency:  defaultConcurrency,
	}
}

// WithBatching sets the chunk size for embedding and writes and the number
// of chunks embedded in parallel. Non-positive values keep the defaults.
func (s *Service) WithBatching(maxBatchSize, concurrency int) *Service {
	if maxBatchSize > 0 {
		s.maxBatchSize = maxBatchSize
	}
	if concurrency > 0 {
		s.concurrency = concurrency
	}
	return s
}

// AddTexts embeds the documents' content and upserts them into tbl.
// Nothing is written unless every chunk embeds successfully.
func (s *Service) AddTexts(ctx context.Context, tbl table.Table, docs []domdoc.Document) (WriteResult, error) {
	if len(docs) == 0 {
		return WriteResult{}, nil
	}
	if s.embedder == nil {
		return WriteResult{}, domain.ErrEmbedderNotConfigured
	}

	tokens, err := s.embedChunks(ctx, tbl.VectorDim(), docs)
	if err != nil {
		return WriteResult{}, err
	}
	domain.UsageFromContext(ctx).AddTokens(tokens)

	res, err := s.write(ctx, tbl.Ref(), docs)
	res.Tokens = tokens
	return res, err
}

// AddVectors upserts documents that already carry their embeddings.
func (s *Service) AddVectors(ctx context.Context, tbl table.Table, docs []domdoc.Document) (WriteResult, error) {
	if len(docs) == 0 {
		return WriteResult{}, nil
	}
	for i := range docs {
		if err := checkDim(tbl.VectorDim(), docs[i].Vector()); err != nil {
			return WriteResult{}, fmt.Errorf("document %s: %w", docs[i].ID(), err)
		}
	}
	return s.write(ctx, tbl.Ref(), docs)
}

// Delete removes documents by ID. Returns the job ID and the number of removed rows.
func (s *Service) Delete(ctx context.Context, ref table.Ref, ids []string) (string, int64, error) {
	if len(ids) == 0 {
		return "", 0, nil
	}
	jobID, n, err := s.repo.Delete(ctx, ref, ids)
	if err != nil {
		return "", 0, fmt.Errorf("delete documents: %w", err)
	}
	return jobID, n, nil
}

// embedChunks fills in the vector of every document, chunk by chunk, in parallel.
func (s *Service) embedChunks(ctx context.Context, dim int, docs []domdoc.Document) (int, error) {
	chunks := chunkBounds(len(docs), s.maxBatchSize)
	tokens := make([]int, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for ci, c := range chunks {
		g.Go(func() error {
			texts := make([]string, 0, c.hi-c.lo)
			for i := c.lo; i < c.hi; i++ {
				texts = append(texts, docs[i].Content())
			}
			res, err := domain.EmbedAll(gctx, s.embedder, texts)
			if err != nil {
				return fmt.Errorf("vectorize documents [%d:%d]: %w", c.lo, c.hi, err)
			}
			for j, vec := range res.Embeddings {
				if err := checkDim(dim, vec); err != nil {
					return fmt.Errorf("document %s: %w", docs[c.lo+j].ID(), err)
				}
				docs[c.lo+j].SetVector(vec)
			}
			tokens[ci] = res.TotalTokens
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err //nolint:wrapcheck // already wrapped per chunk
	}

	total := 0
	for _, n := range tokens {
		total += n
	}
	return total, nil
}

// write upserts docs chunk by chunk, in order. On failure the result lists
// the jobs that completed before it.
func (s *Service) write(ctx context.Context, ref table.Ref, docs []domdoc.Document) (WriteResult, error) {
	res := WriteResult{IDs: make([]string, len(docs))}
	for i := range docs {
		res.IDs[i] = docs[i].ID()
	}
	for _, c := range chunkBounds(len(docs), s.maxBatchSize) {
		jobID, err := s.repo.Upsert(ctx, ref, docs[c.lo:c.hi])
		if err != nil {
			return res, fmt.Errorf("upsert documents [%d:%d]: %w", c.lo, c.hi, err)
		}
		res.JobIDs = append(res.JobIDs, jobID)
	}
	return res, nil
}

func checkDim(want int, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty vector: %w", domain.ErrInvalidSchema)
	}
	if want > 0 && len(vec) != want {
		return domain.NewDimensionError(want, len(vec))
	}
	return nil
}

type bounds struct{ lo, hi int }

func chunkBounds(n, size int) []bounds {
	out := make([]bounds, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		out = append(out, bounds{lo: lo, hi: min(lo+size, n)})
	}
	return out
}
