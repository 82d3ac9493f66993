package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecstore/internal/domain"
	"github.com/kailas-cloud/vecstore/internal/domain/search/request"
	"github.com/kailas-cloud/vecstore/internal/domain/search/result"
	"github.com/kailas-cloud/vecstore/internal/domain/table"
)

// Service runs similarity searches by text or by vector.
type Service struct {
	repo  Repository
	embed Embedder
}

// New creates a search service. embed may be nil for vector-only use.
func New(repo Repository, embed Embedder) *Service {
	return &Service{repo: repo, embed: embed}
}

// Search returns at most req.K() nearest rows of tbl, closest first.
func (s *Service) Search(ctx context.Context, tbl table.Table, req *request.Request) (result.Page, error) {
	vector := req.Vector()
	if !req.HasVector() {
		if s.embed == nil {
			return result.Page{}, domain.ErrEmbedderNotConfigured
		}
		embResult, err := s.embed.Embed(ctx, req.Query())
		if err != nil {
			return result.Page{}, fmt.Errorf("vectorize query: %w", err)
		}
		domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)
		vector = embResult.Embedding
	}

	if tbl.VectorDim() > 0 && len(vector) != tbl.VectorDim() {
		return result.Page{}, fmt.Errorf("query vector: %w",
			domain.NewDimensionError(tbl.VectorDim(), len(vector)))
	}

	page, err := s.repo.SearchKNN(
		ctx, tbl, vector, req.Filters(), req.K(), req.IncludeVectors(), req.BruteForce(),
	)
	if err != nil {
		return result.Page{}, fmt.Errorf("search knn: %w", err)
	}

	// Post-filter: max_distance
	if maxDist := req.MaxDistance(); maxDist != nil {
		filtered := page.Results[:0]
		for _, r := range page.Results {
			if r.Distance() <= *maxDist {
				filtered = append(filtered, r)
			}
		}
		page.Results = filtered
	}

	// Limit
	if len(page.Results) > req.K() {
		page.Results = page.Results[:req.K()]
	}

	return page, nil
}
