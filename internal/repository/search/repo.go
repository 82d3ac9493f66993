package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain"
	"github.com/kailas-cloud/vecstore/internal/domain/search/filter"
	"github.com/kailas-cloud/vecstore/internal/domain/search/result"
	"github.com/kailas-cloud/vecstore/internal/domain/table"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SearchKNN runs a nearest-neighbour query against tbl with metadata pre-filtering.
func (r *Repo) SearchKNN(
	ctx context.Context, tbl table.Table,
	vector []float32, filters filter.Expression, k int,
	includeVectors, bruteForce bool,
) (result.Page, error) {
	ref := tbl.Ref()
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		Table:         db.TableRef{Dataset: ref.Dataset, Table: ref.Table, Location: ref.Location},
		Vector:        vector,
		K:             k,
		Filters:       filters,
		Distance:      tbl.Strategy(),
		Fields:        fieldDefs(tbl.Fields()),
		IncludeVector: includeVectors,
		BruteForce:    bruteForce,
		Location:      ref.Location,
	})
	if err != nil {
		if errors.Is(err, db.ErrTableNotFound) {
			return result.Page{}, fmt.Errorf("search %s: %w", ref, domain.ErrNotFound)
		}
		return result.Page{}, fmt.Errorf("search %s: %w", ref, err)
	}
	return toPage(sr, includeVectors), nil
}

func toPage(sr *db.SearchResult, includeVectors bool) result.Page {
	page := result.Page{JobID: sr.JobID, Results: make([]result.Result, 0, len(sr.Entries))}
	for _, e := range sr.Entries {
		var vec []float32
		if includeVectors {
			vec = e.Vector
		}
		meta := e.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		page.Results = append(page.Results, result.New(e.ID, e.Distance, e.Content, meta, vec))
	}
	return page
}

func fieldDefs(fields []table.Field) []db.FieldDef {
	if len(fields) == 0 {
		return nil
	}
	out := make([]db.FieldDef, len(fields))
	for i, f := range fields {
		ft := db.FieldTag
		if f.Type() == table.FieldNumeric {
			ft = db.FieldNumeric
		}
		out[i] = db.FieldDef{Name: f.Name(), Type: ft}
	}
	return out
}
