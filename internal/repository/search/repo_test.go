package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain"
	"github.com/kailas-cloud/vecstore/internal/domain/distance"
	"github.com/kailas-cloud/vecstore/internal/domain/search/filter"
	"github.com/kailas-cloud/vecstore/internal/domain/table"
)

type mockStore struct {
	searchFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	return m.searchFn(ctx, q)
}

func testTable(t *testing.T) table.Table {
	t.Helper()
	tbl, err := table.New("vector_search", "doc_and_vectors", 2, distance.Cosine,
		[]table.Field{table.ReconstructField("len", table.FieldNumeric)})
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	return tbl
}

func TestSearchKNN_BuildsQuery(t *testing.T) {
	var got *db.KNNQuery
	ms := &mockStore{searchFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{JobID: "job_q", Entries: []db.SearchEntry{
			{ID: "b", Content: "Banana", Metadata: map[string]any{"len": 6.0}, Distance: 0.1, Vector: []float32{1, 0}},
			{ID: "t", Content: "Train", Distance: 0.9},
		}}, nil
	}}

	expr, _ := filter.FromMap(map[string]any{"len": 6})
	page, err := New(ms).SearchKNN(context.Background(), testTable(t), []float32{1, 0}, expr, 4, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Table.Table != "doc_and_vectors" || got.Distance != distance.Cosine || got.K != 4 {
		t.Errorf("unexpected query %+v", got)
	}
	if len(got.Fields) != 1 || got.Fields[0].Type != db.FieldNumeric {
		t.Errorf("fields = %+v", got.Fields)
	}
	if len(got.Filters.Must()) != 1 {
		t.Errorf("filters not forwarded")
	}

	if page.JobID != "job_q" || len(page.Results) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	first := page.Results[0]
	if first.ID() != "b" || first.Content() != "Banana" || first.Distance() != 0.1 {
		t.Errorf("unexpected first result %+v", first)
	}
	if first.Vector() != nil {
		t.Error("vector should be dropped unless requested")
	}
	if page.Results[1].Metadata() == nil {
		t.Error("metadata should never be nil")
	}
}

func TestSearchKNN_PinsTableLocation(t *testing.T) {
	var got *db.KNNQuery
	ms := &mockStore{searchFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{}, nil
	}}

	tbl := testTable(t).WithLocation("EU")
	if _, err := New(ms).SearchKNN(context.Background(), tbl, []float32{1, 0}, filter.Expression{}, 4, false, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Location != "EU" || got.Table.Location != "EU" {
		t.Errorf("location = %q / %q, want EU", got.Location, got.Table.Location)
	}
}

func TestSearchKNN_IncludeVectors(t *testing.T) {
	ms := &mockStore{searchFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if !q.IncludeVector || !q.BruteForce {
			t.Errorf("flags not forwarded: %+v", q)
		}
		return &db.SearchResult{Entries: []db.SearchEntry{{ID: "a", Vector: []float32{1, 2}}}}, nil
	}}
	page, err := New(ms).SearchKNN(context.Background(), testTable(t), []float32{1, 2}, filter.Expression{}, 1, true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Results[0].Vector()) != 2 {
		t.Errorf("vector = %v", page.Results[0].Vector())
	}
}

func TestSearchKNN_TableNotFound(t *testing.T) {
	ms := &mockStore{searchFn: func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		return nil, db.ErrTableNotFound
	}}
	_, err := New(ms).SearchKNN(context.Background(), testTable(t), []float32{1, 0}, filter.Expression{}, 1, false, false)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
