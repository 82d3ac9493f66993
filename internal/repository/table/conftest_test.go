package table

import (
	"context"
	"testing"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain/distance"
	domtbl "github.com/kailas-cloud/vecstore/internal/domain/table"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createDatasetFn func(ctx context.Context, def *db.DatasetDefinition) error
	getDatasetFn    func(ctx context.Context, name string) (*db.DatasetInfo, error)
	deleteDatasetFn func(ctx context.Context, name string) error
	createTableFn   func(ctx context.Context, def *db.TableDefinition) error
	getTableFn      func(ctx context.Context, ref db.TableRef) (*db.TableInfo, error)
	dropTableFn     func(ctx context.Context, ref db.TableRef) error
	createIndexFn   func(ctx context.Context, def *db.VectorIndexDefinition) (string, error)
}

func (m *mockStore) CreateDataset(ctx context.Context, def *db.DatasetDefinition) error {
	if m.createDatasetFn != nil {
		return m.createDatasetFn(ctx, def)
	}
	return nil
}

func (m *mockStore) GetDataset(ctx context.Context, name string) (*db.DatasetInfo, error) {
	if m.getDatasetFn != nil {
		return m.getDatasetFn(ctx, name)
	}
	return nil, db.ErrDatasetNotFound
}

func (m *mockStore) DeleteDataset(ctx context.Context, name string) error {
	if m.deleteDatasetFn != nil {
		return m.deleteDatasetFn(ctx, name)
	}
	return nil
}

func (m *mockStore) CreateTable(ctx context.Context, def *db.TableDefinition) error {
	if m.createTableFn != nil {
		return m.createTableFn(ctx, def)
	}
	return nil
}

func (m *mockStore) GetTable(ctx context.Context, ref db.TableRef) (*db.TableInfo, error) {
	if m.getTableFn != nil {
		return m.getTableFn(ctx, ref)
	}
	return nil, db.ErrTableNotFound
}

func (m *mockStore) DropTable(ctx context.Context, ref db.TableRef) error {
	if m.dropTableFn != nil {
		return m.dropTableFn(ctx, ref)
	}
	return nil
}

func (m *mockStore) CreateVectorIndex(ctx context.Context, def *db.VectorIndexDefinition) (string, error) {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return "", nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func testTable(t *testing.T) domtbl.Table {
	t.Helper()
	tbl, err := domtbl.New("vector_search", "doc_and_vectors", 768, distance.Euclidean, []domtbl.Field{
		domtbl.ReconstructField("len", domtbl.FieldNumeric),
		domtbl.ReconstructField("kind", domtbl.FieldTag),
	})
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	return tbl
}
