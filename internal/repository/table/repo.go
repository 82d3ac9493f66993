package table

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain"
	"github.com/kailas-cloud/vecstore/internal/domain/dataset"
	"github.com/kailas-cloud/vecstore/internal/domain/distance"
	domtbl "github.com/kailas-cloud/vecstore/internal/domain/table"
)

// store is the consumer interface for dataset and table lifecycle (ISP).
type store interface {
	CreateDataset(ctx context.Context, def *db.DatasetDefinition) error
	GetDataset(ctx context.Context, name string) (*db.DatasetInfo, error)
	DeleteDataset(ctx context.Context, name string) error
	CreateTable(ctx context.Context, def *db.TableDefinition) error
	GetTable(ctx context.Context, ref db.TableRef) (*db.TableInfo, error)
	DropTable(ctx context.Context, ref db.TableRef) error
	CreateVectorIndex(ctx context.Context, def *db.VectorIndexDefinition) (string, error)
}

// Repo implements usecase/dataset.Repository.
type Repo struct {
	store store
}

// New creates a table repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// CreateDataset creates the dataset. Returns domain.ErrAlreadyExists when present.
func (r *Repo) CreateDataset(ctx context.Context, ds dataset.Dataset) error {
	err := r.store.CreateDataset(ctx, &db.DatasetDefinition{
		Name:        ds.Name(),
		Location:    ds.Location(),
		Description: ds.Description(),
	})
	if err != nil {
		return mapErr(fmt.Sprintf("create dataset %s", ds.Name()), err)
	}
	return nil
}

// GetDataset returns a dataset by name.
func (r *Repo) GetDataset(ctx context.Context, name string) (dataset.Dataset, error) {
	info, err := r.store.GetDataset(ctx, name)
	if err != nil {
		return dataset.Dataset{}, mapErr(fmt.Sprintf("get dataset %s", name), err)
	}
	return dataset.Reconstruct(info.Name, info.Location, info.Description), nil
}

// DeleteDataset removes a dataset with all its tables.
func (r *Repo) DeleteDataset(ctx context.Context, name string) error {
	if err := r.store.DeleteDataset(ctx, name); err != nil {
		return mapErr(fmt.Sprintf("delete dataset %s", name), err)
	}
	return nil
}

// CreateTable creates a vector table.
func (r *Repo) CreateTable(ctx context.Context, tbl domtbl.Table, description string) error {
	err := r.store.CreateTable(ctx, &db.TableDefinition{
		Ref:         toRef(tbl.Ref()),
		VectorDim:   tbl.VectorDim(),
		Distance:    tbl.Strategy(),
		Fields:      toFieldDefs(tbl.Fields()),
		Description: description,
	})
	if err != nil {
		return mapErr(fmt.Sprintf("create table %s", tbl.Ref()), err)
	}
	return nil
}

// Get returns the stored table descriptor and row count.
func (r *Repo) Get(ctx context.Context, ref domtbl.Ref) (domtbl.Snapshot, error) {
	info, err := r.store.GetTable(ctx, toRef(ref))
	if err != nil {
		return domtbl.Snapshot{}, mapErr(fmt.Sprintf("get table %s", ref), err)
	}
	st := info.Distance
	if st == "" {
		st = distance.Euclidean
	}
	ref.Location = info.Location
	return domtbl.Snapshot{
		Table:    domtbl.Reconstruct(ref, info.VectorDim, st, fromFieldDefs(info.Fields)),
		Rows:     info.Rows,
		Location: info.Location,
	}, nil
}

// Drop deletes a table.
func (r *Repo) Drop(ctx context.Context, ref domtbl.Ref) error {
	if err := r.store.DropTable(ctx, toRef(ref)); err != nil {
		return mapErr(fmt.Sprintf("drop table %s", ref), err)
	}
	return nil
}

// CreateVectorIndex builds an ANN index over the embedding column and
// returns the backend job ID (empty when the backend indexes implicitly).
func (r *Repo) CreateVectorIndex(ctx context.Context, tbl domtbl.Table, numLists int) (string, error) {
	jobID, err := r.store.CreateVectorIndex(ctx, &db.VectorIndexDefinition{
		Ref:      toRef(tbl.Ref()),
		Distance: tbl.Strategy(),
		NumLists: numLists,
	})
	if err != nil {
		return jobID, mapErr(fmt.Sprintf("create vector index %s", tbl.Ref()), err)
	}
	return jobID, nil
}

// mapErr translates storage sentinels into domain errors.
func mapErr(op string, err error) error {
	switch {
	case errors.Is(err, db.ErrDatasetNotFound), errors.Is(err, db.ErrTableNotFound):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case errors.Is(err, db.ErrDatasetExists), errors.Is(err, db.ErrTableExists):
		return fmt.Errorf("%s: %w", op, domain.ErrAlreadyExists)
	case errors.Is(err, db.ErrSchemaMismatch):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrSchemaMismatch, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
