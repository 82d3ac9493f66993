package dataset

import (
	"context"

	domds "github.com/kailas-cloud/vecstore/internal/domain/dataset"
	"github.com/kailas-cloud/vecstore/internal/domain/table"
)

// Repository defines the storage contract for datasets and tables.
type Repository interface {
	CreateDataset(ctx context.Context, ds domds.Dataset) error
	GetDataset(ctx context.Context, name string) (domds.Dataset, error)
	CreateTable(ctx context.Context, tbl table.Table, description string) error
	Get(ctx context.Context, ref table.Ref) (table.Snapshot, error)
	CreateVectorIndex(ctx context.Context, tbl table.Table, numLists int) (string, error)
}
