package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecstore/internal/domain"
	domds "github.com/kailas-cloud/vecstore/internal/domain/dataset"
	"github.com/kailas-cloud/vecstore/internal/domain/table"
)

// Service makes datasets, tables and vector indexes exist, idempotently.
type Service struct {
	repo Repository
}

// New creates a dataset service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureDataset creates ds unless it already exists. Reports whether it was created.
func (s *Service) EnsureDataset(ctx context.Context, ds domds.Dataset) (bool, error) {
	err := s.repo.CreateDataset(ctx, ds)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrAlreadyExists):
		return false, nil
	default:
		return false, fmt.Errorf("ensure dataset: %w", err)
	}
}

// GetDataset returns a dataset by name.
func (s *Service) GetDataset(ctx context.Context, name string) (domds.Dataset, error) {
	ds, err := s.repo.GetDataset(ctx, name)
	if err != nil {
		return domds.Dataset{}, fmt.Errorf("get dataset: %w", err)
	}
	return ds, nil
}

// EnsureTable returns the stored table matching want, creating it when absent.
//
// A table created by this module must agree with want on dimension and
// distance strategy. A foreign table without stored settings adopts want's.
func (s *Service) EnsureTable(ctx context.Context, want table.Table, description string) (table.Table, error) {
	snap, err := s.repo.Get(ctx, want.Ref())
	if errors.Is(err, domain.ErrNotFound) {
		if err := s.repo.CreateTable(ctx, want, description); err != nil {
			if !errors.Is(err, domain.ErrAlreadyExists) {
				return table.Table{}, fmt.Errorf("ensure table: %w", err)
			}
			// lost a creation race; re-read below
		} else {
			return want, nil
		}
		snap, err = s.repo.Get(ctx, want.Ref())
	}
	if err != nil {
		return table.Table{}, fmt.Errorf("ensure table: %w", err)
	}
	return reconcile(want, snap.Table)
}

// reconcile checks want against the stored table. The result always carries
// the stored location.
func reconcile(want, stored table.Table) (table.Table, error) {
	if stored.VectorDim() == 0 {
		return want.WithLocation(stored.Location()), nil
	}
	if stored.VectorDim() != want.VectorDim() {
		return table.Table{}, fmt.Errorf("table %s: %w", want.Ref(),
			domain.NewDimensionError(stored.VectorDim(), want.VectorDim()))
	}
	if stored.Strategy() != want.Strategy() {
		return table.Table{}, fmt.Errorf("table %s uses %s, requested %s: %w",
			want.Ref(), stored.Strategy(), want.Strategy(), domain.ErrSchemaMismatch)
	}
	if len(want.Fields()) > 0 {
		return want.WithLocation(stored.Location()), nil
	}
	return stored, nil
}

// Describe returns the stored table with its current row count.
func (s *Service) Describe(ctx context.Context, ref table.Ref) (table.Snapshot, error) {
	snap, err := s.repo.Get(ctx, ref)
	if err != nil {
		return table.Snapshot{}, fmt.Errorf("describe table: %w", err)
	}
	return snap, nil
}

// EnsureVectorIndex creates the ANN index once the table holds at least minRows rows.
// Below the threshold searches stay exact and nothing is created.
// Returns the index job ID and whether creation was requested.
func (s *Service) EnsureVectorIndex(ctx context.Context, tbl table.Table, minRows int64, numLists int) (string, bool, error) {
	snap, err := s.repo.Get(ctx, tbl.Ref())
	if err != nil {
		return "", false, fmt.Errorf("ensure vector index: %w", err)
	}
	if snap.Rows < minRows {
		return "", false, nil
	}
	jobID, err := s.repo.CreateVectorIndex(ctx, tbl, numLists)
	if err != nil {
		return jobID, false, fmt.Errorf("ensure vector index: %w", err)
	}
	return jobID, true, nil
}
