package db

import (
	"context"
	"errors"
	"time"

	"github.com/kailas-cloud/vecstore/internal/metrics"
)

// ObservedStore decorates a Store with Prometheus operation metrics.
type ObservedStore struct {
	Store
	backend string
}

// Observe wraps s so every operation is counted and timed under backend.
func Observe(s Store, backend string) *ObservedStore {
	metrics.RegisterStoreMetrics()
	return &ObservedStore{Store: s, backend: backend}
}

// Backend returns the backend label.
func (o *ObservedStore) Backend() string { return o.backend }

// Unwrap returns the decorated store.
func (o *ObservedStore) Unwrap() Store { return o.Store }

func (o *ObservedStore) observe(op string, start time.Time, err error) {
	metrics.ObserveStoreOp(o.backend, op, start, err)
}

// CreateDataset records OpCreateDataset.
func (o *ObservedStore) CreateDataset(ctx context.Context, def *DatasetDefinition) error {
	start := time.Now()
	err := o.Store.CreateDataset(ctx, def)
	o.observe(OpCreateDataset, start, ignoreExpected(err))
	return err
}

// GetDataset records OpGetDataset.
func (o *ObservedStore) GetDataset(ctx context.Context, name string) (*DatasetInfo, error) {
	start := time.Now()
	info, err := o.Store.GetDataset(ctx, name)
	o.observe(OpGetDataset, start, ignoreExpected(err))
	return info, err
}

// CreateTable records OpCreateTable.
func (o *ObservedStore) CreateTable(ctx context.Context, def *TableDefinition) error {
	start := time.Now()
	err := o.Store.CreateTable(ctx, def)
	o.observe(OpCreateTable, start, ignoreExpected(err))
	return err
}

// GetTable records OpGetTable.
func (o *ObservedStore) GetTable(ctx context.Context, ref TableRef) (*TableInfo, error) {
	start := time.Now()
	info, err := o.Store.GetTable(ctx, ref)
	o.observe(OpGetTable, start, ignoreExpected(err))
	return info, err
}

// CreateVectorIndex records OpCreateIndex.
func (o *ObservedStore) CreateVectorIndex(ctx context.Context, def *VectorIndexDefinition) (string, error) {
	start := time.Now()
	jobID, err := o.Store.CreateVectorIndex(ctx, def)
	o.observe(OpCreateIndex, start, err)
	return jobID, err
}

// InsertRows records OpInsert and the number of rows written.
func (o *ObservedStore) InsertRows(ctx context.Context, ref TableRef, rows []Row) (*WriteResult, error) {
	start := time.Now()
	res, err := o.Store.InsertRows(ctx, ref, rows)
	o.observe(OpInsert, start, err)
	if err == nil {
		metrics.StoreRowsWrittenTotal.WithLabelValues(o.backend).Add(float64(res.Affected))
	}
	return res, err
}

// DeleteRows records OpDelete.
func (o *ObservedStore) DeleteRows(ctx context.Context, ref TableRef, ids []string) (*WriteResult, error) {
	start := time.Now()
	res, err := o.Store.DeleteRows(ctx, ref, ids)
	o.observe(OpDelete, start, err)
	return res, err
}

// SearchKNN records OpSearch and the result count.
func (o *ObservedStore) SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error) {
	start := time.Now()
	res, err := o.Store.SearchKNN(ctx, q)
	o.observe(OpSearch, start, err)
	if err == nil {
		metrics.SearchResultsReturned.WithLabelValues(o.backend).Observe(float64(len(res.Entries)))
	}
	return res, err
}

// JobStatus records OpJobStatus.
func (o *ObservedStore) JobStatus(ctx context.Context, jobID, location string) (*JobStatus, error) {
	start := time.Now()
	st, err := o.Store.JobStatus(ctx, jobID, location)
	o.observe(OpJobStatus, start, ignoreExpected(err))
	return st, err
}

// ignoreExpected hides lookups that legitimately miss from the error counter.
func ignoreExpected(err error) error {
	for _, expected := range []error{
		ErrDatasetNotFound, ErrDatasetExists, ErrTableNotFound, ErrTableExists, ErrJobNotFound,
	} {
		if errors.Is(err, expected) {
			return nil
		}
	}
	return err
}
