// Package memory is an in-process db.Store for tests, demos and small corpora.
// Search is exact: every row is scored against the query.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain/distance"
)

// Compile-time checks.
var (
	_ db.Store   = (*Store)(nil)
	_ db.KVStore = (*Store)(nil)
)

type dataset struct {
	info   db.DatasetInfo
	tables map[string]*table
}

type table struct {
	info db.TableInfo
	rows map[string]db.Row
}

type kvEntry struct {
	value   []byte
	expires time.Time
}

// JobTTL is how long job records stay readable.
const JobTTL = 24 * time.Hour

// Store keeps datasets, rows, jobs and KV entries in maps guarded by one RWMutex.
type Store struct {
	mu       sync.RWMutex
	location string
	datasets map[string]*dataset
	jobs     map[string]*db.JobStatus
	jobOrder []string // job ids, oldest first
	kv       map[string]kvEntry
	now      func() time.Time
}

// NewStore creates an empty store. location is reported for datasets created without one.
func NewStore(location string) *Store {
	if location == "" {
		location = "local"
	}
	return &Store{
		location: location,
		datasets: make(map[string]*dataset),
		jobs:     make(map[string]*db.JobStatus),
		kv:       make(map[string]kvEntry),
		now:      time.Now,
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// CreateDataset registers a dataset.
func (s *Store) CreateDataset(_ context.Context, def *db.DatasetDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[def.Name]; ok {
		return db.ErrDatasetExists
	}
	location := def.Location
	if location == "" {
		location = s.location
	}
	s.datasets[def.Name] = &dataset{
		info: db.DatasetInfo{
			Name:        def.Name,
			Location:    location,
			Description: def.Description,
			CreatedAt:   s.now(),
		},
		tables: make(map[string]*table),
	}
	return nil
}

// GetDataset returns dataset metadata.
func (s *Store) GetDataset(_ context.Context, name string) (*db.DatasetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.datasets[name]
	if !ok {
		return nil, db.ErrDatasetNotFound
	}
	info := ds.info
	return &info, nil
}

// DeleteDataset removes a dataset with all its tables.
func (s *Store) DeleteDataset(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[name]; !ok {
		return db.ErrDatasetNotFound
	}
	delete(s.datasets, name)
	return nil
}

// CreateTable registers an empty table.
func (s *Store) CreateTable(_ context.Context, def *db.TableDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, ok := s.datasets[def.Ref.Dataset]
	if !ok {
		return db.ErrDatasetNotFound
	}
	if _, ok := ds.tables[def.Ref.Table]; ok {
		return db.ErrTableExists
	}
	strategy := def.Distance
	if strategy == "" {
		strategy = distance.Euclidean
	}
	ds.tables[def.Ref.Table] = &table{
		info: db.TableInfo{
			Ref:       def.Ref,
			VectorDim: def.VectorDim,
			Distance:  strategy,
			Fields:    slices.Clone(def.Fields),
			Location:  ds.info.Location,
			CreatedAt: s.now(),
		},
		rows: make(map[string]db.Row),
	}
	return nil
}

// GetTable returns table metadata with the current row count.
func (s *Store) GetTable(_ context.Context, ref db.TableRef) (*db.TableInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.table(ref)
	if err != nil {
		return nil, err
	}
	info := t.info
	info.Fields = slices.Clone(t.info.Fields)
	info.Rows = int64(len(t.rows))
	return &info, nil
}

// DropTable removes a table.
func (s *Store) DropTable(_ context.Context, ref db.TableRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.table(ref); err != nil {
		return err
	}
	delete(s.datasets[ref.Dataset].tables, ref.Table)
	return nil
}

// CreateVectorIndex is a no-op: search is always exact.
func (s *Store) CreateVectorIndex(_ context.Context, def *db.VectorIndexDefinition) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.table(def.Ref); err != nil {
		return "", err
	}
	return "", nil
}

// InsertRows upserts rows by ID.
func (s *Store) InsertRows(_ context.Context, ref db.TableRef, rows []db.Row) (*db.WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	t, err := s.table(ref)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if len(r.Vector) != t.info.VectorDim {
			return nil, &db.Error{
				Op:  db.OpInsert,
				Err: fmt.Errorf("row %s: vector has %d dimensions, table has %d", r.ID, len(r.Vector), t.info.VectorDim),
			}
		}
	}
	for _, r := range rows {
		t.rows[r.ID] = db.Row{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: maps.Clone(r.Metadata),
			Vector:   slices.Clone(r.Vector),
		}
	}

	n := int64(len(rows))
	id := s.recordJob(db.JobTypeLoad, started, n, n)
	return &db.WriteResult{JobID: id, Affected: n}, nil
}

// DeleteRows removes rows by ID. Missing IDs are not an error.
func (s *Store) DeleteRows(_ context.Context, ref db.TableRef, ids []string) (*db.WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	t, err := s.table(ref)
	if err != nil {
		return nil, err
	}
	var deleted int64
	for _, id := range ids {
		if _, ok := t.rows[id]; ok {
			delete(t.rows, id)
			deleted++
		}
	}
	jobID := s.recordJob(db.JobTypeQuery, started, int64(len(ids)), deleted)
	return &db.WriteResult{JobID: jobID, Affected: deleted}, nil
}

// SearchKNN scores every row passing the filter and returns the K closest.
// Ties are broken by row ID so results are deterministic.
func (s *Store) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	t, err := s.table(q.Table)
	if err != nil {
		return nil, err
	}
	if len(q.Vector) != t.info.VectorDim {
		return nil, &db.Error{
			Op:  db.OpSearch,
			Err: fmt.Errorf("query vector has %d dimensions, table has %d", len(q.Vector), t.info.VectorDim),
		}
	}

	strategy := q.Distance
	if strategy == "" {
		strategy = t.info.Distance
	}

	entries := make([]db.SearchEntry, 0, len(t.rows))
	for _, r := range t.rows {
		if !q.Filters.Matches(r.Metadata) {
			continue
		}
		e := db.SearchEntry{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: maps.Clone(r.Metadata),
			Distance: strategy.Compute(q.Vector, r.Vector),
		}
		if q.IncludeVector {
			e.Vector = slices.Clone(r.Vector)
		}
		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(a, b db.SearchEntry) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(entries) > q.K {
		entries = entries[:q.K]
	}

	jobID := s.recordJob(db.JobTypeQuery, started, int64(len(t.rows)), int64(len(entries)))
	return &db.SearchResult{JobID: jobID, Entries: entries}, nil
}

// JobStatus returns a recorded job.
func (s *Store) JobStatus(_ context.Context, jobID, _ string) (*db.JobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.jobs[jobID]
	if !ok || s.now().Sub(st.EndedAt) > JobTTL {
		return nil, db.ErrJobNotFound
	}
	out := *st
	return &out, nil
}

// table must be called with s.mu held.
func (s *Store) table(ref db.TableRef) (*table, error) {
	ds, ok := s.datasets[ref.Dataset]
	if !ok {
		return nil, db.ErrDatasetNotFound
	}
	t, ok := ds.tables[ref.Table]
	if !ok {
		return nil, db.ErrTableNotFound
	}
	return t, nil
}

// recordJob must be called with s.mu write-locked. Records older than
// JobTTL are dropped on the way.
func (s *Store) recordJob(kind string, started time.Time, in, out int64) string {
	s.pruneJobs()
	id := "job_" + uuid.NewString()
	s.jobOrder = append(s.jobOrder, id)
	s.jobs[id] = &db.JobStatus{
		ID:         id,
		Location:   s.location,
		Type:       kind,
		State:      db.JobStateDone,
		CreatedAt:  started,
		StartedAt:  started,
		EndedAt:    s.now(),
		InputRows:  in,
		OutputRows: out,
	}
	return id
}

func (s *Store) pruneJobs() {
	cutoff := s.now().Add(-JobTTL)
	n := 0
	for _, id := range s.jobOrder {
		if st := s.jobs[id]; st != nil && !st.EndedAt.Before(cutoff) {
			break
		}
		delete(s.jobs, id)
		n++
	}
	s.jobOrder = s.jobOrder[n:]
}
