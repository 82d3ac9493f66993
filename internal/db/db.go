package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/vecstore/internal/domain/distance"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces
type Store interface {
	Pinger
	DatasetManager
	TableManager
	RowWriter
	Searcher
	JobReader
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatasetManager provides dataset lifecycle operations.
type DatasetManager interface {
	CreateDataset(ctx context.Context, def *DatasetDefinition) error
	GetDataset(ctx context.Context, name string) (*DatasetInfo, error)
	DeleteDataset(ctx context.Context, name string) error
}

// TableManager provides vector table lifecycle operations.
type TableManager interface {
	CreateTable(ctx context.Context, def *TableDefinition) error
	GetTable(ctx context.Context, ref TableRef) (*TableInfo, error)
	DropTable(ctx context.Context, ref TableRef) error
	CreateVectorIndex(ctx context.Context, def *VectorIndexDefinition) (string, error)
}

// RowWriter stores and removes table rows.
type RowWriter interface {
	InsertRows(ctx context.Context, ref TableRef, rows []Row) (*WriteResult, error)
	DeleteRows(ctx context.Context, ref TableRef, ids []string) (*WriteResult, error)
}

// Searcher provides nearest-neighbour search over a table.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// JobReader looks up statistics of a finished or running backend job.
type JobReader interface {
	JobStatus(ctx context.Context, jobID, location string) (*JobStatus, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// TableRef identifies a table inside a dataset.
type TableRef struct {
	Dataset string
	Table   string
	// Location pins jobs to the table's region; empty uses the store default.
	Location string
}

// String renders dataset.table.
func (r TableRef) String() string { return r.Dataset + "." + r.Table }

// DatasetDefinition is the input for CreateDataset.
type DatasetDefinition struct {
	Name        string
	Location    string
	Description string
}

// DatasetInfo is what a backend reports about an existing dataset.
type DatasetInfo struct {
	Name        string
	Location    string
	Description string
	CreatedAt   time.Time
}

// FieldType is the index type of a filterable metadata field.
type FieldType string

// Field types.
const (
	FieldTag     FieldType = "tag"
	FieldNumeric FieldType = "numeric"
)

// FieldDef declares a filterable metadata key.
type FieldDef struct {
	Name string
	Type FieldType
}

// TableDefinition is the input for CreateTable.
type TableDefinition struct {
	Ref         TableRef
	VectorDim   int
	Distance    distance.Strategy
	Fields      []FieldDef
	Description string
}

// TableInfo is what a backend reports about an existing table.
type TableInfo struct {
	Ref       TableRef
	VectorDim int
	Distance  distance.Strategy
	Fields    []FieldDef
	Rows      int64
	Location  string
	CreatedAt time.Time
}

// VectorIndexDefinition is the input for CreateVectorIndex.
type VectorIndexDefinition struct {
	Ref      TableRef
	Name     string
	Distance distance.Strategy
	// NumLists is the IVF partition count; zero lets the backend choose.
	NumLists int
}

// Row is a single stored text with its embedding.
type Row struct {
	ID       string
	Content  string
	Metadata map[string]any
	Vector   []float32
}

// WriteResult reports the outcome of a write.
type WriteResult struct {
	JobID    string
	Affected int64
}

// JobStatus is a backend-neutral job snapshot.
type JobStatus struct {
	ID                  string
	Location            string
	Type                string
	State               string
	CreatedAt           time.Time
	StartedAt           time.Time
	EndedAt             time.Time
	TotalBytesProcessed int64
	TotalBytesBilled    int64
	SlotMillis          int64
	CacheHit            bool
	InputRows           int64
	OutputRows          int64
	ErrorMessage        string
}

// Job types reported in JobStatus.Type.
const (
	JobTypeQuery = "query"
	JobTypeLoad  = "load"
)

// Job states reported in JobStatus.State.
const (
	JobStatePending = "PENDING"
	JobStateRunning = "RUNNING"
	JobStateDone    = "DONE"
)
