package vecstore

import (
	"time"

	"github.com/kailas-cloud/vecstore/internal/domain/distance"
	"github.com/kailas-cloud/vecstore/internal/domain/table"
)

// DistanceStrategy is the metric a VectorStore ranks results by.
// It is fixed when the store's table is created.
type DistanceStrategy string

// Distance strategies.
const (
	Euclidean  DistanceStrategy = DistanceStrategy(distance.Euclidean)
	Cosine     DistanceStrategy = DistanceStrategy(distance.Cosine)
	DotProduct DistanceStrategy = DistanceStrategy(distance.DotProduct)
)

// FieldType is how a metadata key is indexed by schema-bound backends.
type FieldType string

// Field types.
const (
	FieldTag     FieldType = FieldType(table.FieldTag)
	FieldNumeric FieldType = FieldType(table.FieldNumeric)
)

// FieldInfo declares a filterable metadata key.
type FieldInfo struct {
	Name string
	Type FieldType
}

// Document is a text with metadata. An empty ID is generated on insert.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]any
	Vector   []float32
}

// WriteResult reports an ingestion.
type WriteResult struct {
	IDs    []string
	JobIDs []string
	// Tokens is the number of embedding tokens the write consumed.
	Tokens int
}

// SearchResult is one hit. Lower Distance is closer.
type SearchResult struct {
	ID       string
	Content  string
	Metadata map[string]any
	Distance float64
	Vector   []float32
}

// SearchPage is an ordered result list plus the backend job that produced it.
type SearchPage struct {
	Results []SearchResult
	JobID   string
	Tokens  int
}

// DatasetInfo describes a dataset.
type DatasetInfo struct {
	Name        string
	Location    string
	Description string
}

// TableInfo describes the table behind a VectorStore.
type TableInfo struct {
	Dataset   string
	Table     string
	VectorDim int
	Distance  DistanceStrategy
	Fields    []FieldInfo
	Rows      int64
	Location  string
}

// JobKind is the category of a backend job.
type JobKind string

// Job kinds.
const (
	JobQuery   JobKind = "query"
	JobLoad    JobKind = "load"
	JobUnknown JobKind = "unknown"
)

// JobStats is the statistics of one backend job.
type JobStats struct {
	ID                  string
	Kind                JobKind
	State               string
	CreatedAt           time.Time
	StartedAt           time.Time
	EndedAt             time.Time
	Duration            time.Duration
	TotalBytesProcessed int64
	TotalBytesBilled    int64
	SlotMillis          int64
	CacheHit            bool
	InputRows           int64
	OutputRows          int64
	Error               string
}

// Done reports whether the job reached a terminal state.
func (s JobStats) Done() bool { return s.State == "DONE" }

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}

// UsagePeriod is the budget window of a usage report.
type UsagePeriod string

// Usage periods.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
)

// UsageReport is the embedding token budget for one period.
// Limit and Remaining are -1 when the period is unlimited.
type UsageReport struct {
	Period      UsagePeriod
	PeriodStart time.Time
	PeriodEnd   time.Time
	Used        int64
	Limit       int64
	Remaining   int64
	Exhausted   bool
}
