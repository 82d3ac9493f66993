package db

import (
	"github.com/kailas-cloud/vecstore/internal/domain/distance"
	"github.com/kailas-cloud/vecstore/internal/domain/search/filter"
)

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	Table    TableRef
	Vector   []float32
	K        int
	Filters  filter.Expression
	Distance distance.Strategy
	// Fields are the declared filter fields of the table; schema-bound
	// backends need them to pick tag vs numeric syntax.
	Fields        []FieldDef
	IncludeVector bool
	BruteForce    bool
	Location      string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	JobID   string
	Entries []SearchEntry
}

// SearchEntry is a single row hit. Lower Distance is closer.
type SearchEntry struct {
	ID       string
	Content  string
	Metadata map[string]any
	Distance float64
	Vector   []float32
}
