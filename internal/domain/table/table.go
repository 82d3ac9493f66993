// Package table holds the vector table aggregate a store handle is bound to.
package table

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/vecstore/internal/domain/distance"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxFields caps declared filter fields.
const MaxFields = 64

// Ref identifies a table inside a dataset. Location is the region jobs
// against the table run in; empty means the client default.
type Ref struct {
	Dataset  string
	Table    string
	Location string
}

// String renders dataset.table.
func (r Ref) String() string { return r.Dataset + "." + r.Table }

// Table is an immutable vector table descriptor.
type Table struct {
	ref       Ref
	vectorDim int
	strategy  distance.Strategy
	fields    []Field
}

// New validates and creates a Table. An empty strategy means Euclidean.
func New(datasetName, name string, vectorDim int, strategy distance.Strategy, fields []Field) (Table, error) {
	if datasetName == "" {
		return Table{}, fmt.Errorf("dataset name is required")
	}
	if name == "" {
		return Table{}, fmt.Errorf("table name is required")
	}
	if len(name) > 1024 {
		return Table{}, fmt.Errorf("table name too long (max 1024)")
	}
	if !nameRegex.MatchString(name) {
		return Table{}, fmt.Errorf("table name must be alphanumeric with underscores and hyphens")
	}
	if vectorDim <= 0 {
		return Table{}, fmt.Errorf("vector dimension must be positive")
	}
	if strategy == "" {
		strategy = distance.Euclidean
	}
	if !strategy.IsValid() {
		return Table{}, fmt.Errorf("invalid distance strategy %q", strategy)
	}
	if len(fields) > MaxFields {
		return Table{}, fmt.Errorf("too many fields (max %d)", MaxFields)
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name()] {
			return Table{}, fmt.Errorf("duplicate field name: %s", f.Name())
		}
		seen[f.Name()] = true
	}

	return Table{
		ref:       Ref{Dataset: datasetName, Table: name},
		vectorDim: vectorDim,
		strategy:  strategy,
		fields:    fields,
	}, nil
}

// Reconstruct creates a Table without validation (storage hydration).
// vectorDim may be zero for tables created outside this module.
func Reconstruct(ref Ref, vectorDim int, strategy distance.Strategy, fields []Field) Table {
	return Table{ref: ref, vectorDim: vectorDim, strategy: strategy, fields: fields}
}

// Ref returns the dataset/table pair.
func (t Table) Ref() Ref { return t.ref }

// Location returns the region the table lives in, if known.
func (t Table) Location() string { return t.ref.Location }

// WithLocation returns a copy of t pinned to loc.
func (t Table) WithLocation(loc string) Table {
	t.ref.Location = loc
	return t
}

// VectorDim returns the embedding dimension.
func (t Table) VectorDim() int { return t.vectorDim }

// Strategy returns the distance strategy.
func (t Table) Strategy() distance.Strategy { return t.strategy }

// Fields returns the declared filter fields.
func (t Table) Fields() []Field { return t.fields }

// FieldByName looks up a declared field.
func (t Table) FieldByName(name string) (Field, bool) {
	for _, f := range t.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return Field{}, false
}

// Snapshot is a stored table descriptor plus its current row count.
type Snapshot struct {
	Table    Table
	Rows     int64
	Location string
}
