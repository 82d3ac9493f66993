package bigquery

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain/distance"
)

// Column names of a vector table.
const (
	colDocID     = "doc_id"
	colContent   = "content"
	colMetadata  = "metadata"
	colEmbedding = "embedding"
)

// Table labels that carry store settings BigQuery has no column for.
const (
	labelDim      = "vecstore_dim"
	labelDistance = "vecstore_distance"
)

func tableSchema() bigquery.Schema {
	return bigquery.Schema{
		{Name: colDocID, Type: bigquery.StringFieldType, Required: true},
		{Name: colContent, Type: bigquery.StringFieldType},
		{Name: colMetadata, Type: bigquery.JSONFieldType},
		{Name: colEmbedding, Type: bigquery.FloatFieldType, Repeated: true},
	}
}

// CreateTable creates a vector table. Dimension and distance go into labels;
// metadata is a JSON column, so declared fields need no schema of their own.
func (s *Store) CreateTable(ctx context.Context, def *db.TableDefinition) error {
	labels := map[string]string{
		labelDim:      strconv.Itoa(def.VectorDim),
		labelDistance: strings.ToLower(string(def.Distance)),
	}

	md := &bigquery.TableMetadata{
		Schema:      tableSchema(),
		Labels:      labels,
		Description: def.Description,
	}
	if err := s.client.Dataset(def.Ref.Dataset).Table(def.Ref.Table).Create(ctx, md); err != nil {
		switch {
		case isConflict(err):
			return db.ErrTableExists
		case isNotFound(err):
			return db.ErrDatasetNotFound
		}
		return &db.Error{Op: db.OpCreateTable, Err: err}
	}
	return nil
}

// GetTable reads table metadata. Tables created outside this package report
// VectorDim 0 and the default distance.
func (s *Store) GetTable(ctx context.Context, ref db.TableRef) (*db.TableInfo, error) {
	md, err := s.client.Dataset(ref.Dataset).Table(ref.Table).Metadata(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, db.ErrTableNotFound
		}
		return nil, &db.Error{Op: db.OpGetTable, Err: err}
	}
	if err := checkSchema(md.Schema); err != nil {
		return nil, fmt.Errorf("table %s: %w", ref, err)
	}

	info := &db.TableInfo{
		Ref:       ref,
		Distance:  distance.Euclidean,
		Rows:      int64(md.NumRows), //nolint:gosec // row counts fit in int64
		Location:  md.Location,
		CreatedAt: md.CreationTime,
	}
	if dim, err := strconv.Atoi(md.Labels[labelDim]); err == nil {
		info.VectorDim = dim
	}
	if st, err := distance.Parse(md.Labels[labelDistance]); err == nil {
		info.Distance = st
	}
	return info, nil
}

func checkSchema(schema bigquery.Schema) error {
	cols := make(map[string]*bigquery.FieldSchema, len(schema))
	for _, f := range schema {
		cols[f.Name] = f
	}
	if f, ok := cols[colDocID]; !ok || f.Type != bigquery.StringFieldType {
		return fmt.Errorf("%w: %s STRING column missing", db.ErrSchemaMismatch, colDocID)
	}
	if f, ok := cols[colContent]; !ok || f.Type != bigquery.StringFieldType {
		return fmt.Errorf("%w: %s STRING column missing", db.ErrSchemaMismatch, colContent)
	}
	if f, ok := cols[colEmbedding]; !ok || !f.Repeated ||
		(f.Type != bigquery.FloatFieldType && f.Type != bigquery.NumericFieldType) {
		return fmt.Errorf("%w: %s must be ARRAY<FLOAT64>", db.ErrSchemaMismatch, colEmbedding)
	}
	if f, ok := cols[colMetadata]; ok && f.Type != bigquery.JSONFieldType {
		return fmt.Errorf("%w: %s must be JSON", db.ErrSchemaMismatch, colMetadata)
	}
	return nil
}

// DropTable deletes a table.
func (s *Store) DropTable(ctx context.Context, ref db.TableRef) error {
	if err := s.client.Dataset(ref.Dataset).Table(ref.Table).Delete(ctx); err != nil {
		if isNotFound(err) {
			return db.ErrTableNotFound
		}
		return &db.Error{Op: db.OpDropTable, Err: err}
	}
	return nil
}

// CreateVectorIndex runs CREATE VECTOR INDEX IF NOT EXISTS and returns the DDL job ID.
func (s *Store) CreateVectorIndex(ctx context.Context, def *db.VectorIndexDefinition) (string, error) {
	ddl, err := buildIndexDDL(s.fqn(def.Ref), def)
	if err != nil {
		return "", err
	}
	q := s.client.Query(ddl)
	q.Location = s.locationOr(def.Ref.Location)
	job, err := q.Run(ctx)
	if err != nil {
		return "", &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return job.ID(), &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	if err := status.Err(); err != nil {
		if isNotFound(err) {
			return job.ID(), db.ErrTableNotFound
		}
		return job.ID(), &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return job.ID(), nil
}
