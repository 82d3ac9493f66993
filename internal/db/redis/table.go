package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain/distance"
)

// HNSW build parameters for every table index.
const (
	hnswM              = 16
	hnswEFConstruction = 200
)

// tableMeta is the decoded table metadata hash.
type tableMeta struct {
	dim       int
	distance  distance.Strategy
	fields    []db.FieldDef
	createdAt time.Time
}

// CreateTable registers table metadata and creates its FT index.
func (s *Store) CreateTable(ctx context.Context, def *db.TableDefinition) error {
	exists, err := s.do(ctx, s.b().Exists().Key(datasetKey(def.Ref.Dataset)).Build()).AsInt64()
	if err != nil {
		return &db.Error{Op: db.OpCreateTable, Err: err}
	}
	if exists == 0 {
		return db.ErrDatasetNotFound
	}

	key := tableKey(def.Ref)
	created, err := s.do(ctx, s.b().Hsetnx().Key(key).Field("dim").Value(strconv.Itoa(def.VectorDim)).Build()).AsInt64()
	if err != nil {
		return &db.Error{Op: db.OpCreateTable, Err: err}
	}
	if created == 0 {
		return db.ErrTableExists
	}

	builder := NewIndex(indexName(def.Ref)).
		Prefix(rowPrefix(def.Ref)).
		Tag(fieldDocID)
	for _, f := range def.Fields {
		builder = builder.Field(f)
	}
	idx, err := builder.
		VectorHNSW(fieldVector, def.VectorDim, MetricFor(def.Distance), hnswM, hnswEFConstruction).
		Build()
	if err != nil {
		s.rollbackTable(ctx, key)
		return fmt.Errorf("build index: %w", err)
	}

	if err := s.createIndex(ctx, idx); err != nil {
		s.rollbackTable(ctx, key)
		return err
	}

	fieldsJSON, err := json.Marshal(def.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	cmd := s.b().Hset().Key(key).FieldValue().
		FieldValue("distance", string(def.Distance)).
		FieldValue("fields", string(fieldsJSON)).
		FieldValue("description", def.Description).
		FieldValue("created_at", s.now().UTC().Format(time.RFC3339Nano)).
		Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

func (s *Store) rollbackTable(ctx context.Context, key string) {
	_ = s.do(ctx, s.b().Del().Key(key).Build()).Error()
}

func (s *Store) createIndex(ctx context.Context, idx *IndexDefinition) error {
	args, err := buildCreateArgs(idx)
	if err != nil {
		return err
	}
	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrTableExists
		}
		return &db.Error{Op: db.OpFTCreate, Err: err}
	}
	return nil
}

// GetTable returns table metadata plus the indexed row count.
func (s *Store) GetTable(ctx context.Context, ref db.TableRef) (*db.TableInfo, error) {
	meta, err := s.tableMeta(ctx, ref)
	if err != nil {
		return nil, err
	}
	rows, err := s.rowCount(ctx, indexName(ref))
	if err != nil {
		return nil, err
	}
	return &db.TableInfo{
		Ref:       ref,
		VectorDim: meta.dim,
		Distance:  meta.distance,
		Fields:    meta.fields,
		Rows:      rows,
		Location:  s.location,
		CreatedAt: meta.createdAt,
	}, nil
}

func (s *Store) tableMeta(ctx context.Context, ref db.TableRef) (*tableMeta, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(tableKey(ref)).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	if len(m) == 0 {
		return nil, db.ErrTableNotFound
	}

	dim, err := strconv.Atoi(m["dim"])
	if err != nil {
		return nil, fmt.Errorf("table %s: corrupt dim %q", ref, m["dim"])
	}
	strategy := distance.Strategy(m["distance"])
	if strategy == "" {
		strategy = distance.Euclidean
	}
	var fields []db.FieldDef
	if raw := m["fields"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("table %s: corrupt fields: %w", ref, err)
		}
	}
	return &tableMeta{
		dim:       dim,
		distance:  strategy,
		fields:    fields,
		createdAt: parseTime(m["created_at"]),
	}, nil
}

// rowCount reads num_docs from FT.INFO.
func (s *Store) rowCount(ctx context.Context, index string) (int64, error) {
	raw, err := s.do(ctx, s.b().Arbitrary("FT.INFO").Args(index).Build()).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") {
			return 0, db.ErrTableNotFound
		}
		return 0, &db.Error{Op: db.OpFTInfo, Err: err}
	}
	return parseNumDocs(raw), nil
}

func parseNumDocs(raw []rueidis.RedisMessage) int64 {
	for i := 0; i+1 < len(raw); i += 2 {
		name, err := raw[i].ToString()
		if err != nil || name != "num_docs" {
			continue
		}
		if n, err := raw[i+1].AsInt64(); err == nil {
			return n
		}
		if str, err := raw[i+1].ToString(); err == nil {
			if f, err := strconv.ParseFloat(str, 64); err == nil {
				return int64(f)
			}
		}
	}
	return 0
}

// DropTable removes the FT index with its rows, then the table metadata.
func (s *Store) DropTable(ctx context.Context, ref db.TableRef) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(indexName(ref), "DD").Build()
	if err := s.do(ctx, cmd).Error(); err != nil && !isRedisErr(err, "unknown index name") {
		return &db.Error{Op: db.OpFTDrop, Err: err}
	}

	n, err := s.do(ctx, s.b().Del().Key(tableKey(ref)).Build()).AsInt64()
	if err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	if n == 0 {
		return db.ErrTableNotFound
	}
	return nil
}

// CreateVectorIndex is a no-op: every table carries an HNSW index from creation.
func (s *Store) CreateVectorIndex(ctx context.Context, def *db.VectorIndexDefinition) (string, error) {
	n, err := s.do(ctx, s.b().Exists().Key(tableKey(def.Ref)).Build()).AsInt64()
	if err != nil {
		return "", &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	if n == 0 {
		return "", db.ErrTableNotFound
	}
	return "", nil
}

// addFields extends the FT schema with newly seen metadata keys.
func (s *Store) addFields(ctx context.Context, ref db.TableRef, meta *tableMeta, added []db.FieldDef) error {
	index := indexName(ref)
	for _, f := range added {
		def := NewIndex(index).Field(f).def.Fields[0]
		args, err := buildAlterArgs(index, &def)
		if err != nil {
			return err
		}
		if err := s.do(ctx, s.b().Arbitrary("FT.ALTER").Args(args...).Build()).Error(); err != nil {
			if isRedisErr(err, "duplicate") {
				continue
			}
			return &db.Error{Op: db.OpFTAlter, Err: err}
		}
	}

	meta.fields = append(meta.fields, added...)
	fieldsJSON, err := json.Marshal(meta.fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	cmd := s.b().Hset().Key(tableKey(ref)).FieldValue().FieldValue("fields", string(fieldsJSON)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}
