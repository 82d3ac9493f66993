package redis

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain/search/filter"
)

// InsertRows upserts rows as hashes. Unseen scalar metadata keys are added
// to the FT schema first so they become filterable.
func (s *Store) InsertRows(ctx context.Context, ref db.TableRef, rows []db.Row) (*db.WriteResult, error) {
	started := s.now()
	meta, err := s.tableMeta(ctx, ref)
	if err != nil {
		return nil, err
	}

	if added := discoverFields(meta.fields, rows); len(added) > 0 {
		if err := s.addFields(ctx, ref, meta, added); err != nil {
			return nil, err
		}
	}
	types := fieldTypes(meta.fields)

	cmds := make(rueidis.Commands, 0, 2*len(rows))
	for i := range rows {
		fields, err := rowFields(&rows[i], types)
		if err != nil {
			return nil, err
		}
		key := rowKey(ref, rows[i].ID)
		cmds = append(cmds, s.b().Del().Key(key).Build())
		hset := s.b().Hset().Key(key).FieldValue()
		for k, v := range fields {
			hset = hset.FieldValue(k, v)
		}
		cmds = append(cmds, hset.Build())
	}

	if len(cmds) > 0 {
		for i, res := range s.client.DoMulti(ctx, cmds...) {
			if err := res.Error(); err != nil {
				return nil, &db.Error{Op: db.OpInsert, Err: fmt.Errorf("row %s: %w", rows[i/2].ID, err)}
			}
		}
	}

	n := int64(len(rows))
	jobID, err := s.recordJob(ctx, &db.JobStatus{
		Type:       db.JobTypeLoad,
		StartedAt:  started,
		InputRows:  n,
		OutputRows: n,
	})
	if err != nil {
		return nil, err
	}
	return &db.WriteResult{JobID: jobID, Affected: n}, nil
}

// DeleteRows removes rows by ID. Missing IDs are not an error.
func (s *Store) DeleteRows(ctx context.Context, ref db.TableRef, ids []string) (*db.WriteResult, error) {
	started := s.now()
	if _, err := s.tableMeta(ctx, ref); err != nil {
		return nil, err
	}

	var deleted int64
	if len(ids) > 0 {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = rowKey(ref, id)
		}
		n, err := s.do(ctx, s.b().Del().Key(keys...).Build()).AsInt64()
		if err != nil {
			return nil, &db.Error{Op: db.OpDelete, Err: err}
		}
		deleted = n
	}

	jobID, err := s.recordJob(ctx, &db.JobStatus{
		Type:       db.JobTypeQuery,
		StartedAt:  started,
		InputRows:  int64(len(ids)),
		OutputRows: deleted,
	})
	if err != nil {
		return nil, err
	}
	return &db.WriteResult{JobID: jobID, Affected: deleted}, nil
}

// discoverFields returns scalar metadata keys not yet in the schema, sorted by name.
// Numbers become NUMERIC fields, other scalars TAG fields.
func discoverFields(known []db.FieldDef, rows []db.Row) []db.FieldDef {
	seen := fieldTypes(known)
	var added []db.FieldDef
	for i := range rows {
		for k, v := range rows[i].Metadata {
			if _, ok := seen[k]; ok || !filter.ValidKey(k) {
				continue
			}
			val, err := filter.ValueOf(v)
			if err != nil {
				continue
			}
			ft := db.FieldTag
			if val.Kind() == filter.KindNumber {
				ft = db.FieldNumeric
			}
			seen[k] = ft
			added = append(added, db.FieldDef{Name: k, Type: ft})
		}
	}
	slices.SortFunc(added, func(a, b db.FieldDef) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return added
}

func fieldTypes(fields []db.FieldDef) map[string]db.FieldType {
	m := make(map[string]db.FieldType, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Type
	}
	return m
}

// rowFields renders a row as hash fields. Scalar metadata that does not fit
// its indexed type is kept only inside __metadata.
func rowFields(r *db.Row, types map[string]db.FieldType) (map[string]string, error) {
	metaJSON := []byte("{}")
	if len(r.Metadata) > 0 {
		var err error
		metaJSON, err = json.Marshal(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("row %s: encode metadata: %w", r.ID, err)
		}
	}

	fields := map[string]string{
		fieldDocID:    r.ID,
		fieldContent:  r.Content,
		fieldMetadata: string(metaJSON),
		fieldVector:   vectorToBytes(r.Vector),
	}
	for k, v := range r.Metadata {
		ft, ok := types[k]
		if !ok {
			continue
		}
		val, err := filter.ValueOf(v)
		if err != nil {
			continue
		}
		if ft == db.FieldNumeric {
			n, ok := numericText(val)
			if !ok {
				continue
			}
			fields[fieldPrefix+k] = n
			continue
		}
		fields[fieldPrefix+k] = val.Text()
	}
	return fields, nil
}

func numericText(v filter.Value) (string, bool) {
	switch v.Kind() {
	case filter.KindNumber:
		return v.Text(), true
	case filter.KindString:
		if _, err := strconv.ParseFloat(v.Text(), 64); err == nil {
			return v.Text(), true
		}
	}
	return "", false
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToVector(s string) []float32 {
	if len(s)%4 != 0 {
		return nil
	}
	out := make([]float32, len(s)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(s[i*4 : i*4+4])))
	}
	return out
}
