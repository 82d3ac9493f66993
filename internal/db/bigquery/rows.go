package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/kailas-cloud/vecstore/internal/db"
)

// ndjsonRow is one line of a load job payload.
type ndjsonRow struct {
	DocID     string          `json:"doc_id"`
	Content   string          `json:"content"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Embedding []float32       `json:"embedding"`
}

// InsertRows upserts rows: existing ids are deleted by DML, then the batch
// is appended with a single NDJSON load job whose ID is returned.
//
// The two jobs are not atomic. If the load fails after the DELETE committed,
// the replaced rows are gone until the caller retries the same batch; readers
// may also observe the gap between the jobs.
func (s *Store) InsertRows(ctx context.Context, ref db.TableRef, rows []db.Row) (*db.WriteResult, error) {
	if len(rows) == 0 {
		return &db.WriteResult{}, nil
	}

	payload, err := encodeNDJSON(rows)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	if _, _, err := s.runDML(ctx, ref.Location, deleteSQL(s.fqn(ref)), idsParam(ids), db.OpInsert); err != nil {
		return nil, err
	}

	src := bigquery.NewReaderSource(bytes.NewReader(payload))
	src.SourceFormat = bigquery.JSON
	src.Schema = tableSchema()

	loader := s.client.Dataset(ref.Dataset).Table(ref.Table).LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteAppend
	loader.CreateDisposition = bigquery.CreateNever
	loader.Location = s.locationOr(ref.Location)

	job, err := loader.Run(ctx)
	if err != nil {
		return nil, s.writeErr(db.OpInsert, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, s.writeErr(db.OpInsert, err)
	}
	if err := status.Err(); err != nil {
		return nil, s.writeErr(db.OpInsert, err)
	}

	return &db.WriteResult{JobID: job.ID(), Affected: int64(len(rows))}, nil
}

// DeleteRows removes rows by id with a DML statement.
func (s *Store) DeleteRows(ctx context.Context, ref db.TableRef, ids []string) (*db.WriteResult, error) {
	if len(ids) == 0 {
		return &db.WriteResult{}, nil
	}
	jobID, affected, err := s.runDML(ctx, ref.Location, deleteSQL(s.fqn(ref)), idsParam(ids), db.OpDelete)
	if err != nil {
		return nil, err
	}
	return &db.WriteResult{JobID: jobID, Affected: affected}, nil
}

func (s *Store) runDML(
	ctx context.Context, location, sql string, params []bigquery.QueryParameter, op string,
) (string, int64, error) {
	q := s.client.Query(sql)
	q.Parameters = params
	q.Location = s.locationOr(location)

	job, err := q.Run(ctx)
	if err != nil {
		return "", 0, s.writeErr(op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return job.ID(), 0, s.writeErr(op, err)
	}
	if err := status.Err(); err != nil {
		return job.ID(), 0, s.writeErr(op, err)
	}

	var affected int64
	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			affected = qs.NumDMLAffectedRows
		}
	}
	return job.ID(), affected, nil
}

func (s *Store) writeErr(op string, err error) error {
	if isNotFound(err) {
		return db.ErrTableNotFound
	}
	return &db.Error{Op: op, Err: err}
}

func deleteSQL(table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s IN UNNEST(@ids)", table, colDocID)
}

func idsParam(ids []string) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{{Name: "ids", Value: ids}}
}

func encodeNDJSON(rows []db.Row) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		line := ndjsonRow{DocID: r.ID, Content: r.Content, Embedding: r.Vector}
		if len(r.Metadata) > 0 {
			meta, err := json.Marshal(r.Metadata)
			if err != nil {
				return nil, fmt.Errorf("row %s: encode metadata: %w", r.ID, err)
			}
			line.Metadata = meta
		}
		// Encode terminates each value with '\n'
		if err := enc.Encode(line); err != nil {
			return nil, fmt.Errorf("row %s: %w", r.ID, err)
		}
	}
	return buf.Bytes(), nil
}
