package bigquery

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/kailas-cloud/vecstore/internal/db"
)

type searchRow struct {
	DocID     string              `bigquery:"doc_id"`
	Content   bigquery.NullString `bigquery:"content"`
	Metadata  bigquery.NullString `bigquery:"metadata"`
	Distance  float64             `bigquery:"distance"`
	Embedding []float64           `bigquery:"embedding"`
}

// SearchKNN runs VECTOR_SEARCH and returns hits in ascending distance with
// the query job ID.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	sql, params, err := buildSearchSQL(s.fqn(q.Table), q)
	if err != nil {
		return nil, err
	}

	query := s.client.Query(sql)
	query.Parameters = params
	query.Location = s.locationOr(cmp.Or(q.Location, q.Table.Location))

	job, err := query.Run(ctx)
	if err != nil {
		return nil, s.searchErr(err)
	}
	it, err := job.Read(ctx)
	if err != nil {
		return nil, s.searchErr(err)
	}

	entries := make([]db.SearchEntry, 0, q.K)
	for {
		var row searchRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, s.searchErr(err)
		}
		entry, err := row.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return &db.SearchResult{JobID: job.ID(), Entries: entries}, nil
}

func (r searchRow) toEntry() (db.SearchEntry, error) {
	e := db.SearchEntry{
		ID:       r.DocID,
		Content:  r.Content.StringVal,
		Distance: r.Distance,
		Vector:   toFloat32(r.Embedding),
	}
	if r.Metadata.Valid && r.Metadata.StringVal != "" && r.Metadata.StringVal != "null" {
		if err := json.Unmarshal([]byte(r.Metadata.StringVal), &e.Metadata); err != nil {
			return db.SearchEntry{}, fmt.Errorf("row %s: decode metadata: %w", r.DocID, err)
		}
	}
	return e, nil
}

func (s *Store) searchErr(err error) error {
	if isNotFound(err) {
		return db.ErrTableNotFound
	}
	return &db.Error{Op: db.OpSearch, Err: err}
}
