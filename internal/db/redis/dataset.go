package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecstore/internal/db"
)

// CreateDataset registers a dataset. Datasets are metadata-only namespaces here.
func (s *Store) CreateDataset(ctx context.Context, def *db.DatasetDefinition) error {
	key := datasetKey(def.Name)
	created, err := s.do(ctx, s.b().Hsetnx().Key(key).Field("name").Value(def.Name).Build()).AsInt64()
	if err != nil {
		return &db.Error{Op: db.OpCreateDataset, Err: err}
	}
	if created == 0 {
		return db.ErrDatasetExists
	}

	location := def.Location
	if location == "" {
		location = s.location
	}
	cmd := s.b().Hset().Key(key).FieldValue().
		FieldValue("location", location).
		FieldValue("description", def.Description).
		FieldValue("created_at", s.now().UTC().Format(time.RFC3339Nano)).
		Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpCreateDataset, Err: err}
	}
	return nil
}

// GetDataset returns dataset metadata or db.ErrDatasetNotFound.
func (s *Store) GetDataset(ctx context.Context, name string) (*db.DatasetInfo, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(datasetKey(name)).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpGetDataset, Err: err}
	}
	if len(m) == 0 {
		return nil, db.ErrDatasetNotFound
	}
	return &db.DatasetInfo{
		Name:        name,
		Location:    m["location"],
		Description: m["description"],
		CreatedAt:   parseTime(m["created_at"]),
	}, nil
}

// DeleteDataset drops every table of the dataset, then the dataset itself.
func (s *Store) DeleteDataset(ctx context.Context, name string) error {
	keys, err := s.scan(ctx, tablePattern(name))
	if err != nil {
		return err
	}
	for _, key := range keys {
		ref, ok := refFromTableKey(key)
		if !ok {
			continue
		}
		if err := s.DropTable(ctx, ref); err != nil && !errors.Is(err, db.ErrTableNotFound) {
			return fmt.Errorf("drop table %s: %w", ref, err)
		}
	}

	n, err := s.do(ctx, s.b().Del().Key(datasetKey(name)).Build()).AsInt64()
	if err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	if n == 0 {
		return db.ErrDatasetNotFound
	}
	return nil
}

// scan iterates keys matching a pattern.
func (s *Store) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(100).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
