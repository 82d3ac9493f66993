package bigquery

import (
	"context"

	"cloud.google.com/go/bigquery"

	"github.com/kailas-cloud/vecstore/internal/db"
)

// CreateDataset creates a BigQuery dataset in the requested location.
func (s *Store) CreateDataset(ctx context.Context, def *db.DatasetDefinition) error {
	md := &bigquery.DatasetMetadata{
		Location:    s.locationOr(def.Location),
		Description: def.Description,
	}
	if err := s.client.Dataset(def.Name).Create(ctx, md); err != nil {
		if isConflict(err) {
			return db.ErrDatasetExists
		}
		return &db.Error{Op: db.OpCreateDataset, Err: err}
	}
	return nil
}

// GetDataset fetches dataset metadata.
func (s *Store) GetDataset(ctx context.Context, name string) (*db.DatasetInfo, error) {
	md, err := s.client.Dataset(name).Metadata(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, db.ErrDatasetNotFound
		}
		return nil, &db.Error{Op: db.OpGetDataset, Err: err}
	}
	return &db.DatasetInfo{
		Name:        name,
		Location:    md.Location,
		Description: md.Description,
		CreatedAt:   md.CreationTime,
	}, nil
}

// DeleteDataset removes a dataset and every table in it.
func (s *Store) DeleteDataset(ctx context.Context, name string) error {
	if err := s.client.Dataset(name).DeleteWithContents(ctx); err != nil {
		if isNotFound(err) {
			return db.ErrDatasetNotFound
		}
		return &db.Error{Op: db.OpDeleteDataset, Err: err}
	}
	return nil
}
