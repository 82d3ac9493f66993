package vecstore

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecstore/internal/domain/dataset"
)

// Datasets manages datasets, the containers tables live in.
type Datasets struct {
	c *Client
}

// Ensure creates the dataset if it does not exist. created reports whether
// this call created it. An existing dataset is returned unchanged.
func (d *Datasets) Ensure(ctx context.Context, name string, opts ...DatasetOption) (_ DatasetInfo, created bool, err error) {
	defer func(start time.Time) { d.c.obs.observe("ensure_dataset", start, err) }(time.Now())

	var cfg datasetConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.location == "" {
		cfg.location = d.c.location
	}
	ds, err := dataset.New(name, cfg.location, cfg.description)
	if err != nil {
		return DatasetInfo{}, false, fmt.Errorf("ensure dataset: %w: %w", err, ErrInvalidSchema)
	}
	created, err = d.c.datasets.EnsureDataset(ctx, ds)
	if err != nil {
		return DatasetInfo{}, false, fmt.Errorf("ensure dataset: %w", err)
	}
	if !created {
		info, err := d.Get(ctx, name)
		return info, false, err
	}
	return toDatasetInfo(ds), true, nil
}

// Get returns a dataset or ErrNotFound.
func (d *Datasets) Get(ctx context.Context, name string) (DatasetInfo, error) {
	ds, err := d.c.datasets.GetDataset(ctx, name)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("get dataset: %w", err)
	}
	return toDatasetInfo(ds), nil
}

func toDatasetInfo(ds dataset.Dataset) DatasetInfo {
	return DatasetInfo{Name: ds.Name(), Location: ds.Location(), Description: ds.Description()}
}
