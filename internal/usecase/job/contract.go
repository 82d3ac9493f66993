package job

import (
	"context"

	domjob "github.com/kailas-cloud/vecstore/internal/domain/job"
)

// Repository defines the storage contract for job lookups.
type Repository interface {
	Get(ctx context.Context, jobID, location string) (domjob.Stats, error)
}
