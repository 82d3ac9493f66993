package job

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/vecstore/internal/domain"
	domjob "github.com/kailas-cloud/vecstore/internal/domain/job"
)

// Service reads statistics of backend jobs.
type Service struct {
	repo     Repository
	location string
}

// New creates a job service. location is used when a lookup names none.
func New(repo Repository, location string) *Service {
	return &Service{repo: repo, location: location}
}

// Stats returns the statistics of jobID.
func (s *Service) Stats(ctx context.Context, jobID, location string) (domjob.Stats, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return domjob.Stats{}, fmt.Errorf("job id is required: %w", domain.ErrInvalidSchema)
	}
	if location == "" {
		location = s.location
	}
	st, err := s.repo.Get(ctx, jobID, location)
	if err != nil {
		return domjob.Stats{}, fmt.Errorf("get job: %w", err)
	}
	return st, nil
}
