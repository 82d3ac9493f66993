package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain"
	domjob "github.com/kailas-cloud/vecstore/internal/domain/job"
)

// store is the consumer interface for job lookups (ISP).
type store interface {
	JobStatus(ctx context.Context, jobID, location string) (*db.JobStatus, error)
}

// Repo implements usecase/job.Repository.
type Repo struct {
	store store
}

// New creates a job repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns statistics of a job. location may be empty to use the store default.
func (r *Repo) Get(ctx context.Context, jobID, location string) (domjob.Stats, error) {
	st, err := r.store.JobStatus(ctx, jobID, location)
	if err != nil {
		if errors.Is(err, db.ErrJobNotFound) {
			return domjob.Stats{}, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
		}
		return domjob.Stats{}, fmt.Errorf("job %s: %w", jobID, err)
	}
	return toStats(st), nil
}

func toStats(st *db.JobStatus) domjob.Stats {
	return domjob.Stats{
		ID:                  st.ID,
		Kind:                toKind(st.Type),
		State:               toState(st.State),
		CreatedAt:           st.CreatedAt,
		StartedAt:           st.StartedAt,
		EndedAt:             st.EndedAt,
		TotalBytesProcessed: st.TotalBytesProcessed,
		TotalBytesBilled:    st.TotalBytesBilled,
		SlotMillis:          st.SlotMillis,
		CacheHit:            st.CacheHit,
		InputRows:           st.InputRows,
		OutputRows:          st.OutputRows,
		Error:               st.ErrorMessage,
	}
}

func toKind(t string) domjob.Kind {
	switch t {
	case db.JobTypeQuery:
		return domjob.KindQuery
	case db.JobTypeLoad:
		return domjob.KindLoad
	default:
		return domjob.KindUnknown
	}
}

func toState(s string) domjob.State {
	switch s {
	case db.JobStatePending:
		return domjob.StatePending
	case db.JobStateRunning:
		return domjob.StateRunning
	case db.JobStateDone:
		return domjob.StateDone
	default:
		return domjob.StateUnknown
	}
}
