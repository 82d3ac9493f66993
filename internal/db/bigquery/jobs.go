package bigquery

import (
	"context"

	"cloud.google.com/go/bigquery"

	"github.com/kailas-cloud/vecstore/internal/db"
)

// JobStatus fetches a BigQuery job and flattens its statistics.
func (s *Store) JobStatus(ctx context.Context, jobID, location string) (*db.JobStatus, error) {
	job, err := s.client.JobFromIDLocation(ctx, jobID, s.locationOr(location))
	if err != nil {
		if isNotFound(err) {
			return nil, db.ErrJobNotFound
		}
		return nil, &db.Error{Op: db.OpJobStatus, Err: err}
	}
	return toJobStatus(job.ID(), job.Location(), job.LastStatus()), nil
}

func toJobStatus(id, location string, st *bigquery.JobStatus) *db.JobStatus {
	out := &db.JobStatus{ID: id, Location: location, State: db.JobStatePending}
	if st == nil {
		return out
	}

	switch st.State {
	case bigquery.Running:
		out.State = db.JobStateRunning
	case bigquery.Done:
		out.State = db.JobStateDone
	}
	if err := st.Err(); err != nil {
		out.ErrorMessage = err.Error()
	}

	stats := st.Statistics
	if stats == nil {
		return out
	}
	out.CreatedAt = stats.CreationTime
	out.StartedAt = stats.StartTime
	out.EndedAt = stats.EndTime
	out.TotalBytesProcessed = stats.TotalBytesProcessed

	switch d := stats.Details.(type) {
	case *bigquery.QueryStatistics:
		out.Type = db.JobTypeQuery
		out.TotalBytesBilled = d.TotalBytesBilled
		out.SlotMillis = d.SlotMillis
		out.CacheHit = d.CacheHit
		out.OutputRows = d.NumDMLAffectedRows
	case *bigquery.LoadStatistics:
		out.Type = db.JobTypeLoad
		out.InputRows = d.OutputRows
		out.OutputRows = d.OutputRows
	default:
		out.Type = "other"
	}
	return out
}
