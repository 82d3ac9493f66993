package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecstore/internal/db"
)

// JobTTL is how long synthetic job records stay readable.
const JobTTL = 24 * time.Hour

// recordJob stores a finished job so JobStatus can report it later.
func (s *Store) recordJob(ctx context.Context, st *db.JobStatus) (string, error) {
	id := "job_" + uuid.NewString()
	ended := s.now()
	if st.StartedAt.IsZero() {
		st.StartedAt = ended
	}

	key := jobKey(id)
	hset := s.b().Hset().Key(key).FieldValue().
		FieldValue("type", st.Type).
		FieldValue("state", db.JobStateDone).
		FieldValue("location", s.location).
		FieldValue("created_at", st.StartedAt.UTC().Format(time.RFC3339Nano)).
		FieldValue("started_at", st.StartedAt.UTC().Format(time.RFC3339Nano)).
		FieldValue("ended_at", ended.UTC().Format(time.RFC3339Nano)).
		FieldValue("input_rows", strconv.FormatInt(st.InputRows, 10)).
		FieldValue("output_rows", strconv.FormatInt(st.OutputRows, 10)).
		FieldValue("error", st.ErrorMessage)

	cmds := rueidis.Commands{
		hset.Build(),
		s.b().Expire().Key(key).Seconds(int64(JobTTL.Seconds())).Build(),
	}
	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return "", &db.Error{Op: db.OpHSet, Err: err}
		}
	}
	return id, nil
}

// JobStatus reads a recorded job. Records expire after JobTTL.
func (s *Store) JobStatus(ctx context.Context, jobID, _ string) (*db.JobStatus, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(jobKey(jobID)).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpJobStatus, Err: err}
	}
	if len(m) == 0 {
		return nil, db.ErrJobNotFound
	}

	in, _ := strconv.ParseInt(m["input_rows"], 10, 64)
	out, _ := strconv.ParseInt(m["output_rows"], 10, 64)
	return &db.JobStatus{
		ID:           jobID,
		Location:     m["location"],
		Type:         m["type"],
		State:        m["state"],
		CreatedAt:    parseTime(m["created_at"]),
		StartedAt:    parseTime(m["started_at"]),
		EndedAt:      parseTime(m["ended_at"]),
		InputRows:    in,
		OutputRows:   out,
		ErrorMessage: m["error"],
	}, nil
}
