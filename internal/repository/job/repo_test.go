package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain"
	domjob "github.com/kailas-cloud/vecstore/internal/domain/job"
)

type mockStore struct {
	status *db.JobStatus
	err    error
	gotLoc string
}

func (m *mockStore) JobStatus(_ context.Context, _, location string) (*db.JobStatus, error) {
	m.gotLoc = location
	return m.status, m.err
}

func TestGet(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ms := &mockStore{status: &db.JobStatus{
		ID:               "job_1",
		Type:             db.JobTypeQuery,
		State:            db.JobStateDone,
		StartedAt:        started,
		EndedAt:          started.Add(time.Second),
		TotalBytesBilled: 10 << 20,
		SlotMillis:       42,
	}}

	stats, err := New(ms).Get(context.Background(), "job_1", "US")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.gotLoc != "US" {
		t.Errorf("location = %q", ms.gotLoc)
	}
	if stats.Kind != domjob.KindQuery || stats.State != domjob.StateDone {
		t.Errorf("kind/state = %s/%s", stats.Kind, stats.State)
	}
	if stats.Duration() != time.Second || stats.SlotMillis != 42 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestGet_UnknownKindAndState(t *testing.T) {
	ms := &mockStore{status: &db.JobStatus{ID: "x", Type: "copy", State: "WEIRD"}}
	stats, err := New(ms).Get(context.Background(), "x", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Kind != domjob.KindUnknown || stats.State != domjob.StateUnknown {
		t.Errorf("kind/state = %s/%s", stats.Kind, stats.State)
	}
}

func TestGet_NotFound(t *testing.T) {
	ms := &mockStore{err: db.ErrJobNotFound}
	_, err := New(ms).Get(context.Background(), "missing", "")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
