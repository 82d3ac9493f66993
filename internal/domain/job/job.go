// Package job describes statistics of a backend job (query or load).
package job

import "time"

// Kind is the job category.
type Kind string

// Job kinds.
const (
	KindQuery   Kind = "query"
	KindLoad    Kind = "load"
	KindUnknown Kind = "unknown"
)

// State is the job lifecycle state.
type State string

// Job states.
const (
	StatePending State = "PENDING"
	StateRunning State = "RUNNING"
	StateDone    State = "DONE"
	StateUnknown State = "UNKNOWN"
)

// Stats is a backend-neutral snapshot of job statistics.
type Stats struct {
	ID                  string
	Kind                Kind
	State               State
	CreatedAt           time.Time
	StartedAt           time.Time
	EndedAt             time.Time
	TotalBytesProcessed int64
	TotalBytesBilled    int64
	SlotMillis          int64
	CacheHit            bool
	InputRows           int64
	OutputRows          int64
	Error               string
}

// Duration returns EndedAt - StartedAt, or zero while the job has not finished.
func (s *Stats) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Done reports whether the job reached a terminal state.
func (s *Stats) Done() bool { return s.State == StateDone }

// Failed reports whether the job finished with an error.
func (s *Stats) Failed() bool { return s.Error != "" }
