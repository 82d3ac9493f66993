package redis

import (
	"time"

	"github.com/redis/rueidis"
)

// NewStoreForTest creates a Store with the provided rueidis client and a fixed clock (test-only).
func NewStoreForTest(c rueidis.Client) *Store {
	s := newStore(c, "")
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}
