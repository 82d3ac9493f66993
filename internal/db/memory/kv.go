package memory

import (
	"context"
	"strconv"
	"time"

	"github.com/kailas-cloud/vecstore/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.kv[key]
	if !ok || s.expired(e) {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a value without expiry.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.kv[key] = kvEntry{value: append([]byte(nil), value...)}
	return nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.kv[key] = kvEntry{value: append([]byte(nil), value...), expires: s.now().Add(ttl)}
	return nil
}

// IncrBy increments an integer value, creating it at zero when absent.
func (s *Store) IncrBy(_ context.Context, key string, val int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.kv[key]
	if !ok || s.expired(e) {
		e = kvEntry{}
	}
	var cur int64
	if len(e.value) > 0 {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return &db.Error{Op: db.OpIncrBy, Err: err}
		}
		cur = n
	}
	e.value = []byte(strconv.FormatInt(cur+val, 10))
	s.kv[key] = e
	return nil
}

// Expire sets TTL on a key. When nx=true, only keys without expiry are touched.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.kv[key]
	if !ok || s.expired(e) {
		return nil
	}
	if nx && !e.expires.IsZero() {
		return nil
	}
	e.expires = s.now().Add(ttl)
	s.kv[key] = e
	return nil
}

func (s *Store) expired(e kvEntry) bool {
	return !e.expires.IsZero() && !s.now().Before(e.expires)
}
