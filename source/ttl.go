// Package source provides ready-made implementations of fresh.Source.
package source

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// TTL is a Source whose values stay fresh for a fixed duration after they
// were fetched.
type TTL[T any] struct {
	fetch func(ctx context.Context) (T, error)
	ttl   time.Duration
	clock clockz.Clock

	mu        sync.Mutex
	fetchedAt time.Time
}

// NewTTL returns a TTL source that calls fetch for new values and considers
// each one fresh for ttl.
func NewTTL[T any](ttl time.Duration, fetch func(ctx context.Context) (T, error), opts ...Option) *TTL[T] {
	cfg := newConfig(opts)
	return &TTL[T]{
		fetch: fetch,
		ttl:   ttl,
		clock: cfg.clock,
	}
}

// IsFresh reports whether less than ttl has passed since the last
// successful Fetch.
func (s *TTL[T]) IsFresh(_ context.Context, _ T) (bool, error) {
	s.mu.Lock()
	at := s.fetchedAt
	s.mu.Unlock()
	if at.IsZero() {
		return false, nil
	}
	return s.clock.Now().Before(at.Add(s.ttl)), nil
}

// Fetch calls the fetch function and, on success, restarts the ttl.
func (s *TTL[T]) Fetch(ctx context.Context) (T, error) {
	v, err := s.fetch(ctx)
	if err != nil {
		return v, err
	}
	s.mu.Lock()
	s.fetchedAt = s.clock.Now()
	s.mu.Unlock()
	return v, nil
}

// FetchedAt returns when the last successful Fetch completed, or the zero
// time if there was none.
func (s *TTL[T]) FetchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchedAt
}
