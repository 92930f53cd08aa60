// Package cache provides an in-memory TTL cache for computed views.
// Entries are recomputed on demand when expired or explicitly refreshed.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

// ComputeFunc produces a fresh value for a cache key.
type ComputeFunc func(ctx context.Context) (interface{}, error)

type entry struct {
	value     interface{}
	createdAt time.Time
	ttl       time.Duration
}

func (e *entry) expired(now time.Time) bool {
	if e.ttl <= 0 {
		return true
	}
	return now.Sub(e.createdAt) >= e.ttl
}

// Service is a concurrency-safe TTL cache. Concurrent refreshes of the same
// key may compute more than once; the last writer wins.
type Service struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
	logger  arbor.ILogger
}

// NewService creates a new cache service.
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		entries: make(map[string]*entry),
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock overrides the time source. Used by tests to control expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetOrCompute returns the cached value for key when present and fresh. On a
// miss, expiry, or when force is set, compute runs and its result replaces
// the entry. A compute failure leaves any previous entry untouched.
func (s *Service) GetOrCompute(ctx context.Context, key string, ttl time.Duration, force bool, compute ComputeFunc) (interface{}, error) {
	if !force {
		s.mu.RLock()
		e, ok := s.entries[key]
		now := s.now()
		s.mu.RUnlock()
		if ok && !e.expired(now) {
			s.logger.Debug().Str("key", key).Msg("Cache hit")
			return e.value, nil
		}
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.entries[key] = &entry{
		value:     value,
		createdAt: s.now(),
		ttl:       ttl,
	}
	s.mu.Unlock()

	s.logger.Debug().Str("key", key).Dur("ttl", ttl).Bool("forced", force).Msg("Cache entry refreshed")
	return value, nil
}

// Peek returns the cached value for key when present and fresh, without
// computing anything.
func (s *Service) Peek(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || e.expired(s.now()) {
		return nil, false
	}
	return e.value, true
}

// Invalidate removes the entry for key.
func (s *Service) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	s.logger.Debug().Str("key", key).Msg("Cache entry invalidated")
}

// InvalidateAll removes every entry.
func (s *Service) InvalidateAll() {
	s.mu.Lock()
	count := len(s.entries)
	s.entries = make(map[string]*entry)
	s.mu.Unlock()
	s.logger.Debug().Int("count", count).Msg("Cache cleared")
}
