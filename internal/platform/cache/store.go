package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrNilLoader is returned by GetOrLoad when no loader is supplied.
var ErrNilLoader = errors.New("cache loader is required")

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Stats is a point-in-time view of store activity.
type Stats struct {
	Entries int
	Hits    uint64
	Misses  uint64
	Loads   uint64
}

// Store is a typed TTL map. Concurrent loads of the same key share one loader call.
// A zero TTL keeps entries until they are deleted.
type Store[V any] struct {
	mu     sync.RWMutex
	items  map[string]item[V]
	ttl    time.Duration
	flight singleflight.Group
	now    func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
	loads  atomic.Uint64
}

func NewStore[V any](ttl time.Duration) *Store[V] {
	if ttl < 0 {
		ttl = 0
	}
	return &Store[V]{
		items: make(map[string]item[V]),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *Store[V]) expired(it item[V], at time.Time) bool {
	return !it.expiresAt.IsZero() && !it.expiresAt.After(at)
}

func (s *Store[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V
	if key == "" {
		return zero, false
	}

	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if ok && !s.expired(it, s.now()) {
		s.hits.Add(1)
		return it.value, true
	}

	if ok {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, still := s.items[key]; still && s.expired(cur, s.now()) {
			delete(s.items, key)
		}
		s.mu.Unlock()
	}
	s.misses.Add(1)
	return zero, false
}

func (s *Store[V]) Set(_ context.Context, key string, value V) {
	if key == "" {
		return
	}

	it := item[V]{value: value}
	if s.ttl > 0 {
		it.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.items[key] = it
	s.mu.Unlock()
}

// DeletePrefix drops every key starting with prefix and reports how many were removed.
// An empty prefix clears the store.
func (s *Store[V]) DeletePrefix(_ context.Context, prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

func (s *Store[V]) Stats() Stats {
	s.mu.RLock()
	entries := len(s.items)
	s.mu.RUnlock()

	return Stats{
		Entries: entries,
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Loads:   s.loads.Load(),
	}
}

// GetOrLoad returns the cached value for key, running loader at most once for all
// callers waiting on the same key. Loader errors are returned and never stored.
// The loader runs detached from any one caller's cancellation and must bound itself;
// a caller whose ctx ends stops waiting. An empty key bypasses the store.
func (s *Store[V]) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (V, error)) (V, error) {
	var zero V
	if loader == nil {
		return zero, ErrNilLoader
	}
	if key == "" {
		return loader(ctx)
	}

	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	results := s.flight.DoChan(key, func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		if value, ok := s.Get(loadCtx, key); ok {
			return value, nil
		}

		s.loads.Add(1)
		loaded, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		s.Set(loadCtx, key, loaded)
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return zero, res.Err
		}
		value, _ := res.Val.(V)
		return value, nil
	}
}
