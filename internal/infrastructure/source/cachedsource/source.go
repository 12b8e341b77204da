package cachedsource

import (
	"context"

	"github.com/riskibarqy/chefscore/internal/domain/week"
	basecache "github.com/riskibarqy/chefscore/internal/platform/cache"
)

const keyPrefix = "source:"

// Source memoizes another source's payloads in a TTL store. Failed fetches are not cached.
type Source struct {
	next  week.Source
	cache *basecache.Store[[]byte]
}

func New(next week.Source, cache *basecache.Store[[]byte]) *Source {
	return &Source{next: next, cache: cache}
}

func (s *Source) Fetch(ctx context.Context, path string) ([]byte, error) {
	body, err := s.cache.GetOrLoad(ctx, keyPrefix+path, func(ctx context.Context) ([]byte, error) {
		body, err := s.next.Fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), body...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), body...), nil
}

// Invalidate drops every cached payload so the next load hits the origin.
func (s *Source) Invalidate(ctx context.Context) {
	s.cache.DeletePrefix(ctx, keyPrefix)
}

// Stats reports cache activity for the payloads fronted by this source.
func (s *Source) Stats() basecache.Stats {
	return s.cache.Stats()
}
