package repository

import (
	"context"
	"errors"
	"time"

	"FinRegime/internal/domain/models"
	"FinRegime/pkg/cache"
)

const summaryKeyPrefix = "summary"

// CacheSummaryStore implements SummaryCache on top of any cache.Service.
type CacheSummaryStore struct {
	c   cache.Service
	ttl time.Duration
}

// NewCacheSummaryStore creates a summary cache with the given entry TTL.
func NewCacheSummaryStore(c cache.Service, ttl time.Duration) *CacheSummaryStore {
	return &CacheSummaryStore{c: c, ttl: ttl}
}

func (s *CacheSummaryStore) PutSummary(ctx context.Context, sum models.RegimeSummary) error {
	return s.c.Set(ctx, cache.Key(summaryKeyPrefix, sum.Name), sum, s.ttl)
}

func (s *CacheSummaryStore) GetSummary(ctx context.Context, name string) (models.RegimeSummary, bool, error) {
	var sum models.RegimeSummary
	err := s.c.Get(ctx, cache.Key(summaryKeyPrefix, name), &sum)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		return models.RegimeSummary{}, false, nil
	case err != nil:
		return models.RegimeSummary{}, false, err
	}
	return sum, true, nil
}

// Invalidate drops every cached summary.
func (s *CacheSummaryStore) Invalidate(ctx context.Context) error {
	return s.c.DeleteByPattern(ctx, summaryKeyPrefix+":*")
}
