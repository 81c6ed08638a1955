package dashboard

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/zntb/automated-newsletter-service/internal/models"
)

const statsCacheKey = "dashboard:stats"

type statsProvider interface {
	Stats(ctx context.Context) (models.DashboardStats, error)
}

type cacheClient interface {
	Set(ctx context.Context, key string, value models.DashboardStats) error
	Get(ctx context.Context, key string) (models.DashboardStats, error)
}

// CachedService serves dashboard stats from Redis with a short TTL; the
// underlying aggregation runs several queries and the figures tolerate
// being a minute stale.
type CachedService struct {
	inner statsProvider
	cache cacheClient
	log   zerolog.Logger
}

func NewCachedService(inner statsProvider, cache cacheClient, logger zerolog.Logger) *CachedService {
	return &CachedService{
		inner: inner,
		cache: cache,
		log:   logger.With().Str("component", "CachedDashboard").Logger(),
	}
}

func (s *CachedService) Stats(ctx context.Context) (models.DashboardStats, error) {
	if stats, err := s.cache.Get(ctx, statsCacheKey); err == nil {
		s.log.Debug().Msg("dashboard cache hit")
		return stats, nil
	}

	stats, err := s.inner.Stats(ctx)
	if err != nil {
		return models.DashboardStats{}, err
	}

	if err := s.cache.Set(ctx, statsCacheKey, stats); err != nil {
		s.log.Warn().Err(err).Msg("failed to cache dashboard stats")
	}
	return stats, nil
}
