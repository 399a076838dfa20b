package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/discoverhealth/backend/internal/domain/entities"
	"github.com/discoverhealth/backend/internal/domain/providers"
	"github.com/discoverhealth/backend/internal/domain/repositories"
	"github.com/discoverhealth/backend/internal/infrastructure/observability"
	"github.com/discoverhealth/backend/pkg/metrics"
)

// CachedResourceAdapter caches region listings in front of a ResourceRepository.
// Every write drops the cached listing of the affected region before returning.
type CachedResourceAdapter struct {
	adapter repositories.ResourceRepository
	cache   providers.CacheProvider
	ttl     time.Duration
}

// NewCachedResourceAdapter creates a new cached resource adapter
func NewCachedResourceAdapter(adapter repositories.ResourceRepository, cache providers.CacheProvider, ttl time.Duration) repositories.ResourceRepository {
	return &CachedResourceAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttl,
	}
}

func regionCacheKey(region string) string {
	return fmt.Sprintf("resources:region:%s", region)
}

// ListByRegion serves from cache when possible. Cache failures fall through
// to the database.
func (a *CachedResourceAdapter) ListByRegion(ctx context.Context, region string) ([]*entities.Resource, error) {
	region = strings.TrimSpace(region)
	if region == "" {
		return a.adapter.ListByRegion(ctx, region)
	}
	logger := observability.LoggerFromContext(ctx)
	key := regionCacheKey(region)

	cached, err := a.cache.Get(ctx, key)
	switch {
	case err == nil:
		var resources []*entities.Resource
		if err := json.Unmarshal(cached, &resources); err == nil {
			metrics.RecordCacheHit()
			return resources, nil
		}
		logger.Warn().Err(err).Str("key", key).Msg("Discarding unreadable cached resources")
	case !errors.Is(err, providers.ErrCacheMiss):
		logger.Warn().Err(err).Str("key", key).Msg("Resource cache unavailable")
	}
	metrics.RecordCacheMiss()

	resources, err := a.adapter.ListByRegion(ctx, region)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resources); err == nil {
		if err := a.cache.Set(ctx, key, data, a.ttl); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to cache resources")
		}
	}
	return resources, nil
}

// ListAll is not cached
func (a *CachedResourceAdapter) ListAll(ctx context.Context) ([]*entities.Resource, error) {
	return a.adapter.ListAll(ctx)
}

// GetByID is not cached
func (a *CachedResourceAdapter) GetByID(ctx context.Context, id int64) (*entities.Resource, error) {
	return a.adapter.GetByID(ctx, id)
}

// Create stores the resource and invalidates its region listing
func (a *CachedResourceAdapter) Create(ctx context.Context, resource *entities.Resource) (int64, error) {
	id, err := a.adapter.Create(ctx, resource)
	if err != nil {
		return 0, err
	}
	a.invalidateRegion(ctx, resource.Region)
	return id, nil
}

// Recommend increments the counter and invalidates the resource's region listing
func (a *CachedResourceAdapter) Recommend(ctx context.Context, id int64) error {
	if err := a.adapter.Recommend(ctx, id); err != nil {
		return err
	}
	a.invalidateResource(ctx, id)
	return nil
}

// AddReview stores the review and invalidates the resource's region listing
func (a *CachedResourceAdapter) AddReview(ctx context.Context, resourceID int64, text string, authorID int64) (int64, error) {
	id, err := a.adapter.AddReview(ctx, resourceID, text, authorID)
	if err != nil {
		return 0, err
	}
	a.invalidateResource(ctx, resourceID)
	return id, nil
}

func (a *CachedResourceAdapter) invalidateResource(ctx context.Context, id int64) {
	resource, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Int64("resource_id", id).
			Msg("Failed to resolve region for cache invalidation")
		return
	}
	a.invalidateRegion(ctx, resource.Region)
}

func (a *CachedResourceAdapter) invalidateRegion(ctx context.Context, region string) {
	key := regionCacheKey(region)
	if err := a.cache.Delete(ctx, key); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).
			Msg("Failed to invalidate cached resources")
	}
}
