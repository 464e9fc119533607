package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/providers"
	"github.com/careloop/appointment-engine/internal/domain/repositories"
	"github.com/careloop/appointment-engine/internal/infrastructure/observability"
)

// CachedAvailabilityAdapter wraps an AvailabilityRepository with a
// read-through cache. Only reads are cached; every mutation, including
// Reserve, goes straight to the store and drops the provider's cached
// pages, so the cache can never hide a booked slot for longer than its
// short TTL.
type CachedAvailabilityAdapter struct {
	adapter repositories.AvailabilityRepository
	cache   providers.CacheProvider
}

// NewCachedAvailabilityAdapter creates a new cached availability adapter
func NewCachedAvailabilityAdapter(adapter repositories.AvailabilityRepository, cache providers.CacheProvider) repositories.AvailabilityRepository {
	return &CachedAvailabilityAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

// Cache TTLs (in seconds)
const (
	availabilityByIDTTL = 60
	availabilityListTTL = 30
)

func availabilityCacheKey(id string) string {
	return fmt.Sprintf("availability:%s", id)
}

func availabilityListCacheKey(providerID string, page repositories.PageRequest) string {
	return fmt.Sprintf("availability:list:%s:%d:%d", providerID, page.Number, page.Size)
}

func availabilityListPattern(providerID string) string {
	return fmt.Sprintf("availability:list:%s:*", providerID)
}

// CreateBatch passes through and invalidates the provider's cached pages
func (a *CachedAvailabilityAdapter) CreateBatch(ctx context.Context, slots []*entities.Availability) error {
	if err := a.adapter.CreateBatch(ctx, slots); err != nil {
		return err
	}
	a.invalidateProvider(ctx, slots[0].ProviderID)
	return nil
}

// GetByID retrieves a slot with caching
func (a *CachedAvailabilityAdapter) GetByID(ctx context.Context, id string) (*entities.Availability, error) {
	cacheKey := availabilityCacheKey(id)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var slot entities.Availability
		if err := json.Unmarshal(cached, &slot); err == nil {
			return &slot, nil
		}
	}

	slot, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(slot); err == nil {
		if err := a.cache.Set(ctx, cacheKey, data, availabilityByIDTTL); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("availability_id", id).Msg("failed to cache availability")
		}
	}
	return slot, nil
}

// ListByProvider returns a page of slots with caching
func (a *CachedAvailabilityAdapter) ListByProvider(ctx context.Context, providerID string, page repositories.PageRequest) (*repositories.AvailabilityPage, error) {
	cacheKey := availabilityListCacheKey(providerID, page)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var result repositories.AvailabilityPage
		if err := json.Unmarshal(cached, &result); err == nil {
			return &result, nil
		}
	}

	result, err := a.adapter.ListByProvider(ctx, providerID, page)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := a.cache.Set(ctx, cacheKey, data, availabilityListTTL); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("provider_id", providerID).Msg("failed to cache availability page")
		}
	}
	return result, nil
}

// ListByProviderDate passes through uncached: it feeds overlap
// validation on the write path, where a stale calendar would let
// conflicting slots through.
func (a *CachedAvailabilityAdapter) ListByProviderDate(ctx context.Context, providerID, date string) ([]*entities.Availability, error) {
	return a.adapter.ListByProviderDate(ctx, providerID, date)
}

// Delete passes through and invalidates affected keys
func (a *CachedAvailabilityAdapter) Delete(ctx context.Context, id string) error {
	slot, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := a.adapter.Delete(ctx, id); err != nil {
		return err
	}
	a.invalidateSlot(ctx, id, slot.ProviderID)
	return nil
}

// Reserve passes through to the store's atomic check-and-set. Caching is
// never consulted here; only invalidated afterwards.
func (a *CachedAvailabilityAdapter) Reserve(ctx context.Context, id string) error {
	if err := a.adapter.Reserve(ctx, id); err != nil {
		return err
	}
	a.invalidateReserved(ctx, id)
	return nil
}

// Release passes through and invalidates affected keys
func (a *CachedAvailabilityAdapter) Release(ctx context.Context, id string) error {
	if err := a.adapter.Release(ctx, id); err != nil {
		return err
	}
	a.invalidateReserved(ctx, id)
	return nil
}

func (a *CachedAvailabilityAdapter) invalidateReserved(ctx context.Context, id string) {
	if err := a.cache.Delete(ctx, availabilityCacheKey(id)); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("availability_id", id).Msg("failed to invalidate availability cache")
	}
	if slot, err := a.adapter.GetByID(ctx, id); err == nil {
		a.invalidateProvider(ctx, slot.ProviderID)
	}
}

func (a *CachedAvailabilityAdapter) invalidateSlot(ctx context.Context, id, providerID string) {
	if err := a.cache.Delete(ctx, availabilityCacheKey(id)); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("availability_id", id).Msg("failed to invalidate availability cache")
	}
	a.invalidateProvider(ctx, providerID)
}

func (a *CachedAvailabilityAdapter) invalidateProvider(ctx context.Context, providerID string) {
	if err := a.cache.DeletePattern(ctx, availabilityListPattern(providerID)); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("provider_id", providerID).Msg("failed to invalidate availability pages")
	}
}
