package database

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/repositories"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

type fakeCache struct {
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, ok := c.entries[key]
	if !ok {
		return nil, apperrors.NewNotFoundError("cache miss")
	}
	return value, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.entries[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) DeletePattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := c.entries[key]
	return ok, nil
}

type countingRepo struct {
	slots    map[string]*entities.Availability
	getCalls int
}

func newCountingRepo(slots ...*entities.Availability) *countingRepo {
	repo := &countingRepo{slots: make(map[string]*entities.Availability)}
	for _, slot := range slots {
		repo.slots[slot.ID] = slot
	}
	return repo
}

func (r *countingRepo) CreateBatch(ctx context.Context, slots []*entities.Availability) error {
	for _, slot := range slots {
		r.slots[slot.ID] = slot
	}
	return nil
}

func (r *countingRepo) GetByID(ctx context.Context, id string) (*entities.Availability, error) {
	r.getCalls++
	slot, ok := r.slots[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("availability not found")
	}
	copied := *slot
	return &copied, nil
}

func (r *countingRepo) ListByProvider(ctx context.Context, providerID string, page repositories.PageRequest) (*repositories.AvailabilityPage, error) {
	var items []*entities.Availability
	for _, slot := range r.slots {
		if slot.ProviderID == providerID {
			items = append(items, slot)
		}
	}
	return &repositories.AvailabilityPage{Items: items, Total: len(items)}, nil
}

func (r *countingRepo) ListByProviderDate(ctx context.Context, providerID, date string) ([]*entities.Availability, error) {
	r.getCalls++
	var items []*entities.Availability
	for _, slot := range r.slots {
		if slot.ProviderID == providerID && slot.Date == date {
			items = append(items, slot)
		}
	}
	return items, nil
}

func (r *countingRepo) Delete(ctx context.Context, id string) error {
	delete(r.slots, id)
	return nil
}

func (r *countingRepo) Reserve(ctx context.Context, id string) error {
	slot, ok := r.slots[id]
	if !ok {
		return apperrors.NewNotFoundError("availability not found")
	}
	if slot.IsBooked {
		return apperrors.NewAlreadyBookedError(id)
	}
	slot.IsBooked = true
	return nil
}

func (r *countingRepo) Release(ctx context.Context, id string) error {
	if slot, ok := r.slots[id]; ok {
		slot.IsBooked = false
	}
	return nil
}

func TestCachedGetByID_ReadThrough(t *testing.T) {
	repo := newCountingRepo(sampleSlot("slot-1", false))
	cached := NewCachedAvailabilityAdapter(repo, newFakeCache())

	first, err := cached.GetByID(context.Background(), "slot-1")
	require.NoError(t, err)

	second, err := cached.GetByID(context.Background(), "slot-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.getCalls)
}

func TestCachedReserve_NeverConsultsCache(t *testing.T) {
	repo := newCountingRepo(sampleSlot("slot-1", false))
	cache := newFakeCache()
	cached := NewCachedAvailabilityAdapter(repo, cache)

	// Warm the cache with the unbooked state.
	_, err := cached.GetByID(context.Background(), "slot-1")
	require.NoError(t, err)

	require.NoError(t, cached.Reserve(context.Background(), "slot-1"))

	// A second reserve must see the store's truth, not the stale cache.
	err = cached.Reserve(context.Background(), "slot-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAlreadyBooked))
}

func TestCachedReserve_InvalidatesSlotAndPages(t *testing.T) {
	repo := newCountingRepo(sampleSlot("slot-1", false))
	cache := newFakeCache()
	cached := NewCachedAvailabilityAdapter(repo, cache)

	_, err := cached.GetByID(context.Background(), "slot-1")
	require.NoError(t, err)
	_, err = cached.ListByProvider(context.Background(), "prov-1", repositories.PageRequest{Number: 1, Size: 20})
	require.NoError(t, err)

	require.NoError(t, cached.Reserve(context.Background(), "slot-1"))

	slotCached, _ := cache.Exists(context.Background(), "availability:slot-1")
	pageCached, _ := cache.Exists(context.Background(), "availability:list:prov-1:1:20")
	assert.False(t, slotCached)
	assert.False(t, pageCached)
}

func TestCachedListByProviderDate_BypassesCache(t *testing.T) {
	repo := newCountingRepo(sampleSlot("slot-1", false))
	cached := NewCachedAvailabilityAdapter(repo, newFakeCache())

	slot := repo.slots["slot-1"]

	// Calendar validation reads must always see the store's truth.
	for i := 0; i < 2; i++ {
		items, err := cached.ListByProviderDate(context.Background(), slot.ProviderID, slot.Date)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	}
	assert.Equal(t, 2, repo.getCalls)
}

func TestCachedListByProvider_SecondReadHitsCache(t *testing.T) {
	repo := newCountingRepo(sampleSlot("slot-1", false))
	cache := newFakeCache()
	cached := NewCachedAvailabilityAdapter(repo, cache)

	page := repositories.PageRequest{Number: 1, Size: 20}

	first, err := cached.ListByProvider(context.Background(), "prov-1", page)
	require.NoError(t, err)

	// Mutate the store behind the cache's back; the cached page is
	// served until invalidation or TTL.
	require.NoError(t, repo.Delete(context.Background(), "slot-1"))

	second, err := cached.ListByProvider(context.Background(), "prov-1", page)
	require.NoError(t, err)
	assert.Equal(t, first.Total, second.Total)
}
