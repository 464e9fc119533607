package services

import (
	"context"
	"fmt"
	"time"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/providers"
	"github.com/careloop/appointment-engine/internal/infrastructure/observability"
)

// CacheInvalidationService drops cached availability pages when another
// process mutates the calendar. Local mutations already invalidate
// synchronously; this closes the gap for multi-instance deployments
// where the mutation happened elsewhere.
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for schedule events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelScheduleUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to schedule updates: %w", err)
	}

	go s.processEvents(eventChan)
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.ScheduleEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.ScheduleEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := observability.LoggerFromContext(ctx)

	if event.AvailabilityID != "" {
		key := fmt.Sprintf("availability:%s", event.AvailabilityID)
		if err := s.cache.Delete(ctx, key); err != nil {
			logger.Warn().Err(err).Str("availability_id", event.AvailabilityID).Msg("failed to invalidate availability cache")
		}
	}

	if event.ProviderID != "" {
		pattern := fmt.Sprintf("availability:list:%s:*", event.ProviderID)
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			logger.Warn().Err(err).Str("provider_id", event.ProviderID).Msg("failed to invalidate availability pages")
		}
	}
}
