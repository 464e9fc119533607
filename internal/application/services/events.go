package services

import (
	"context"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/providers"
	"github.com/careloop/appointment-engine/internal/infrastructure/observability"
)

// publishScheduleEvent fans a calendar mutation out to the global
// updates channel and to the owning provider's channel, so a consumer
// watching one calendar does not have to filter the whole stream.
// Publication is best effort; a bus failure never fails the mutation.
func publishScheduleEvent(ctx context.Context, bus providers.EventBus, event *entities.ScheduleEvent) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, providers.EventChannelScheduleUpdates, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("event_type", string(event.EventType)).
			Msg("failed to publish schedule event")
	}
	if event.ProviderID == "" {
		return
	}
	if err := bus.Publish(ctx, providers.GetProviderChannel(event.ProviderID), event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("event_type", string(event.EventType)).
			Str("provider_id", event.ProviderID).
			Msg("failed to publish provider schedule event")
	}
}
