package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/providers"
	"github.com/careloop/appointment-engine/internal/domain/repositories"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

// AvailabilityService manages a provider's bookable calendar: bulk slot
// creation and deletion of unbooked slots.
type AvailabilityService struct {
	availability repositories.AvailabilityRepository
	generator    *SlotGenerator
	timezone     string
	location     *time.Location
	eventBus     providers.EventBus
	now          func() time.Time
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(availability repositories.AvailabilityRepository, generator *SlotGenerator, timezone string) *AvailabilityService {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
		timezone = "UTC"
	}
	return &AvailabilityService{
		availability: availability,
		generator:    generator,
		timezone:     timezone,
		location:     loc,
		now:          time.Now,
	}
}

// SetEventBus sets the event bus for publishing calendar events
func (s *AvailabilityService) SetEventBus(bus providers.EventBus) {
	s.eventBus = bus
}

// CreateSlots creates one availability record per requested start time.
// Every start time must be an offerable candidate for the date; the call
// is all-or-nothing and returns the per-entry problems when validation
// fails.
func (s *AvailabilityService) CreateSlots(ctx context.Context, providerID, date string, startTimes []string, slotType entities.SlotType) ([]*entities.Availability, []string, error) {
	if providerID == "" {
		return nil, nil, apperrors.NewValidationError("provider id is required")
	}
	if !slotType.Valid() {
		return nil, nil, apperrors.NewValidationError(fmt.Sprintf("unknown slot type %q", slotType))
	}
	if len(startTimes) == 0 {
		return nil, nil, apperrors.NewValidationError("start_times must not be empty")
	}

	candidates, err := s.generator.Candidates(date, s.location)
	if err != nil {
		return nil, nil, err
	}
	offerable := make(map[string]SlotCandidate)
	for c := range candidates {
		offerable[c.Label] = c
	}

	existing, err := s.availability.ListByProviderDate(ctx, providerID, date)
	if err != nil {
		return nil, nil, err
	}

	var problems []string
	var overlaps []string
	seen := make(map[string]bool, len(startTimes))
	slots := make([]*entities.Availability, 0, len(startTimes))
	createdAt := s.now().UTC()

	for _, label := range startTimes {
		if seen[label] {
			problems = append(problems, fmt.Sprintf("%s: duplicated in request", label))
			continue
		}
		seen[label] = true

		candidate, ok := offerable[label]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: not an offerable start time for %s", label, date))
			continue
		}

		slot := &entities.Availability{
			ID:         uuid.New().String(),
			ProviderID: providerID,
			Date:       date,
			StartTime:  candidate.StartTime,
			EndTime:    candidate.StartTime.Add(slotType.Duration()),
			SlotType:   slotType,
			Timezone:   s.timezone,
			IsBooked:   false,
			CreatedAt:  createdAt,
			UpdatedAt:  createdAt,
		}

		// A provider's slots must never overlap in [start, end), either
		// with the existing calendar or within the batch itself.
		if clash := firstOverlap(slot, existing); clash != nil {
			overlaps = append(overlaps, fmt.Sprintf("%s: overlaps existing %s slot at %s", label, clash.SlotType, clash.StartTime.In(s.location).Format("15:04")))
			continue
		}
		if clash := firstOverlap(slot, slots); clash != nil {
			overlaps = append(overlaps, fmt.Sprintf("%s: overlaps requested slot at %s", label, clash.StartTime.In(s.location).Format("15:04")))
			continue
		}

		slots = append(slots, slot)
	}

	if len(overlaps) > 0 {
		return nil, append(problems, overlaps...), apperrors.NewConflictError("one or more slots overlap the provider's calendar")
	}
	if len(problems) > 0 {
		return nil, problems, apperrors.NewValidationError("one or more start times are not offerable")
	}

	if err := s.availability.CreateBatch(ctx, slots); err != nil {
		return nil, nil, err
	}

	for _, slot := range slots {
		s.publish(ctx, entities.EventAvailabilityCreated, slot)
	}
	return slots, nil, nil
}

// firstOverlap returns the first slot whose [StartTime, EndTime) window
// intersects the candidate's, or nil.
func firstOverlap(candidate *entities.Availability, against []*entities.Availability) *entities.Availability {
	for _, other := range against {
		if candidate.StartTime.Before(other.EndTime) && other.StartTime.Before(candidate.EndTime) {
			return other
		}
	}
	return nil
}

// DeleteSlot removes an unbooked slot from the calendar
func (s *AvailabilityService) DeleteSlot(ctx context.Context, id string) error {
	slot, err := s.availability.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.availability.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, entities.EventAvailabilityDeleted, slot)
	return nil
}

// Candidates returns the offerable slot boundaries for a date
func (s *AvailabilityService) Candidates(date string) ([]SlotCandidate, error) {
	seq, err := s.generator.Candidates(date, s.location)
	if err != nil {
		return nil, err
	}
	var out []SlotCandidate
	for c := range seq {
		out = append(out, c)
	}
	return out, nil
}

func (s *AvailabilityService) publish(ctx context.Context, eventType entities.ScheduleEventType, slot *entities.Availability) {
	publishScheduleEvent(ctx, s.eventBus, &entities.ScheduleEvent{
		ID:             uuid.New().String(),
		EventType:      eventType,
		ProviderID:     slot.ProviderID,
		AvailabilityID: slot.ID,
		OccurredAt:     s.now().UTC(),
	})
}
