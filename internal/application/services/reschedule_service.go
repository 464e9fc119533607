package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/providers"
	"github.com/careloop/appointment-engine/internal/domain/repositories"
	"github.com/careloop/appointment-engine/internal/infrastructure/observability"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

// RescheduleService atomically swaps an existing appointment's slot for
// a new one, releasing the old slot back to availability.
type RescheduleService struct {
	appointments  repositories.AppointmentRepository
	availability  repositories.AvailabilityRepository
	notifications *NotificationService
	eventBus      providers.EventBus
	metrics       *observability.Metrics
	now           func() time.Time
}

// NewRescheduleService creates a new reschedule service
func NewRescheduleService(
	appointments repositories.AppointmentRepository,
	availability repositories.AvailabilityRepository,
) *RescheduleService {
	return &RescheduleService{
		appointments: appointments,
		availability: availability,
		now:          time.Now,
	}
}

// SetEventBus wires event publication for calendar mutations
func (s *RescheduleService) SetEventBus(bus providers.EventBus) {
	s.eventBus = bus
}

// SetNotificationService wires best-effort notification records
func (s *RescheduleService) SetNotificationService(n *NotificationService) {
	s.notifications = n
}

// SetMetrics wires reschedule counters
func (s *RescheduleService) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// Reschedule moves an appointment to a new availability slot.
//
// The new slot is reserved first; losing that race aborts with no side
// effects. The swap itself (successor insert, predecessor booked ->
// rescheduled, old slot release) runs in one store transaction. If the
// transaction fails after the reservation, the newly reserved slot is
// released again as compensation.
func (s *RescheduleService) Reschedule(ctx context.Context, appointmentID, newAvailabilityID string) (*entities.Appointment, error) {
	old, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if old.Status != entities.AppointmentStatusBooked {
		return nil, apperrors.NewInvalidStateError(fmt.Sprintf("appointment %s is %s and cannot be rescheduled", old.ID, old.Status)).
			WithDetail("appointment_id", old.ID).
			WithDetail("status", string(old.Status))
	}
	if old.AvailabilityID == newAvailabilityID {
		return nil, apperrors.NewValidationError("appointment already holds this slot").
			WithDetail("availability_id", newAvailabilityID)
	}

	newSlot, err := s.availability.GetByID(ctx, newAvailabilityID)
	if err != nil {
		return nil, err
	}
	if newSlot.IsBooked {
		return nil, apperrors.NewAlreadyBookedError(newAvailabilityID)
	}

	if err := s.availability.Reserve(ctx, newAvailabilityID); err != nil {
		return nil, err
	}

	successor := &entities.Appointment{
		ID:                uuid.New().String(),
		PatientID:         old.PatientID,
		AvailabilityID:    newAvailabilityID,
		Status:            entities.AppointmentStatusBooked,
		BookedAt:          s.now().UTC(),
		RescheduledFromID: &old.ID,
		Price:             old.Price,
		Note:              old.Note,
		CreatedAt:         s.now().UTC(),
		UpdatedAt:         s.now().UTC(),
	}

	if err := s.appointments.Reschedule(ctx, old, successor); err != nil {
		// Compensate: the new slot was reserved but the swap never landed.
		if releaseErr := s.availability.Release(ctx, newAvailabilityID); releaseErr != nil {
			observability.LoggerFromContext(ctx).Error().Err(releaseErr).
				Str("availability_id", newAvailabilityID).
				Msg("failed to release slot after reschedule failure")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RescheduleCount.Add(ctx, 1)
	}
	s.publish(ctx, newSlot, successor.ID)

	if s.notifications != nil {
		if err := s.notifications.RecordRescheduleNotice(ctx, successor, newSlot); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Str("appointment_id", successor.ID).
				Msg("failed to record reschedule notice")
		}
	}

	return successor, nil
}

func (s *RescheduleService) publish(ctx context.Context, slot *entities.Availability, appointmentID string) {
	publishScheduleEvent(ctx, s.eventBus, &entities.ScheduleEvent{
		ID:             uuid.New().String(),
		EventType:      entities.EventAppointmentRescheduled,
		ProviderID:     slot.ProviderID,
		AvailabilityID: slot.ID,
		AppointmentID:  appointmentID,
		OccurredAt:     s.now().UTC(),
	})
}
