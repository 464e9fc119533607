package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/providers"
	"github.com/careloop/appointment-engine/internal/domain/repositories"
	"github.com/careloop/appointment-engine/internal/infrastructure/observability"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

// BookingService converts staged cart lines into persisted appointments,
// consuming an availability slot atomically per commit.
type BookingService struct {
	appointments  repositories.AppointmentRepository
	availability  repositories.AvailabilityRepository
	cart          *CartService
	notifications *NotificationService
	eventBus      providers.EventBus
	metrics       *observability.Metrics
	prices        map[string]float64
	now           func() time.Time
}

// NewBookingService creates a new booking service. Notifications, the
// event bus, and metrics are optional.
func NewBookingService(
	appointments repositories.AppointmentRepository,
	availability repositories.AvailabilityRepository,
	cart *CartService,
	prices map[string]float64,
) *BookingService {
	return &BookingService{
		appointments: appointments,
		availability: availability,
		cart:         cart,
		prices:       prices,
		now:          time.Now,
	}
}

// SetEventBus wires event publication for calendar mutations
func (s *BookingService) SetEventBus(bus providers.EventBus) {
	s.eventBus = bus
}

// SetNotificationService wires best-effort notification records
func (s *BookingService) SetNotificationService(n *NotificationService) {
	s.notifications = n
}

// SetMetrics wires booking counters
func (s *BookingService) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// CommitResult is the outcome of committing one cart line
type CommitResult struct {
	AvailabilityID string               `json:"availability_id"`
	Appointment    *entities.Appointment `json:"appointment,omitempty"`
	Err            error                 `json:"-"`
}

// Commit books the slot identified by a staged cart line.
//
// The availability store's Reserve is the only serialization point: a
// lost race surfaces as an already-booked error, the stale cart line is
// evicted, and no appointment is created. The caller may retry with a
// different slot. A failure after the reservation is compensated by
// releasing the slot again.
func (s *BookingService) Commit(ctx context.Context, sessionID, patientID, availabilityID, note string) (*entities.Appointment, error) {
	slot, err := s.availability.GetByID(ctx, availabilityID)
	if err != nil {
		return nil, err
	}

	if err := s.availability.Reserve(ctx, availabilityID); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeAlreadyBooked) {
			s.cart.Remove(sessionID, availabilityID)
			observability.RecordReservationConflict(ctx, s.metrics, availabilityID)
		}
		return nil, err
	}

	appointment := &entities.Appointment{
		ID:             uuid.New().String(),
		PatientID:      patientID,
		AvailabilityID: availabilityID,
		Status:         entities.AppointmentStatusBooked,
		BookedAt:       s.now().UTC(),
		Price:          s.prices[string(slot.SlotType)],
		Note:           note,
		CreatedAt:      s.now().UTC(),
		UpdatedAt:      s.now().UTC(),
	}

	if err := s.appointments.Create(ctx, appointment); err != nil {
		// Compensate: the slot was reserved but no appointment exists.
		if releaseErr := s.availability.Release(ctx, availabilityID); releaseErr != nil {
			observability.LoggerFromContext(ctx).Error().Err(releaseErr).
				Str("availability_id", availabilityID).
				Msg("failed to release slot after booking failure")
		}
		return nil, err
	}

	s.cart.Remove(sessionID, availabilityID)
	observability.RecordBooking(ctx, s.metrics, slot.ProviderID)
	s.publish(ctx, entities.EventAppointmentBooked, slot, appointment.ID)

	if s.notifications != nil {
		if err := s.notifications.RecordBookingConfirmation(ctx, appointment, slot); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Str("appointment_id", appointment.ID).
				Msg("failed to record booking confirmation")
		}
	}

	return appointment, nil
}

// Checkout commits every staged line in the session's cart and then
// clears it. Each line succeeds or fails independently; a conflict on
// one slot does not abort the rest.
func (s *BookingService) Checkout(ctx context.Context, sessionID, patientID string) []CommitResult {
	lines := s.cart.Lines(sessionID)
	results := make([]CommitResult, 0, len(lines))

	for _, line := range lines {
		appointment, err := s.Commit(ctx, sessionID, patientID, line.AvailabilityID, "")
		results = append(results, CommitResult{
			AvailabilityID: line.AvailabilityID,
			Appointment:    appointment,
			Err:            err,
		})
	}

	s.cart.Clear(sessionID)
	return results
}

func (s *BookingService) publish(ctx context.Context, eventType entities.ScheduleEventType, slot *entities.Availability, appointmentID string) {
	publishScheduleEvent(ctx, s.eventBus, &entities.ScheduleEvent{
		ID:             uuid.New().String(),
		EventType:      eventType,
		ProviderID:     slot.ProviderID,
		AvailabilityID: slot.ID,
		AppointmentID:  appointmentID,
		OccurredAt:     s.now().UTC(),
	})
}
