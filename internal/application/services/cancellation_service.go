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

// CancellationService applies the lead-time policy and role rules to
// terminate an appointment and free its slot.
type CancellationService struct {
	appointments  repositories.AppointmentRepository
	availability  repositories.AvailabilityRepository
	notifications *NotificationService
	eventBus      providers.EventBus
	metrics       *observability.Metrics
	cutoff        time.Duration
	now           func() time.Time
}

// NewCancellationService creates a cancellation service with the given
// minimum lead time before the slot's start.
func NewCancellationService(
	appointments repositories.AppointmentRepository,
	availability repositories.AvailabilityRepository,
	cutoff time.Duration,
) *CancellationService {
	if cutoff <= 0 {
		cutoff = time.Hour
	}
	return &CancellationService{
		appointments: appointments,
		availability: availability,
		cutoff:       cutoff,
		now:          time.Now,
	}
}

// SetEventBus wires event publication for calendar mutations
func (s *CancellationService) SetEventBus(bus providers.EventBus) {
	s.eventBus = bus
}

// SetNotificationService wires best-effort notification records
func (s *CancellationService) SetNotificationService(n *NotificationService) {
	s.notifications = n
}

// SetMetrics wires cancellation counters
func (s *CancellationService) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// Cancel terminates an appointment on behalf of the requesting
// principal and releases the bound slot so it is immediately
// re-offerable.
//
// The lead-time check reads the clock at call time, never at slot
// selection time. Only booked appointments can be cancelled; the
// resulting status depends on the requester's role.
func (s *CancellationService) Cancel(ctx context.Context, appointmentID string, requestedBy *entities.Principal) (*entities.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.Status != entities.AppointmentStatusBooked {
		return nil, apperrors.NewInvalidStateError(fmt.Sprintf("appointment %s is %s and cannot be cancelled", appointment.ID, appointment.Status)).
			WithDetail("appointment_id", appointment.ID).
			WithDetail("status", string(appointment.Status))
	}

	slot, err := s.availability.GetByID(ctx, appointment.AvailabilityID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if slot.StartTime.Sub(now) < s.cutoff {
		return nil, apperrors.NewPolicyViolationError(fmt.Sprintf("appointments must be cancelled at least %s before their start", s.cutoff)).
			WithDetail("appointment_id", appointment.ID).
			WithDetail("start_time", slot.StartTime).
			WithDetail("cutoff", s.cutoff.String())
	}

	to := entities.AppointmentStatusCancelledByPatient
	if requestedBy != nil && requestedBy.Role == entities.RoleProvider {
		to = entities.AppointmentStatusCancelledByDoctor
	}

	// One transaction: the status change and the slot release commit
	// together, so a failure can never strand a booked slot behind a
	// cancelled appointment.
	if err := s.appointments.Cancel(ctx, appointment.ID, to, slot.ID); err != nil {
		return nil, err
	}

	appointment.Status = to
	if s.metrics != nil {
		s.metrics.CancellationCount.Add(ctx, 1)
	}
	s.publish(ctx, slot, appointment.ID)

	if s.notifications != nil {
		if err := s.notifications.RecordCancellationNotice(ctx, appointment, slot); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Str("appointment_id", appointment.ID).
				Msg("failed to record cancellation notice")
		}
	}

	return appointment, nil
}

func (s *CancellationService) publish(ctx context.Context, slot *entities.Availability, appointmentID string) {
	publishScheduleEvent(ctx, s.eventBus, &entities.ScheduleEvent{
		ID:             uuid.New().String(),
		EventType:      entities.EventAppointmentCancelled,
		ProviderID:     slot.ProviderID,
		AvailabilityID: slot.ID,
		AppointmentID:  appointmentID,
		OccurredAt:     s.now().UTC(),
	})
}
