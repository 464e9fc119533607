package services

import (
	"context"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/repositories"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

// ScheduleQueryService provides paginated read access to availability
// and appointment collections for listing UIs. Pages are stable in
// ordering but not snapshot-isolated: an insert at a lower page index
// while paging may shift subsequent pages, which is a documented
// limitation of index cursors.
type ScheduleQueryService struct {
	availability repositories.AvailabilityRepository
	appointments repositories.AppointmentRepository
}

// NewScheduleQueryService creates a new query service
func NewScheduleQueryService(
	availability repositories.AvailabilityRepository,
	appointments repositories.AppointmentRepository,
) *ScheduleQueryService {
	return &ScheduleQueryService{
		availability: availability,
		appointments: appointments,
	}
}

// ListProviderAvailability returns one page of a provider's slots
// ordered by start time
func (s *ScheduleQueryService) ListProviderAvailability(ctx context.Context, providerID string, page repositories.PageRequest) (*repositories.AvailabilityPage, error) {
	if providerID == "" {
		return nil, apperrors.NewValidationError("provider id is required")
	}
	return s.availability.ListByProvider(ctx, providerID, page)
}

// ListAppointments returns one page of the caller's appointments:
// patients see their own bookings, providers see bookings against
// their slots.
func (s *ScheduleQueryService) ListAppointments(ctx context.Context, caller *entities.Principal, page repositories.PageRequest) (*repositories.AppointmentPage, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}

	filter := repositories.AppointmentFilter{}
	switch caller.Role {
	case entities.RoleProvider:
		filter.ProviderID = caller.ID
	default:
		filter.PatientID = caller.ID
	}
	return s.appointments.List(ctx, filter, page)
}

// GetAppointment returns a single appointment visible to the caller:
// the owning patient, or the provider whose slot it books. Anyone else
// gets a not-found, never a confirmation the appointment exists.
func (s *ScheduleQueryService) GetAppointment(ctx context.Context, caller *entities.Principal, id string) (*entities.Appointment, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}

	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case entities.RoleProvider:
		slot, err := s.availability.GetByID(ctx, appointment.AvailabilityID)
		if err != nil {
			return nil, err
		}
		if slot.ProviderID != caller.ID {
			return nil, apperrors.NewNotFoundError("appointment not found")
		}
	default:
		if appointment.PatientID != caller.ID {
			return nil, apperrors.NewNotFoundError("appointment not found")
		}
	}
	return appointment, nil
}
