package repositories

import (
	"context"
	"time"

	"github.com/careloop/appointment-engine/internal/domain/entities"
)

// AppointmentPage is one page of appointments plus the total count
type AppointmentPage struct {
	Items []*entities.Appointment
	Total int
}

// AppointmentFilter narrows appointment listings
type AppointmentFilter struct {
	PatientID  string
	ProviderID string
	Status     entities.AppointmentStatus
}

// AppointmentRepository defines the interface for appointment persistence
type AppointmentRepository interface {
	// Create creates a new appointment
	Create(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by id
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// List returns a page of appointments ordered by booked_at descending
	List(ctx context.Context, filter AppointmentFilter, page PageRequest) (*AppointmentPage, error)

	// Cancel atomically moves a booked appointment into the given
	// cancelled status and releases its availability slot in one
	// transaction, so a failed release can never strand a booked slot
	// with no live appointment. It fails with an invalid-state error
	// when the row is no longer booked.
	Cancel(ctx context.Context, id string, to entities.AppointmentStatus, availabilityID string) error

	// Reschedule atomically records a slot swap: it inserts the successor
	// appointment, moves the predecessor from booked to rescheduled, and
	// releases the predecessor's availability slot, all in one
	// transaction. The successor's slot must already be reserved.
	Reschedule(ctx context.Context, old *entities.Appointment, successor *entities.Appointment) error

	// SweepCompleted marks booked appointments whose slot end time is
	// before now as completed and returns how many rows moved.
	SweepCompleted(ctx context.Context, now time.Time) (int, error)
}
