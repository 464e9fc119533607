package repositories

import (
	"context"

	"github.com/careloop/appointment-engine/internal/domain/entities"
)

// PageRequest selects one page of an ordered collection. Number is
// 1-based; a zero Size falls back to the store default.
type PageRequest struct {
	Number int
	Size   int
}

// AvailabilityPage is one page of availability records plus the total
// count needed to issue cursors.
type AvailabilityPage struct {
	Items []*entities.Availability
	Total int
}

// AvailabilityRepository is the durable record of a provider's bookable
// and booked slots. Reserve is the single serialization point that
// prevents double-booking.
type AvailabilityRepository interface {
	// CreateBatch creates the given slots with is_booked=false. It fails
	// with a conflict error if any (provider, date, start_time) already
	// exists; nothing is created in that case.
	CreateBatch(ctx context.Context, slots []*entities.Availability) error

	// GetByID retrieves a slot by id
	GetByID(ctx context.Context, id string) (*entities.Availability, error)

	// ListByProvider returns a page of slots ordered by start_time ascending
	ListByProvider(ctx context.Context, providerID string, page PageRequest) (*AvailabilityPage, error)

	// ListByProviderDate returns every slot a provider has on a date,
	// ordered by start_time ascending. Used to validate new slots
	// against the existing calendar.
	ListByProviderDate(ctx context.Context, providerID, date string) ([]*entities.Availability, error)

	// Delete removes an unbooked slot. Deleting a booked slot is a conflict.
	Delete(ctx context.Context, id string) error

	// Reserve atomically transitions is_booked false -> true. A slot
	// already booked by a concurrent caller yields an already-booked
	// error and no mutation. Implementations must use a single atomic
	// check-and-set, never a read-then-write pair.
	Reserve(ctx context.Context, id string) error

	// Release sets is_booked=false. Idempotent.
	Release(ctx context.Context, id string) error
}
