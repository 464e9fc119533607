package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/repositories"
	"github.com/careloop/appointment-engine/internal/infrastructure/clients/postgres"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

const defaultPageSize = 20

// pq unique_violation
const pgUniqueViolation = "23505"

var availabilityColumns = []any{
	"id", "provider_id", "date", "start_time", "end_time",
	"slot_type", "timezone", "is_booked", "created_at", "updated_at",
}

// AvailabilityAdapter implements the AvailabilityRepository interface
type AvailabilityAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAvailabilityAdapter creates a new availability adapter
func NewAvailabilityAdapter(client *postgres.Client) repositories.AvailabilityRepository {
	return &AvailabilityAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// CreateBatch creates the given slots with is_booked=false. The unique
// (provider_id, date, start_time) constraint is the authority on
// duplicates; a violation surfaces as a conflict and nothing is created.
func (a *AvailabilityAdapter) CreateBatch(ctx context.Context, slots []*entities.Availability) error {
	if len(slots) == 0 {
		return apperrors.NewValidationError("no slots to create")
	}

	records := make([]any, 0, len(slots))
	for _, slot := range slots {
		records = append(records, goqu.Record{
			"id":          slot.ID,
			"provider_id": slot.ProviderID,
			"date":        slot.Date,
			"start_time":  slot.StartTime,
			"end_time":    slot.EndTime,
			"slot_type":   slot.SlotType,
			"timezone":    slot.Timezone,
			"is_booked":   slot.IsBooked,
			"created_at":  slot.CreatedAt,
			"updated_at":  slot.UpdatedAt,
		})
	}

	query, args, err := a.db.Insert("availability_slots").Rows(records...).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return apperrors.NewConflictError("one or more slots already exist for this provider").
				WithDetail("provider_id", slots[0].ProviderID).
				WithDetail("date", slots[0].Date)
		}
		return apperrors.NewTransientIOError("failed to create availability slots", err)
	}

	return nil
}

// GetByID retrieves an availability slot by id
func (a *AvailabilityAdapter) GetByID(ctx context.Context, id string) (*entities.Availability, error) {
	query, args, err := a.db.Select(availabilityColumns...).
		From("availability_slots").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	slot, err := scanAvailability(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("availability %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewTransientIOError("failed to get availability", err)
	}
	return slot, nil
}

// ListByProvider returns a page of slots ordered by start_time ascending
func (a *AvailabilityAdapter) ListByProvider(ctx context.Context, providerID string, page repositories.PageRequest) (*repositories.AvailabilityPage, error) {
	size := page.Size
	if size <= 0 {
		size = defaultPageSize
	}
	number := page.Number
	if number <= 0 {
		number = 1
	}

	countQuery, countArgs, err := a.db.Select(goqu.COUNT("*")).
		From("availability_slots").
		Where(goqu.Ex{"provider_id": providerID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build count query", err)
	}

	var total int
	if err := a.client.DB().QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, apperrors.NewTransientIOError("failed to count availability", err)
	}

	query, args, err := a.db.Select(availabilityColumns...).
		From("availability_slots").
		Where(goqu.Ex{"provider_id": providerID}).
		Order(goqu.I("start_time").Asc()).
		Limit(uint(size)).
		Offset(uint((number - 1) * size)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewTransientIOError("failed to list availability", err)
	}
	defer rows.Close()

	var items []*entities.Availability
	for rows.Next() {
		slot, err := scanAvailability(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan availability", err)
		}
		items = append(items, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewTransientIOError("failed to iterate availability", err)
	}

	return &repositories.AvailabilityPage{Items: items, Total: total}, nil
}

// ListByProviderDate returns every slot a provider has on a date,
// ordered by start_time ascending.
func (a *AvailabilityAdapter) ListByProviderDate(ctx context.Context, providerID, date string) ([]*entities.Availability, error) {
	query, args, err := a.db.Select(availabilityColumns...).
		From("availability_slots").
		Where(goqu.Ex{"provider_id": providerID, "date": date}).
		Order(goqu.I("start_time").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewTransientIOError("failed to list availability", err)
	}
	defer rows.Close()

	var items []*entities.Availability
	for rows.Next() {
		slot, err := scanAvailability(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan availability", err)
		}
		items = append(items, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewTransientIOError("failed to iterate availability", err)
	}
	return items, nil
}

// Delete removes an unbooked slot. The is_booked guard sits in the same
// statement so a concurrent booking cannot slip in between a check and
// the delete.
func (a *AvailabilityAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete("availability_slots").
		Where(goqu.Ex{"id": id, "is_booked": false}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewTransientIOError("failed to delete availability", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// Nothing deleted: distinguish a booked slot from a missing one.
	slot, err := a.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return apperrors.NewConflictError(fmt.Sprintf("availability %s is booked and cannot be deleted", id)).
		WithDetail("availability_id", slot.ID)
}

// Reserve atomically transitions is_booked false -> true. The WHERE
// clause makes the check-and-set a single statement; at most one of any
// number of concurrent callers sees rowsAffected == 1.
func (a *AvailabilityAdapter) Reserve(ctx context.Context, id string) error {
	query, args, err := a.db.Update("availability_slots").
		Set(goqu.Record{
			"is_booked":  true,
			"updated_at": time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id, "is_booked": false}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build reserve query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewTransientIOError("failed to reserve availability", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	if _, err := a.GetByID(ctx, id); err != nil {
		return err
	}
	return apperrors.NewAlreadyBookedError(id)
}

// Release sets is_booked=false. Releasing an already-free slot is a no-op.
func (a *AvailabilityAdapter) Release(ctx context.Context, id string) error {
	query, args, err := a.db.Update("availability_slots").
		Set(goqu.Record{
			"is_booked":  false,
			"updated_at": time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build release query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewTransientIOError("failed to release availability", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("availability %s not found", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAvailability(row rowScanner) (*entities.Availability, error) {
	slot := &entities.Availability{}
	var date time.Time

	err := row.Scan(
		&slot.ID,
		&slot.ProviderID,
		&date,
		&slot.StartTime,
		&slot.EndTime,
		&slot.SlotType,
		&slot.Timezone,
		&slot.IsBooked,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	slot.Date = date.Format("2006-01-02")
	return slot, nil
}
