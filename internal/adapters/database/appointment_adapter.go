package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/repositories"
	"github.com/careloop/appointment-engine/internal/infrastructure/clients/postgres"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

var appointmentColumns = []any{
	"id", "patient_id", "availability_id", "status", "booked_at",
	"rescheduled_from_id", "price", "note", "created_at", "updated_at",
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	query, args, err := a.db.Insert("appointments").
		Rows(appointmentRecord(appointment)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewTransientIOError("failed to create appointment", err)
	}
	return nil
}

// GetByID retrieves an appointment by id
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewTransientIOError("failed to get appointment", err)
	}
	return appointment, nil
}

// List returns a page of appointments ordered by booked_at descending.
// Filtering by provider joins through the owning availability slot.
func (a *AppointmentAdapter) List(ctx context.Context, filter repositories.AppointmentFilter, page repositories.PageRequest) (*repositories.AppointmentPage, error) {
	size := page.Size
	if size <= 0 {
		size = defaultPageSize
	}
	number := page.Number
	if number <= 0 {
		number = 1
	}

	base := a.db.From("appointments")
	if filter.ProviderID != "" {
		base = base.Join(
			goqu.T("availability_slots"),
			goqu.On(goqu.Ex{"availability_slots.id": goqu.I("appointments.availability_id")}),
		).Where(goqu.Ex{"availability_slots.provider_id": filter.ProviderID})
	}
	if filter.PatientID != "" {
		base = base.Where(goqu.Ex{"appointments.patient_id": filter.PatientID})
	}
	if filter.Status != "" {
		base = base.Where(goqu.Ex{"appointments.status": filter.Status})
	}

	countQuery, countArgs, err := base.Select(goqu.COUNT(goqu.I("appointments.id"))).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build count query", err)
	}

	var total int
	if err := a.client.DB().QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, apperrors.NewTransientIOError("failed to count appointments", err)
	}

	cols := make([]any, 0, len(appointmentColumns))
	for _, c := range appointmentColumns {
		cols = append(cols, goqu.I("appointments."+c.(string)))
	}

	query, args, err := base.Select(cols...).
		Order(goqu.I("appointments.booked_at").Desc()).
		Limit(uint(size)).
		Offset(uint((number - 1) * size)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewTransientIOError("failed to list appointments", err)
	}
	defer rows.Close()

	var items []*entities.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		items = append(items, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewTransientIOError("failed to iterate appointments", err)
	}

	return &repositories.AppointmentPage{Items: items, Total: total}, nil
}

// Cancel terminates a booked appointment and frees its slot in one
// transaction. The conditional status update and the release commit or
// roll back together.
func (a *AppointmentAdapter) Cancel(ctx context.Context, id string, to entities.AppointmentStatus, availabilityID string) error {
	if !entities.AppointmentStatusBooked.CanTransition(to) {
		return apperrors.NewInvalidStateError(fmt.Sprintf("appointment cannot move from booked to %s", to)).
			WithDetail("appointment_id", id)
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewTransientIOError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	updateSQL, updateArgs, err := a.db.Update("appointments").
		Set(goqu.Record{
			"status":     to,
			"updated_at": time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id, "status": entities.AppointmentStatusBooked}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build status update", err)
	}
	result, err := tx.ExecContext(ctx, updateSQL, updateArgs...)
	if err != nil {
		return apperrors.NewTransientIOError("failed to update appointment status", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewInvalidStateError(fmt.Sprintf("appointment %s is no longer booked", id)).
			WithDetail("appointment_id", id)
	}

	releaseSQL, releaseArgs, err := a.db.Update("availability_slots").
		Set(goqu.Record{
			"is_booked":  false,
			"updated_at": time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": availabilityID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build release query", err)
	}
	if _, err := tx.ExecContext(ctx, releaseSQL, releaseArgs...); err != nil {
		return apperrors.NewTransientIOError("failed to release cancelled slot", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewTransientIOError("failed to commit cancellation", err)
	}
	return nil
}

// Reschedule records a slot swap in one transaction: insert the
// successor, move the predecessor from booked to rescheduled, and free
// the predecessor's slot. The successor's slot must already be reserved
// by the caller; on a transaction failure the caller compensates by
// releasing it.
func (a *AppointmentAdapter) Reschedule(ctx context.Context, old *entities.Appointment, successor *entities.Appointment) error {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewTransientIOError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	insertSQL, insertArgs, err := a.db.Insert("appointments").
		Rows(appointmentRecord(successor)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}
	if _, err := tx.ExecContext(ctx, insertSQL, insertArgs...); err != nil {
		return apperrors.NewTransientIOError("failed to insert successor appointment", err)
	}

	updateSQL, updateArgs, err := a.db.Update("appointments").
		Set(goqu.Record{
			"status":     entities.AppointmentStatusRescheduled,
			"updated_at": time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": old.ID, "status": entities.AppointmentStatusBooked}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build status update", err)
	}
	result, err := tx.ExecContext(ctx, updateSQL, updateArgs...)
	if err != nil {
		return apperrors.NewTransientIOError("failed to update predecessor status", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewInvalidStateError(fmt.Sprintf("appointment %s is no longer booked", old.ID)).
			WithDetail("appointment_id", old.ID)
	}

	releaseSQL, releaseArgs, err := a.db.Update("availability_slots").
		Set(goqu.Record{
			"is_booked":  false,
			"updated_at": time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": old.AvailabilityID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build release query", err)
	}
	if _, err := tx.ExecContext(ctx, releaseSQL, releaseArgs...); err != nil {
		return apperrors.NewTransientIOError("failed to release predecessor slot", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewTransientIOError("failed to commit reschedule", err)
	}
	return nil
}

// SweepCompleted marks booked appointments whose slot end time has
// passed as completed and returns how many rows moved.
func (a *AppointmentAdapter) SweepCompleted(ctx context.Context, now time.Time) (int, error) {
	ended := a.db.Select("id").
		From("availability_slots").
		Where(goqu.C("end_time").Lt(now))

	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"status":     entities.AppointmentStatusCompleted,
			"updated_at": now.UTC(),
		}).
		Where(
			goqu.Ex{"status": entities.AppointmentStatusBooked},
			goqu.C("availability_id").In(ended),
		).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build sweep query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewTransientIOError("failed to sweep completed appointments", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return int(rowsAffected), nil
}

func appointmentRecord(appointment *entities.Appointment) goqu.Record {
	return goqu.Record{
		"id":                  appointment.ID,
		"patient_id":          appointment.PatientID,
		"availability_id":     appointment.AvailabilityID,
		"status":              appointment.Status,
		"booked_at":           appointment.BookedAt,
		"rescheduled_from_id": appointment.RescheduledFromID,
		"price":               appointment.Price,
		"note":                appointment.Note,
		"created_at":          appointment.CreatedAt,
		"updated_at":          appointment.UpdatedAt,
	}
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var rescheduledFrom sql.NullString

	err := row.Scan(
		&appointment.ID,
		&appointment.PatientID,
		&appointment.AvailabilityID,
		&appointment.Status,
		&appointment.BookedAt,
		&rescheduledFrom,
		&appointment.Price,
		&appointment.Note,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rescheduledFrom.Valid {
		appointment.RescheduledFromID = &rescheduledFrom.String
	}
	return appointment, nil
}
