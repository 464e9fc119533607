package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	"github.com/careloop/appointment-engine/internal/domain/repositories"
	"github.com/careloop/appointment-engine/internal/infrastructure/clients/postgres"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

func setupAvailabilityAdapter(t *testing.T) (repositories.AvailabilityRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	adapter := NewAvailabilityAdapter(postgres.NewClientWithDB(db))
	return adapter, mock
}

func availabilityRows(slot *entities.Availability) *sqlmock.Rows {
	date, _ := time.Parse("2006-01-02", slot.Date)
	return sqlmock.NewRows([]string{
		"id", "provider_id", "date", "start_time", "end_time",
		"slot_type", "timezone", "is_booked", "created_at", "updated_at",
	}).AddRow(
		slot.ID, slot.ProviderID, date, slot.StartTime, slot.EndTime,
		slot.SlotType, slot.Timezone, slot.IsBooked, slot.CreatedAt, slot.UpdatedAt,
	)
}

func sampleSlot(id string, booked bool) *entities.Availability {
	return &entities.Availability{
		ID:         id,
		ProviderID: "prov-1",
		Date:       "2026-03-02",
		StartTime:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		SlotType:   entities.SlotTypeStandard,
		Timezone:   "UTC",
		IsBooked:   booked,
		CreatedAt:  time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestReserve_WinsRace(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	mock.ExpectExec(`UPDATE "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Reserve(context.Background(), "slot-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve_LosesRace(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	// CAS update touches nothing, and the follow-up read shows why: the
	// slot exists but is already booked.
	mock.ExpectExec(`UPDATE "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM "availability_slots"`).
		WillReturnRows(availabilityRows(sampleSlot("slot-1", true)))

	err := adapter.Reserve(context.Background(), "slot-1")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAlreadyBooked))

	appErr := err.(*apperrors.AppError)
	assert.Equal(t, "slot-1", appErr.Details["availability_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve_MissingSlot(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	mock.ExpectExec(`UPDATE "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM "availability_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := adapter.Reserve(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestRelease_Idempotent(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	mock.ExpectExec(`UPDATE "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.Release(context.Background(), "slot-1"))

	// Releasing an already-free slot still matches the row.
	mock.ExpectExec(`UPDATE "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, adapter.Release(context.Background(), "slot-1"))
}

func TestRelease_MissingSlot(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	mock.ExpectExec(`UPDATE "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := adapter.Release(context.Background(), "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestCreateBatch_Success(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	mock.ExpectExec(`INSERT INTO "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := adapter.CreateBatch(context.Background(), []*entities.Availability{
		sampleSlot("slot-1", false),
		sampleSlot("slot-2", false),
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBatch_DuplicateSlot(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	mock.ExpectExec(`INSERT INTO "availability_slots"`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := adapter.CreateBatch(context.Background(), []*entities.Availability{
		sampleSlot("slot-1", false),
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	appErr := err.(*apperrors.AppError)
	assert.Equal(t, "prov-1", appErr.Details["provider_id"])
	assert.Equal(t, "2026-03-02", appErr.Details["date"])
}

func TestCreateBatch_Empty(t *testing.T) {
	adapter, _ := setupAvailabilityAdapter(t)

	err := adapter.CreateBatch(context.Background(), nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestDelete_OpenSlot(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	mock.ExpectExec(`DELETE FROM "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.Delete(context.Background(), "slot-1"))
}

func TestDelete_BookedSlot(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	mock.ExpectExec(`DELETE FROM "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM "availability_slots"`).
		WillReturnRows(availabilityRows(sampleSlot("slot-1", true)))

	err := adapter.Delete(context.Background(), "slot-1")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestDelete_MissingSlot(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	mock.ExpectExec(`DELETE FROM "availability_slots"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM "availability_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := adapter.Delete(context.Background(), "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestGetByID_FormatsDate(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	mock.ExpectQuery(`SELECT .* FROM "availability_slots"`).
		WillReturnRows(availabilityRows(sampleSlot("slot-1", false)))

	slot, err := adapter.GetByID(context.Background(), "slot-1")

	require.NoError(t, err)
	assert.Equal(t, "slot-1", slot.ID)
	assert.Equal(t, "2026-03-02", slot.Date)
	assert.Equal(t, entities.SlotTypeStandard, slot.SlotType)
}

func TestListByProvider_Pagination(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "availability_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(45))

	rows := availabilityRows(sampleSlot("slot-21", false))
	mock.ExpectQuery(`SELECT .* FROM "availability_slots" .* ORDER BY "start_time" ASC LIMIT 20 OFFSET 20`).
		WillReturnRows(rows)

	page, err := adapter.ListByProvider(context.Background(), "prov-1", repositories.PageRequest{Number: 2, Size: 20})

	require.NoError(t, err)
	assert.Equal(t, 45, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "slot-21", page.Items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByProviderDate_DayCalendar(t *testing.T) {
	adapter, mock := setupAvailabilityAdapter(t)

	mock.ExpectQuery(`SELECT .* FROM "availability_slots" WHERE \(\("date" = '2026-03-02'\) AND \("provider_id" = 'prov-1'\)\) ORDER BY "start_time" ASC`).
		WillReturnRows(availabilityRows(sampleSlot("slot-1", false)))

	slots, err := adapter.ListByProviderDate(context.Background(), "prov-1", "2026-03-02")

	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "slot-1", slots[0].ID)
	assert.Equal(t, "2026-03-02", slots[0].Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}
