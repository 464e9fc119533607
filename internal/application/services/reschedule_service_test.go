package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

func bookedAppointment(id, availabilityID string) *entities.Appointment {
	return &entities.Appointment{
		ID:             id,
		PatientID:      "pat-1",
		AvailabilityID: availabilityID,
		Status:         entities.AppointmentStatusBooked,
		BookedAt:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Price:          50,
		Note:           "checkup",
	}
}

func TestReschedule_Success(t *testing.T) {
	availRepo := new(MockAvailabilityRepo)
	apptRepo := new(MockAppointmentRepo)
	service := NewRescheduleService(apptRepo, availRepo)

	old := bookedAppointment("appt-1", "slot-old")
	newSlot := openSlot("slot-new")

	apptRepo.On("GetByID", mock.Anything, "appt-1").Return(old, nil)
	availRepo.On("GetByID", mock.Anything, "slot-new").Return(newSlot, nil)
	availRepo.On("Reserve", mock.Anything, "slot-new").Return(nil)
	apptRepo.On("Reschedule", mock.Anything, old, mock.AnythingOfType("*entities.Appointment")).Return(nil)

	successor, err := service.Reschedule(context.Background(), "appt-1", "slot-new")

	require.NoError(t, err)
	assert.Equal(t, "slot-new", successor.AvailabilityID)
	assert.Equal(t, entities.AppointmentStatusBooked, successor.Status)
	require.NotNil(t, successor.RescheduledFromID)
	assert.Equal(t, "appt-1", *successor.RescheduledFromID)
	assert.Equal(t, old.PatientID, successor.PatientID)
	assert.Equal(t, old.Price, successor.Price)
	assert.Equal(t, old.Note, successor.Note)
	apptRepo.AssertExpectations(t)
	availRepo.AssertExpectations(t)
}

func TestReschedule_NonBookedPredecessor(t *testing.T) {
	availRepo := new(MockAvailabilityRepo)
	apptRepo := new(MockAppointmentRepo)
	service := NewRescheduleService(apptRepo, availRepo)

	for _, status := range []entities.AppointmentStatus{
		entities.AppointmentStatusRescheduled,
		entities.AppointmentStatusCancelledByPatient,
		entities.AppointmentStatusCancelledByDoctor,
		entities.AppointmentStatusCompleted,
	} {
		old := bookedAppointment("appt-"+string(status), "slot-old")
		old.Status = status
		apptRepo.On("GetByID", mock.Anything, old.ID).Return(old, nil)

		_, err := service.Reschedule(context.Background(), old.ID, "slot-new")

		require.Error(t, err, "status %s", status)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))
	}
	availRepo.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
}

func TestReschedule_SameSlotRejected(t *testing.T) {
	availRepo := new(MockAvailabilityRepo)
	apptRepo := new(MockAppointmentRepo)
	service := NewRescheduleService(apptRepo, availRepo)

	old := bookedAppointment("appt-1", "slot-old")
	apptRepo.On("GetByID", mock.Anything, "appt-1").Return(old, nil)

	_, err := service.Reschedule(context.Background(), "appt-1", "slot-old")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestReschedule_TargetAlreadyBooked(t *testing.T) {
	availRepo := new(MockAvailabilityRepo)
	apptRepo := new(MockAppointmentRepo)
	service := NewRescheduleService(apptRepo, availRepo)

	old := bookedAppointment("appt-1", "slot-old")
	taken := openSlot("slot-new")
	taken.IsBooked = true

	apptRepo.On("GetByID", mock.Anything, "appt-1").Return(old, nil)
	availRepo.On("GetByID", mock.Anything, "slot-new").Return(taken, nil)

	_, err := service.Reschedule(context.Background(), "appt-1", "slot-new")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAlreadyBooked))
	availRepo.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
}

func TestReschedule_LostReservationRaceHasNoSideEffects(t *testing.T) {
	availRepo := new(MockAvailabilityRepo)
	apptRepo := new(MockAppointmentRepo)
	service := NewRescheduleService(apptRepo, availRepo)

	old := bookedAppointment("appt-1", "slot-old")
	newSlot := openSlot("slot-new")

	apptRepo.On("GetByID", mock.Anything, "appt-1").Return(old, nil)
	availRepo.On("GetByID", mock.Anything, "slot-new").Return(newSlot, nil)
	availRepo.On("Reserve", mock.Anything, "slot-new").Return(apperrors.NewAlreadyBookedError("slot-new"))

	_, err := service.Reschedule(context.Background(), "appt-1", "slot-new")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAlreadyBooked))
	apptRepo.AssertNotCalled(t, "Reschedule", mock.Anything, mock.Anything, mock.Anything)
	availRepo.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestReschedule_SwapFailureReleasesNewSlot(t *testing.T) {
	availRepo := new(MockAvailabilityRepo)
	apptRepo := new(MockAppointmentRepo)
	service := NewRescheduleService(apptRepo, availRepo)

	old := bookedAppointment("appt-1", "slot-old")
	newSlot := openSlot("slot-new")

	apptRepo.On("GetByID", mock.Anything, "appt-1").Return(old, nil)
	availRepo.On("GetByID", mock.Anything, "slot-new").Return(newSlot, nil)
	availRepo.On("Reserve", mock.Anything, "slot-new").Return(nil)
	apptRepo.On("Reschedule", mock.Anything, old, mock.Anything).Return(apperrors.NewTransientIOError("tx failed", nil))
	availRepo.On("Release", mock.Anything, "slot-new").Return(nil)

	_, err := service.Reschedule(context.Background(), "appt-1", "slot-new")

	require.Error(t, err)
	availRepo.AssertCalled(t, "Release", mock.Anything, "slot-new")
}
