package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careloop/appointment-engine/internal/domain/entities"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

// NotificationService records appointment notices. Delivery happens
// through an out-of-scope channel that drains the notifications table;
// the engine only writes the rows, best-effort.
type NotificationService struct {
	db *sqlx.DB
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *sqlx.DB) *NotificationService {
	return &NotificationService{db: db}
}

const insertNotificationQuery = `
	INSERT INTO notifications (id, kind, appointment_id, patient_id, body, created_at)
	VALUES (:id, :kind, :appointment_id, :patient_id, :body, :created_at)`

// RecordBookingConfirmation records a confirmation notice for a new booking
func (n *NotificationService) RecordBookingConfirmation(ctx context.Context, appointment *entities.Appointment, slot *entities.Availability) error {
	body := fmt.Sprintf("Your appointment on %s at %s is confirmed.", slot.Date, slot.StartTime.Format("15:04"))
	return n.insert(ctx, entities.NotificationBookingConfirmation, appointment, body)
}

// RecordCancellationNotice records a notice for a cancelled appointment
func (n *NotificationService) RecordCancellationNotice(ctx context.Context, appointment *entities.Appointment, slot *entities.Availability) error {
	body := fmt.Sprintf("Your appointment on %s at %s has been cancelled.", slot.Date, slot.StartTime.Format("15:04"))
	return n.insert(ctx, entities.NotificationCancellationNotice, appointment, body)
}

// RecordRescheduleNotice records a notice for a rescheduled appointment
func (n *NotificationService) RecordRescheduleNotice(ctx context.Context, appointment *entities.Appointment, slot *entities.Availability) error {
	body := fmt.Sprintf("Your appointment has been moved to %s at %s.", slot.Date, slot.StartTime.Format("15:04"))
	return n.insert(ctx, entities.NotificationRescheduleNotice, appointment, body)
}

func (n *NotificationService) insert(ctx context.Context, kind entities.NotificationKind, appointment *entities.Appointment, body string) error {
	notification := &entities.Notification{
		ID:            uuid.New().String(),
		Kind:          kind,
		AppointmentID: appointment.ID,
		PatientID:     appointment.PatientID,
		Body:          body,
		CreatedAt:     time.Now().UTC(),
	}

	if _, err := n.db.NamedExecContext(ctx, insertNotificationQuery, notification); err != nil {
		return apperrors.NewTransientIOError("failed to record notification", err)
	}
	return nil
}
