package entities

import (
	"time"
)

// NotificationKind enumerates the notices the engine records
type NotificationKind string

const (
	NotificationBookingConfirmation NotificationKind = "booking_confirmation"
	NotificationCancellationNotice  NotificationKind = "cancellation_notice"
	NotificationRescheduleNotice    NotificationKind = "reschedule_notice"
)

// Notification is a persisted notice about an appointment. Delivery to
// the patient happens through an out-of-scope channel that drains this
// table.
type Notification struct {
	ID            string           `json:"id" db:"id"`
	Kind          NotificationKind `json:"kind" db:"kind"`
	AppointmentID string           `json:"appointment_id" db:"appointment_id"`
	PatientID     string           `json:"patient_id" db:"patient_id"`
	Body          string           `json:"body" db:"body"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}
