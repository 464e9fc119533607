package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusBooked             AppointmentStatus = "booked"
	AppointmentStatusCancelledByPatient AppointmentStatus = "cancelled_by_patient"
	AppointmentStatusCancelledByDoctor  AppointmentStatus = "cancelled_by_doctor"
	AppointmentStatusCompleted          AppointmentStatus = "completed"
	AppointmentStatusRescheduled        AppointmentStatus = "rescheduled"
)

// statusTransitions is the single source of truth for legal status moves.
// Every status absent from the map is terminal.
var statusTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusBooked: {
		AppointmentStatusCancelledByPatient,
		AppointmentStatusCancelledByDoctor,
		AppointmentStatusCompleted,
		AppointmentStatusRescheduled,
	},
}

// CanTransition reports whether moving from one status to another is legal
func (s AppointmentStatus) CanTransition(to AppointmentStatus) bool {
	for _, next := range statusTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible
func (s AppointmentStatus) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

// Appointment represents a confirmed reservation bound to exactly one
// availability slot at a time. RescheduledFromID is a back-reference to
// the predecessor appointment, never an ownership link.
type Appointment struct {
	ID                string            `json:"id" db:"id"`
	PatientID         string            `json:"patient_id" db:"patient_id"`
	AvailabilityID    string            `json:"availability_id" db:"availability_id"`
	Status            AppointmentStatus `json:"status" db:"status"`
	BookedAt          time.Time         `json:"booked_at" db:"booked_at"`
	RescheduledFromID *string           `json:"rescheduled_from_id,omitempty" db:"rescheduled_from_id"`
	Price             float64           `json:"price" db:"price"`
	Note              string            `json:"note" db:"note"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}
