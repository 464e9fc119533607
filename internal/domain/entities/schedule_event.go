package entities

import (
	"time"
)

// ScheduleEventType enumerates the calendar mutations the engine announces
type ScheduleEventType string

const (
	EventAvailabilityCreated    ScheduleEventType = "availability.created"
	EventAvailabilityDeleted    ScheduleEventType = "availability.deleted"
	EventAvailabilityReserved   ScheduleEventType = "availability.reserved"
	EventAvailabilityReleased   ScheduleEventType = "availability.released"
	EventAppointmentBooked      ScheduleEventType = "appointment.booked"
	EventAppointmentCancelled   ScheduleEventType = "appointment.cancelled"
	EventAppointmentRescheduled ScheduleEventType = "appointment.rescheduled"
)

// ScheduleEvent is published on every calendar mutation. Cache
// invalidation subscribes to these; SSE-style consumers may too.
type ScheduleEvent struct {
	ID             string            `json:"id"`
	EventType      ScheduleEventType `json:"event_type"`
	ProviderID     string            `json:"provider_id"`
	AvailabilityID string            `json:"availability_id,omitempty"`
	AppointmentID  string            `json:"appointment_id,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}
