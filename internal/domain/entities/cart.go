package entities

import (
	"time"
)

// CartLine is a session-scoped intention to book a slot. It is advisory
// only: it does not reserve the slot against other sessions until the
// booking service commits it.
type CartLine struct {
	AvailabilityID string    `json:"availability_id"`
	StagedAt       time.Time `json:"staged_at"`
}
