package entities

import (
	"time"
)

// SlotType is the duration class of an availability slot
type SlotType string

const (
	SlotTypeShort    SlotType = "short"
	SlotTypeStandard SlotType = "standard"
	SlotTypeExtended SlotType = "extended"
)

// Duration returns the length of a slot of this type
func (t SlotType) Duration() time.Duration {
	switch t {
	case SlotTypeShort:
		return 15 * time.Minute
	case SlotTypeExtended:
		return 60 * time.Minute
	default:
		return 30 * time.Minute
	}
}

// Valid reports whether the slot type is a known duration class
func (t SlotType) Valid() bool {
	switch t {
	case SlotTypeShort, SlotTypeStandard, SlotTypeExtended:
		return true
	}
	return false
}

// Availability represents a single bookable time window offered by a
// provider. For a given provider no two records may overlap in
// [StartTime, EndTime).
type Availability struct {
	ID         string    `json:"id" db:"id"`
	ProviderID string    `json:"provider_id" db:"provider_id"`
	Date       string    `json:"date" db:"date"`
	StartTime  time.Time `json:"start_time" db:"start_time"`
	EndTime    time.Time `json:"end_time" db:"end_time"`
	SlotType   SlotType  `json:"slot_type" db:"slot_type"`
	Timezone   string    `json:"timezone" db:"timezone"`
	IsBooked   bool      `json:"is_booked" db:"is_booked"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
