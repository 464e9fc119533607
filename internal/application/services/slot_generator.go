package services

import (
	"iter"
	"time"

	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

// WorkingHours is a provider's business-hours policy for one day
type WorkingHours struct {
	OpenHour    int
	CloseHour   int
	Granularity time.Duration
}

// SlotCandidate is one offerable start time within working hours
type SlotCandidate struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Label     string    `json:"label"`
}

// SlotGenerator derives the offerable time slots for a calendar date.
// It is pure: the same date, policy, and clock always produce the same
// sequence.
type SlotGenerator struct {
	hours WorkingHours
	now   func() time.Time
}

// NewSlotGenerator creates a slot generator with the given policy. A
// zero granularity falls back to 15 minutes.
func NewSlotGenerator(hours WorkingHours) *SlotGenerator {
	if hours.Granularity <= 0 {
		hours.Granularity = 15 * time.Minute
	}
	return &SlotGenerator{
		hours: hours,
		now:   time.Now,
	}
}

// Candidates returns a lazy, restartable sequence of offerable slots
// for the date (YYYY-MM-DD) in the given location.
//
// A date before today yields an empty sequence. Today yields only slots
// strictly after the current instant. The closing hour is an inclusive
// boundary: the final candidate starts exactly at closing.
func (g *SlotGenerator) Candidates(date string, loc *time.Location) (iter.Seq[SlotCandidate], error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, apperrors.NewValidationError("date must be formatted YYYY-MM-DD")
	}

	now := g.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	open := day.Add(time.Duration(g.hours.OpenHour) * time.Hour)
	closing := day.Add(time.Duration(g.hours.CloseHour) * time.Hour)
	granularity := g.hours.Granularity

	return func(yield func(SlotCandidate) bool) {
		if day.Before(today) {
			return
		}
		for start := open; !start.After(closing); start = start.Add(granularity) {
			if day.Equal(today) && !start.After(now) {
				continue
			}
			candidate := SlotCandidate{
				StartTime: start,
				EndTime:   start.Add(granularity),
				Label:     start.Format("15:04"),
			}
			if !yield(candidate) {
				return
			}
		}
	}, nil
}
