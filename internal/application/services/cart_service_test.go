package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

func TestCartAdd_SetSemantics(t *testing.T) {
	availRepo := new(MockAvailabilityRepo)
	cart := NewCartService(availRepo, time.Hour)

	availRepo.On("GetByID", mock.Anything, "slot-1").Return(openSlot("slot-1"), nil)

	require.NoError(t, cart.Add(context.Background(), "sess-1", "slot-1"))
	require.NoError(t, cart.Add(context.Background(), "sess-1", "slot-1"))

	lines := cart.Lines("sess-1")
	require.Len(t, lines, 1)
	assert.Equal(t, "slot-1", lines[0].AvailabilityID)
}

func TestCartAdd_RejectsBookedSlot(t *testing.T) {
	availRepo := new(MockAvailabilityRepo)
	cart := NewCartService(availRepo, time.Hour)

	booked := openSlot("slot-1")
	booked.IsBooked = true
	availRepo.On("GetByID", mock.Anything, "slot-1").Return(booked, nil)

	err := cart.Add(context.Background(), "sess-1", "slot-1")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAlreadyBooked))
	assert.Empty(t, cart.Lines("sess-1"))
}

func TestCartAdd_UnknownSlot(t *testing.T) {
	availRepo := new(MockAvailabilityRepo)
	cart := NewCartService(availRepo, time.Hour)

	availRepo.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NewNotFoundError("availability not found"))

	err := cart.Add(context.Background(), "sess-1", "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestCartLines_OrderedByStagingTime(t *testing.T) {
	availRepo := new(MockAvailabilityRepo)
	cart := NewCartService(availRepo, time.Hour)

	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cart.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	availRepo.On("GetByID", mock.Anything, mock.Anything).Return(openSlot("any"), nil)

	require.NoError(t, cart.Add(context.Background(), "sess-1", "slot-b"))
	require.NoError(t, cart.Add(context.Background(), "sess-1", "slot-a"))
	require.NoError(t, cart.Add(context.Background(), "sess-1", "slot-c"))

	lines := cart.Lines("sess-1")
	require.Len(t, lines, 3)
	assert.Equal(t, "slot-b", lines[0].AvailabilityID)
	assert.Equal(t, "slot-a", lines[1].AvailabilityID)
	assert.Equal(t, "slot-c", lines[2].AvailabilityID)
}

func TestCartRemoveAndClear(t *testing.T) {
	availRepo := new(MockAvailabilityRepo)
	cart := NewCartService(availRepo, time.Hour)

	availRepo.On("GetByID", mock.Anything, mock.Anything).Return(openSlot("any"), nil)

	require.NoError(t, cart.Add(context.Background(), "sess-1", "slot-a"))
	require.NoError(t, cart.Add(context.Background(), "sess-1", "slot-b"))

	cart.Remove("sess-1", "slot-a")
	assert.Len(t, cart.Lines("sess-1"), 1)

	// Removing an absent line is a no-op
	cart.Remove("sess-1", "slot-a")
	cart.Remove("sess-2", "slot-a")

	cart.Clear("sess-1")
	assert.Empty(t, cart.Lines("sess-1"))
}

func TestCartSessionsAreIsolated(t *testing.T) {
	availRepo := new(MockAvailabilityRepo)
	cart := NewCartService(availRepo, time.Hour)

	availRepo.On("GetByID", mock.Anything, mock.Anything).Return(openSlot("any"), nil)

	// Two sessions may stage the same slot; exclusivity is settled at
	// reservation time, not here.
	require.NoError(t, cart.Add(context.Background(), "sess-1", "slot-a"))
	require.NoError(t, cart.Add(context.Background(), "sess-2", "slot-a"))

	assert.Len(t, cart.Lines("sess-1"), 1)
	assert.Len(t, cart.Lines("sess-2"), 1)

	cart.Clear("sess-1")
	assert.Len(t, cart.Lines("sess-2"), 1)
}

func TestCartPruneIdle(t *testing.T) {
	availRepo := new(MockAvailabilityRepo)
	cart := NewCartService(availRepo, 10*time.Minute)

	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cart.now = func() time.Time { return clock }

	availRepo.On("GetByID", mock.Anything, mock.Anything).Return(openSlot("any"), nil)
	require.NoError(t, cart.Add(context.Background(), "sess-idle", "slot-a"))
	require.NoError(t, cart.Add(context.Background(), "sess-live", "slot-a"))

	clock = clock.Add(9 * time.Minute)
	assert.Len(t, cart.Lines("sess-live"), 1) // touches the session

	clock = clock.Add(2 * time.Minute)
	cart.pruneIdle()

	assert.Empty(t, cart.Lines("sess-idle"))
	assert.Len(t, cart.Lines("sess-live"), 1)
}
