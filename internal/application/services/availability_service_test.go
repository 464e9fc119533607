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

func setupAvailabilityService(t *testing.T) (*AvailabilityService, *MockAvailabilityRepo) {
	t.Helper()
	repo := new(MockAvailabilityRepo)
	generator := NewSlotGenerator(WorkingHours{OpenHour: 8, CloseHour: 20, Granularity: 15 * time.Minute})
	clock := func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	generator.now = clock
	service := NewAvailabilityService(repo, generator, "UTC")
	service.now = clock
	return service, repo
}

// calendarSlot builds an existing slot on the test date with the given
// wall-clock window.
func calendarSlot(id string, startHour, startMin int, slotType entities.SlotType) *entities.Availability {
	start := time.Date(2026, 3, 2, startHour, startMin, 0, 0, time.UTC)
	return &entities.Availability{
		ID:         id,
		ProviderID: "prov-1",
		Date:       "2026-03-02",
		StartTime:  start,
		EndTime:    start.Add(slotType.Duration()),
		SlotType:   slotType,
		Timezone:   "UTC",
	}
}

func TestCreateSlots_Success(t *testing.T) {
	service, repo := setupAvailabilityService(t)
	repo.On("ListByProviderDate", mock.Anything, "prov-1", "2026-03-02").Return([]*entities.Availability{}, nil)
	repo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)

	slots, problems, err := service.CreateSlots(context.Background(), "prov-1", "2026-03-02", []string{"09:00", "09:30"}, entities.SlotTypeStandard)

	require.NoError(t, err)
	assert.Empty(t, problems)
	require.Len(t, slots, 2)
	assert.Equal(t, "prov-1", slots[0].ProviderID)
	assert.Equal(t, "2026-03-02", slots[0].Date)
	assert.Equal(t, entities.SlotTypeStandard, slots[0].SlotType)
	assert.Equal(t, slots[0].StartTime.Add(entities.SlotTypeStandard.Duration()), slots[0].EndTime)
	assert.False(t, slots[0].IsBooked)
	assert.NotEqual(t, slots[0].ID, slots[1].ID)
	repo.AssertExpectations(t)
}

func TestCreateSlots_ExtendedSlotSpansItsDuration(t *testing.T) {
	service, repo := setupAvailabilityService(t)
	repo.On("ListByProviderDate", mock.Anything, "prov-1", "2026-03-02").Return([]*entities.Availability{}, nil)
	repo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)

	slots, _, err := service.CreateSlots(context.Background(), "prov-1", "2026-03-02", []string{"10:00"}, entities.SlotTypeExtended)

	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, slots[0].StartTime.Add(entities.SlotTypeExtended.Duration()), slots[0].EndTime)
}

func TestCreateSlots_AllOrNothingOnProblems(t *testing.T) {
	service, repo := setupAvailabilityService(t)
	repo.On("ListByProviderDate", mock.Anything, "prov-1", "2026-03-02").Return([]*entities.Availability{}, nil)

	slots, problems, err := service.CreateSlots(context.Background(), "prov-1", "2026-03-02",
		[]string{"09:00", "09:07", "09:00", "21:00"}, entities.SlotTypeStandard)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Nil(t, slots)
	require.Len(t, problems, 3)
	assert.Contains(t, problems[0], "09:07")
	assert.Contains(t, problems[1], "09:00")
	assert.Contains(t, problems[1], "duplicated")
	assert.Contains(t, problems[2], "21:00")
	repo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestCreateSlots_PastDateHasNoCandidates(t *testing.T) {
	service, repo := setupAvailabilityService(t)
	repo.On("ListByProviderDate", mock.Anything, "prov-1", "2026-02-28").Return([]*entities.Availability{}, nil)

	_, problems, err := service.CreateSlots(context.Background(), "prov-1", "2026-02-28", []string{"09:00"}, entities.SlotTypeStandard)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Len(t, problems, 1)
	repo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestCreateSlots_RejectsOverlapWithExistingSlot(t *testing.T) {
	service, repo := setupAvailabilityService(t)

	// A standard slot already sits at 09:30; an extended slot starting
	// 09:00 would run until 10:00 across it.
	existing := []*entities.Availability{calendarSlot("slot-1", 9, 30, entities.SlotTypeStandard)}
	repo.On("ListByProviderDate", mock.Anything, "prov-1", "2026-03-02").Return(existing, nil)

	slots, problems, err := service.CreateSlots(context.Background(), "prov-1", "2026-03-02", []string{"09:00"}, entities.SlotTypeExtended)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	assert.Nil(t, slots)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "09:00")
	assert.Contains(t, problems[0], "09:30")
	repo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestCreateSlots_RejectsOverlapWithinBatch(t *testing.T) {
	service, repo := setupAvailabilityService(t)
	repo.On("ListByProviderDate", mock.Anything, "prov-1", "2026-03-02").Return([]*entities.Availability{}, nil)

	// Two extended slots 30 minutes apart overlap each other.
	slots, problems, err := service.CreateSlots(context.Background(), "prov-1", "2026-03-02", []string{"09:00", "09:30"}, entities.SlotTypeExtended)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	assert.Nil(t, slots)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "09:30")
	repo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestCreateSlots_AdjacentWindowsDoNotConflict(t *testing.T) {
	service, repo := setupAvailabilityService(t)

	// [09:00, 09:30) and [09:30, 10:00) share only the boundary instant.
	existing := []*entities.Availability{calendarSlot("slot-1", 9, 0, entities.SlotTypeStandard)}
	repo.On("ListByProviderDate", mock.Anything, "prov-1", "2026-03-02").Return(existing, nil)
	repo.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)

	slots, problems, err := service.CreateSlots(context.Background(), "prov-1", "2026-03-02", []string{"09:30"}, entities.SlotTypeStandard)

	require.NoError(t, err)
	assert.Empty(t, problems)
	require.Len(t, slots, 1)
	repo.AssertExpectations(t)
}

func TestCreateSlots_InputValidation(t *testing.T) {
	service, repo := setupAvailabilityService(t)

	cases := []struct {
		name       string
		providerID string
		startTimes []string
		slotType   entities.SlotType
	}{
		{"missing provider", "", []string{"09:00"}, entities.SlotTypeStandard},
		{"unknown slot type", "prov-1", []string{"09:00"}, entities.SlotType("walk-in")},
		{"empty start times", "prov-1", nil, entities.SlotTypeStandard},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := service.CreateSlots(context.Background(), tc.providerID, "2026-03-02", tc.startTimes, tc.slotType)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		})
	}
	repo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestDeleteSlot_Success(t *testing.T) {
	service, repo := setupAvailabilityService(t)
	repo.On("GetByID", mock.Anything, "slot-1").Return(openSlot("slot-1"), nil)
	repo.On("Delete", mock.Anything, "slot-1").Return(nil)

	require.NoError(t, service.DeleteSlot(context.Background(), "slot-1"))
	repo.AssertExpectations(t)
}

func TestDeleteSlot_MissingSlot(t *testing.T) {
	service, repo := setupAvailabilityService(t)
	repo.On("GetByID", mock.Anything, "slot-x").Return(nil, apperrors.NewNotFoundError("availability not found"))

	err := service.DeleteSlot(context.Background(), "slot-x")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCandidates_DelegatesToGenerator(t *testing.T) {
	service, _ := setupAvailabilityService(t)

	candidates, err := service.Candidates("2026-03-02")

	require.NoError(t, err)
	assert.Len(t, candidates, 49)
	assert.Equal(t, "08:00", candidates[0].Label)
	assert.Equal(t, "20:00", candidates[len(candidates)-1].Label)
}
