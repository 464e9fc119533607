package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCompletionSweeper_RunOnceSweepsAtCurrentTime(t *testing.T) {
	repo := new(MockAppointmentRepo)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sweeper := NewCompletionSweeper(repo, "")
	sweeper.now = func() time.Time { return clock }

	repo.On("SweepCompleted", mock.Anything, clock).Return(3, nil)

	sweeper.RunOnce()

	repo.AssertExpectations(t)
}

func TestCompletionSweeper_RunOnceToleratesStoreFailure(t *testing.T) {
	repo := new(MockAppointmentRepo)

	sweeper := NewCompletionSweeper(repo, "@every 1m")

	repo.On("SweepCompleted", mock.Anything, mock.Anything).
		Return(0, assert.AnError)

	assert.NotPanics(t, func() { sweeper.RunOnce() })
	repo.AssertExpectations(t)
}

func TestCompletionSweeper_RejectsInvalidCronSpec(t *testing.T) {
	sweeper := NewCompletionSweeper(new(MockAppointmentRepo), "not a cron spec")

	err := sweeper.Start()

	assert.Error(t, err)
}
