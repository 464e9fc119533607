package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/careloop/appointment-engine/internal/domain/repositories"
	"github.com/careloop/appointment-engine/internal/infrastructure/observability"
)

// CompletionSweeper periodically materializes the completed status for
// booked appointments whose slot has ended. Completed is terminal, so
// once swept an appointment is excluded from cancel and reschedule.
type CompletionSweeper struct {
	appointments repositories.AppointmentRepository
	cron         *cron.Cron
	spec         string
	now          func() time.Time
}

// NewCompletionSweeper creates a sweeper with a cron schedule, e.g.
// "@every 5m".
func NewCompletionSweeper(appointments repositories.AppointmentRepository, spec string) *CompletionSweeper {
	if spec == "" {
		spec = "@every 5m"
	}
	return &CompletionSweeper{
		appointments: appointments,
		cron:         cron.New(),
		spec:         spec,
		now:          time.Now,
	}
}

// Start schedules the sweep and runs it until Stop
func (s *CompletionSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.RunOnce); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *CompletionSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs a single sweep
func (s *CompletionSweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	swept, err := s.appointments.SweepCompleted(ctx, s.now().UTC())
	if err != nil {
		observability.GetLogger().Error().Err(err).Msg("completion sweep failed")
		return
	}
	if swept > 0 {
		observability.GetLogger().Info().Int("count", swept).Msg("appointments marked completed")
	}
}
