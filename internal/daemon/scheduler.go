package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/logfields"
)

// Scheduler wraps gocron scheduler for managing periodic and one-off tasks.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start(_ context.Context) {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop(_ context.Context) error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs task at a fixed interval. Overlapping executions are
// skipped. Returns the job ID for later management.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, task func()) (string, error) {
	if interval <= 0 {
		return "", errors.ValidationError("interval must be > 0").WithContext("interval", interval.String()).Build()
	}
	return s.add(name, gocron.DurationJob(interval), task)
}

// ScheduleCron runs task on a five-field cron expression.
func (s *Scheduler) ScheduleCron(name, expr string, task func()) (string, error) {
	return s.add(name, gocron.CronJob(expr, false), task)
}

// ScheduleAt runs task once at the given instant, which must be in the future.
func (s *Scheduler) ScheduleAt(name string, at time.Time, task func()) (string, error) {
	if !at.After(time.Now()) {
		return "", errors.ValidationError("one-time job must be in the future").WithContext("at", at.Format(time.RFC3339)).Build()
	}
	return s.add(name, gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)), task)
}

func (s *Scheduler) add(name string, def gocron.JobDefinition, task func()) (string, error) {
	job, err := s.scheduler.NewJob(
		def,
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", errors.DaemonError("failed to schedule job").
			WithSeverity(errors.SeverityError).
			WithCause(err).
			WithContext("job", name).
			Build()
	}
	slog.Debug("Scheduled job", logfields.JobID(job.ID().String()), slog.String("name", name))
	return job.ID().String(), nil
}

// Remove cancels a job. Unknown or already finished jobs are ignored.
func (s *Scheduler) Remove(id string) {
	if id == "" {
		return
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return
	}
	if err := s.scheduler.RemoveJob(parsed); err != nil {
		slog.Debug("Job already gone", logfields.JobID(id), logfields.Error(err))
	}
}

// NextRun reports when a job runs next.
func (s *Scheduler) NextRun(id string) (time.Time, bool) {
	for _, j := range s.scheduler.Jobs() {
		if j.ID().String() != id {
			continue
		}
		next, err := j.NextRun()
		if err != nil || next.IsZero() {
			return time.Time{}, false
		}
		return next, true
	}
	return time.Time{}, false
}
