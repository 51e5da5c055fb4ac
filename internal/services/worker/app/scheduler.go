package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs materialization daily at 03:15 local time.
const DefaultSchedule = "15 3 * * *"

// Scheduler fires a job on a standard five-field cron schedule. Overlapping
// runs are skipped and panics are recovered.
type Scheduler struct {
	schedule cron.Schedule
	cron     *cron.Cron
}

// NewScheduler parses a cron expression and prepares a scheduler in loc.
func NewScheduler(spec string, loc *time.Location, logger *log.Logger) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.Default()
	}
	cronLogger := cron.PrintfLogger(logger)
	return &Scheduler{
		schedule: schedule,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}, nil
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.cron.Location()))
}

// Run schedules job and blocks until ctx is cancelled, then waits for a
// running job to finish.
func (s *Scheduler) Run(ctx context.Context, job func(context.Context)) error {
	if s == nil || s.cron == nil {
		return fmt.Errorf("scheduler is not configured")
	}
	if job == nil {
		return fmt.Errorf("job is required")
	}
	s.cron.Schedule(s.schedule, cron.FuncJob(func() { job(ctx) }))
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
