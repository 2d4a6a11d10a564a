// Package scheduler runs the attendance check once a day.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/robalyx/rollcall/internal/attendance"
	"go.uber.org/zap"
)

const jobName = "daily-attendance-check"

// ErrMissingLocation is returned when no schedule location is configured.
var ErrMissingLocation = errors.New("scheduler location is required")

// Runner runs an attendance check.
type Runner interface {
	Run(ctx context.Context, trigger attendance.Trigger, window *attendance.Window) (*attendance.Report, error)
}

// Options configures the daily job.
type Options struct {
	Location *time.Location
	RunAt    attendance.TimeOfDay
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// Scheduler triggers a check every day at a fixed local time.
type Scheduler struct {
	scheduler gocron.Scheduler
	job       gocron.Job
	runner    Runner
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler with its daily job registered. Call Start to begin.
func New(runner Runner, opts Options, logger *zap.Logger) (*Scheduler, error) {
	if opts.Location == nil {
		return nil, ErrMissingLocation
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logger = logger.Named("scheduler")

	s, err := gocron.NewScheduler(
		gocron.WithLocation(opts.Location),
		gocron.WithClock(clock),
		gocron.WithLogger(newGocronLogger(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched := &Scheduler{
		scheduler: s,
		runner:    runner,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	job, err := s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			gocron.NewAtTime(uint(opts.RunAt.Hour), uint(opts.RunAt.Minute), uint(opts.RunAt.Second)),
		)),
		gocron.NewTask(sched.runJob),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to schedule job %s: %w", jobName, err)
	}

	sched.job = job

	return sched, nil
}

// Start begins running the daily job.
func (s *Scheduler) Start() {
	s.scheduler.Start()

	fields := []zap.Field{zap.String("job", jobName)}
	if next, err := s.job.NextRun(); err == nil {
		fields = append(fields, zap.Time("next_run", next))
	}

	s.logger.Info("Scheduler started", fields...)
}

// NextRun returns the next time the check is due.
func (s *Scheduler) NextRun() (time.Time, error) {
	next, err := s.job.NextRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get next run: %w", err)
	}

	return next, nil
}

// Stop shuts the scheduler down. A check already running is allowed to finish.
func (s *Scheduler) Stop() error {
	s.cancel()

	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}

	s.logger.Info("Scheduler stopped")

	return nil
}

// runJob runs one scheduled check. Failures are already logged by the checker
// and the next day's run proceeds regardless.
func (s *Scheduler) runJob() {
	start := time.Now()

	if _, err := s.runner.Run(s.ctx, attendance.TriggerScheduled, nil); err != nil {
		s.logger.Warn("Scheduled check failed", zap.Error(err))
		return
	}

	s.logger.Debug("Scheduled check completed", zap.Duration("duration", time.Since(start)))
}
