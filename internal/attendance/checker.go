package attendance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const tracerName = "github.com/robalyx/rollcall/internal/attendance"

// Report is the outcome of one check.
type Report struct {
	RunID     string   `json:"runId"`
	Trigger   Trigger  `json:"trigger"`
	Window    Window   `json:"window"`
	Eligible  int      `json:"eligible"`
	Reporters int      `json:"reporters"`
	Absentees []Member `json:"absentees"`
	Delivered int      `json:"delivered"`
	Failed    int      `json:"failed"`
}

// CheckerOptions configures a Checker.
type CheckerOptions struct {
	ChannelID uint64
	AllowList AllowList
	Schedule  Schedule
	Texts     Texts
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// Checker runs attendance checks against a single report channel.
type Checker struct {
	platform  Platform
	notifier  *Notifier
	channelID uint64
	allow     AllowList
	schedule  Schedule
	clock     clockwork.Clock
	tracer    trace.Tracer
	logger    *zap.Logger
	inflight  singleflight.Group
}

// NewChecker creates a Checker.
func NewChecker(platform Platform, opts CheckerOptions, logger *zap.Logger) *Checker {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logger = logger.Named("attendance")

	return &Checker{
		platform:  platform,
		notifier:  NewNotifier(platform, opts.Texts, logger.Named("notifier")),
		channelID: opts.ChannelID,
		allow:     opts.AllowList,
		schedule:  opts.Schedule,
		clock:     clock,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
	}
}

// CurrentWindow returns the window a check started now would evaluate.
func (c *Checker) CurrentWindow() Window {
	return c.schedule.WindowAt(c.clock.Now())
}

// Run performs one check. A nil window evaluates the current window of the
// schedule. Concurrent runs for the same window share a single execution.
func (c *Checker) Run(ctx context.Context, trigger Trigger, window *Window) (*Report, error) {
	w := c.CurrentWindow()
	if window != nil {
		w = *window
	}

	// The shared run is detached from the first caller's cancellation so a
	// joined caller is not aborted on its behalf.
	result, err, shared := c.inflight.Do(w.Key(), func() (any, error) {
		return c.run(context.WithoutCancel(ctx), trigger, w)
	})
	if shared {
		c.logger.Info("Joined a check already in progress",
			zap.Stringer("trigger", trigger),
			zap.Stringer("window", w))
	}

	if err != nil {
		return nil, err
	}

	return result.(*Report), nil
}

// run resolves the roster, diffs it against the window's history and notifies.
func (c *Checker) run(ctx context.Context, trigger Trigger, window Window) (*Report, error) {
	runID := uuid.NewString()
	logger := c.logger.With(zap.String("run_id", runID), zap.Stringer("trigger", trigger))

	ctx, span := c.tracer.Start(ctx, "attendance.check", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("trigger", trigger.String()),
		attribute.String("window.start", window.Start.String()),
		attribute.String("window.end", window.End.String()),
	))
	defer span.End()

	logger.Info("Checking reports",
		zap.Uint64("channel_id", c.channelID),
		zap.Time("window_start", window.Start),
		zap.Time("window_end", window.End))

	eligible, err := c.resolveEligibleMembers(ctx)
	if err != nil {
		return nil, c.abort(span, logger, err)
	}

	absentees, reporters, err := c.findAbsentees(ctx, window, eligible)
	if err != nil {
		return nil, c.abort(span, logger, err)
	}

	delivery, err := c.notifier.Notify(ctx, c.channelID, window, absentees)
	if err != nil {
		return nil, c.abort(span, logger, err)
	}

	report := &Report{
		RunID:     runID,
		Trigger:   trigger,
		Window:    window,
		Eligible:  len(eligible),
		Reporters: reporters,
		Absentees: absentees,
		Delivered: delivery.Delivered,
		Failed:    len(delivery.Failures),
	}

	span.SetAttributes(
		attribute.Int("eligible", report.Eligible),
		attribute.Int("absentees", len(report.Absentees)),
		attribute.Int("delivery.failed", report.Failed),
	)

	logger.Info("Check finished",
		zap.Int("eligible", report.Eligible),
		zap.Int("reporters", report.Reporters),
		zap.Int("absentees", len(report.Absentees)),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed))

	return report, nil
}

// resolveEligibleMembers fetches the live member directory and filters it.
func (c *Checker) resolveEligibleMembers(ctx context.Context) ([]Member, error) {
	members, err := c.platform.Members(ctx, c.channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members: %w", err)
	}

	eligible := ResolveEligible(members, c.allow)

	c.logger.Debug("Resolved eligible members",
		zap.Int("members", len(members)),
		zap.Int("eligible", len(eligible)),
		zap.Int("allow_list", len(c.allow)))

	return eligible, nil
}

// findAbsentees reads the window's history and returns the eligible members
// who did not post, along with the number of distinct reporters.
func (c *Checker) findAbsentees(ctx context.Context, window Window, eligible []Member) ([]Member, int, error) {
	messages, err := c.platform.Messages(ctx, c.channelID, window)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read message history: %w", err)
	}

	reporters := CollectReporters(messages, window)

	return FindAbsentees(eligible, reporters), len(reporters), nil
}

// abort records a failed run on the span and in the logs.
func (c *Checker) abort(span trace.Span, logger *zap.Logger, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	logger.Error("Check aborted", zap.Error(err))

	return err
}
