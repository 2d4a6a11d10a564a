package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/bytedance/sonic"
	"github.com/robalyx/rollcall/internal/attendance"
	"github.com/robalyx/rollcall/internal/discord"
	"github.com/robalyx/rollcall/internal/scheduler"
	"github.com/robalyx/rollcall/internal/setup"
	"github.com/robalyx/rollcall/internal/setup/config"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	// LogDir specifies where log files are stored.
	LogDir = "logs/rollcall_logs"

	// shutdownTimeout bounds disconnecting and flushing telemetry.
	shutdownTimeout = 10 * time.Second
)

var (
	// ErrWindowNeedsOnce is returned when a custom window is given outside single-shot mode.
	ErrWindowNeedsOnce = errors.New("--window-start and --window-end require --once")
	// ErrWindowIncomplete is returned when only one window boundary is given.
	ErrWindowIncomplete = errors.New("--window-start and --window-end must be given together")
	// ErrJSONNeedsOnce is returned when --json is used outside single-shot mode.
	ErrJSONNeedsOnce = errors.New("--json requires --once")
	// ErrMalformedBoundary is returned when a window boundary is not RFC 3339 with an offset.
	ErrMalformedBoundary = errors.New("window boundary must be an RFC 3339 timestamp")
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "rollcall",
		Usage: "Remind channel members who did not post their daily report",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single check and exit instead of scheduling daily checks",
			},
			&cli.StringFlag{
				Name:  "window-start",
				Usage: "Start of a custom window (RFC 3339, e.g. 2024-06-01T18:00:00+09:00); requires --once",
			},
			&cli.StringFlag{
				Name:  "window-end",
				Usage: "End of a custom window, inclusive (RFC 3339); requires --once",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the run report as JSON; requires --once",
			},
			&cli.StringFlag{
				Name:  "log-dir",
				Value: LogDir,
				Usage: "Directory for session log files",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			opts, err := newRunOptions(
				c.Bool("once"), c.Bool("json"), c.String("window-start"), c.String("window-end"),
			)
			if err != nil {
				return err
			}

			opts.logDir = c.String("log-dir")

			return runApp(ctx, opts)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, os.Args)
}

// runOptions holds the validated command line flags.
type runOptions struct {
	once    bool
	jsonOut bool
	window  *attendance.Window
	logDir  string
}

// newRunOptions validates the flag combination. A custom window is only
// accepted for single-shot runs and only as a complete pair.
func newRunOptions(once, jsonOut bool, windowStart, windowEnd string) (runOptions, error) {
	opts := runOptions{once: once, jsonOut: jsonOut}

	if jsonOut && !once {
		return opts, fmt.Errorf("%w: %w", config.ErrInvalidConfig, ErrJSONNeedsOnce)
	}

	if windowStart == "" && windowEnd == "" {
		return opts, nil
	}

	if !once {
		return opts, fmt.Errorf("%w: %w", config.ErrInvalidConfig, ErrWindowNeedsOnce)
	}

	if windowStart == "" || windowEnd == "" {
		return opts, fmt.Errorf("%w: %w", config.ErrInvalidConfig, ErrWindowIncomplete)
	}

	start, err := time.Parse(time.RFC3339, windowStart)
	if err != nil {
		return opts, fmt.Errorf("%w: %w: %q", config.ErrInvalidConfig, ErrMalformedBoundary, windowStart)
	}

	end, err := time.Parse(time.RFC3339, windowEnd)
	if err != nil {
		return opts, fmt.Errorf("%w: %w: %q", config.ErrInvalidConfig, ErrMalformedBoundary, windowEnd)
	}

	window, err := attendance.NewWindow(start, end)
	if err != nil {
		return opts, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	opts.window = &window

	return opts, nil
}

// runApp wires the checker to Discord and runs it in the selected mode.
func runApp(ctx context.Context, opts runOptions) error {
	app, err := setup.InitializeApp(ctx, opts.logDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		app.Cleanup(cleanupCtx)
	}()

	cfg := app.Config
	texts := attendance.NewTexts(cfg.Locale)

	client, err := discord.New(cfg.Discord.Token, cfg.Discord.ReportChannelID, texts, app.Logger)
	if err != nil {
		return err
	}

	checker := attendance.NewChecker(client, attendance.CheckerOptions{
		ChannelID: cfg.Discord.ReportChannelID,
		AllowList: cfg.AllowList(),
		Schedule:  cfg.AttendanceSchedule(),
		Texts:     texts,
	}, app.Logger)
	client.SetRunner(checker)

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		client.Close(closeCtx)
	}()

	if opts.once {
		return runOnce(ctx, checker, texts, opts)
	}

	return runScheduled(ctx, app, client, checker)
}

// runOnce performs one check and reports its outcome on stdout.
func runOnce(ctx context.Context, checker *attendance.Checker, texts attendance.Texts, opts runOptions) error {
	report, err := checker.Run(ctx, attendance.TriggerOneShot, opts.window)
	if err != nil {
		return fmt.Errorf("check aborted: %w", err)
	}

	if opts.jsonOut {
		out, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}

		fmt.Println(string(out))

		return nil
	}

	fmt.Println(texts.RunSummary(report))

	return nil
}

// runScheduled serves /check and runs the daily check until a shutdown signal.
func runScheduled(ctx context.Context, app *setup.App, client *discord.Client, checker *attendance.Checker) error {
	if err := client.RegisterCommands(ctx); err != nil {
		app.Logger.Warn("Manual check command unavailable", zap.Error(err))
	}

	sched, err := scheduler.New(checker, scheduler.Options{
		Location: app.Config.Location(),
		RunAt:    app.Config.RunAt(),
	}, app.Logger)
	if err != nil {
		return err
	}

	sched.Start()

	app.Logger.Info("Waiting for interrupt signal to gracefully shutdown",
		zap.Stringer("current_window", checker.CurrentWindow()))
	<-ctx.Done()

	app.Logger.Info("Shutting down")

	return sched.Stop()
}
