package setup

import (
	"context"
	"log"

	"github.com/robalyx/rollcall/internal/setup/config"
	"github.com/robalyx/rollcall/internal/setup/telemetry"
	"go.uber.org/zap"
)

// App bundles the configuration and the telemetry shared by every run mode.
type App struct {
	Config          *config.Config     // Application configuration
	Logger          *zap.Logger        // Main application logger
	LogManager      *telemetry.Manager // Log management system
	shutdownTracing func(context.Context) error
}

// InitializeApp loads the configuration and brings up logging and tracing.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues. It outlives
	// the signal context so shutdown logs still ship; Cleanup stops it.
	logManager := telemetry.NewManager(context.WithoutCancel(ctx), logDir, &cfg.Debug, &cfg.Loki)

	logger, err := logManager.GetLogger()
	if err != nil {
		logManager.Stop()
		return nil, err
	}

	shutdownTracing := telemetry.SetupTracing(&cfg.Uptrace, logManager.GetInstanceID())

	logger.Info("Configuration loaded",
		zap.String("config_dir", configDir),
		zap.Uint64("channel_id", cfg.Discord.ReportChannelID),
		zap.String("timezone", cfg.Location().String()),
		zap.Stringer("run_at", cfg.RunAt()),
		zap.String("locale", cfg.Locale),
		zap.Uint64s("target_member_ids", cfg.AllowList().IDs()),
		zap.Bool("tracing", cfg.Uptrace.DSN != ""),
		zap.String("log_dir", logManager.GetCurrentSessionDir()))

	return &App{
		Config:          cfg,
		Logger:          logger,
		LogManager:      logManager,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Cleanup flushes traces and logs. Errors are reported but do not stop the remaining steps.
func (s *App) Cleanup(ctx context.Context) {
	if err := s.shutdownTracing(ctx); err != nil {
		s.Logger.Error("Failed to shutdown tracing", zap.Error(err))
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	// Stop telemetry manager to flush Loki logs
	s.LogManager.Stop()
}
