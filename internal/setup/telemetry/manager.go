package telemetry

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/rollcall/internal/setup/config"
	"github.com/robalyx/rollcall/internal/setup/telemetry/logger"
	"github.com/robalyx/rollcall/internal/setup/telemetry/loki"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ComponentName identifies this program in log labels and traces.
const ComponentName = "rollcall"

// Manager handles the creation and management of log files and directories.
// Each program run writes to its own timestamped session directory.
type Manager struct {
	lokiPusher        *loki.Pusher // Loki pusher for cloud logging
	instanceID        string       // Unique identifier for this program instance
	currentSessionDir string       // Path to the current session's log directory
	logDir            string       // Base directory for all logs
	level             string       // Logging level (debug, info, warn, error)
	maxLogsToKeep     int          // Maximum number of log sessions to retain
	maxLogLines       int          // Maximum number of lines to keep in each log file
	console           zapcore.WriteSyncer
	rotators          []*logger.LogRotator
}

// NewManager creates a new Manager instance.
func NewManager(ctx context.Context, logDir string, debugCfg *config.Debug, lokiCfg *config.Loki) *Manager {
	instanceID := uuid.New().String()

	manager := &Manager{
		instanceID:    instanceID,
		logDir:        logDir,
		level:         debugCfg.LogLevel,
		maxLogsToKeep: debugCfg.MaxLogsToKeep,
		maxLogLines:   debugCfg.MaxLogLines,
		// Hide Sync: fsync on a terminal or pipe fails on some platforms
		console: zapcore.Lock(zapcore.AddSync(struct{ io.Writer }{os.Stderr})),
	}

	// Initialize Loki pusher if enabled
	if lokiCfg.Enabled && lokiCfg.URL != "" {
		baseLabels := make(map[string]string)
		maps.Copy(baseLabels, lokiCfg.Labels)

		baseLabels["component"] = ComponentName
		baseLabels["instance_id"] = instanceID

		lokiConfigWithLabels := *lokiCfg
		lokiConfigWithLabels.Labels = baseLabels
		manager.lokiPusher = loki.NewPusher(ctx, lokiConfigWithLabels)
	}

	return manager
}

// Stop gracefully shuts down the telemetry manager.
// This should be called on application shutdown to ensure logs are flushed.
func (lm *Manager) Stop() {
	if lm.lokiPusher != nil {
		lm.lokiPusher.Stop()
	}

	for _, rotator := range lm.rotators {
		_ = rotator.Close()
	}
}

// GetLogger creates the session directory and the main application logger.
func (lm *Manager) GetLogger() (*zap.Logger, error) {
	if err := lm.setupLogDirectories(); err != nil {
		return nil, err
	}

	mainLogger, err := lm.initLogger(filepath.Join(lm.currentSessionDir, "main.log"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize main logger: %w", err)
	}

	return mainLogger.With(zap.String("instance_id", lm.instanceID)), nil
}

// GetCurrentSessionDir returns the current session directory.
func (lm *Manager) GetCurrentSessionDir() string {
	return lm.currentSessionDir
}

// GetInstanceID returns the unique instance identifier for this program run.
func (lm *Manager) GetInstanceID() string {
	return lm.instanceID
}

// setupLogDirectories creates and manages the log directory structure.
// It ensures the base directory exists, rotates old logs, and creates a new session directory.
func (lm *Manager) setupLogDirectories() error {
	if err := os.MkdirAll(lm.logDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	// Keep room for the session about to be created
	if err := lm.rotateLogSessions(lm.maxLogsToKeep - 1); err != nil {
		return fmt.Errorf("failed to rotate log sessions: %w", err)
	}

	lm.currentSessionDir = filepath.Join(lm.logDir, time.Now().Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(lm.currentSessionDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	return nil
}

// initLogger creates a zap logger writing to the console, the session file,
// Loki when enabled and OpenTelemetry for errors.
func (lm *Manager) initLogger(logPath string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(lm.level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", logPath, err)
	}

	rotator := logger.NewLogRotator(file, lm.maxLogLines, logPath)
	lm.rotators = append(lm.rotators, rotator)

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			lm.console,
			zapLevel,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			rotator,
			zapLevel,
		),
		NewCore(zapcore.ErrorLevel),
	}

	if lm.lokiPusher != nil {
		cores = append(cores, loki.NewCore(zapLevel, lm.lokiPusher))
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// rotateLogSessions removes the oldest session directories until at most keep remain.
func (lm *Manager) rotateLogSessions(keep int) error {
	sessions, err := filepath.Glob(filepath.Join(lm.logDir, "*"))
	if err != nil {
		return err
	}

	if keep < 0 {
		keep = 0
	}

	sessions = sessionsOldestFirst(sessions)
	if len(sessions) <= keep {
		return nil
	}

	toDelete := len(sessions) - keep
	for i := range toDelete {
		if err := os.RemoveAll(sessions[i]); err != nil {
			return err
		}
	}

	return nil
}

// sessionsOldestFirst sorts session paths by modification time, oldest first.
// Paths that can no longer be stat'ed are left out.
func sessionsOldestFirst(paths []string) []string {
	type session struct {
		path    string
		modTime time.Time
	}

	sessions := make([]session, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		sessions = append(sessions, session{path: path, modTime: info.ModTime()})
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].modTime.Before(sessions[j].modTime)
	})

	sorted := make([]string, len(sessions))
	for i, s := range sessions {
		sorted[i] = s.path
	}

	return sorted
}
