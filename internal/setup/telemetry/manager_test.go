package telemetry_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robalyx/rollcall/internal/setup/config"
	"github.com/robalyx/rollcall/internal/setup/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRotatesSessions(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()

	base := time.Now().Add(-72 * time.Hour)
	for i, name := range []string{"2020-01-01_00-00-00", "2020-01-02_00-00-00", "2020-01-03_00-00-00"} {
		dir := filepath.Join(logDir, name)
		require.NoError(t, os.Mkdir(dir, 0o755))

		modTime := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(dir, modTime, modTime))
	}

	manager := telemetry.NewManager(t.Context(), logDir, &config.Debug{
		LogLevel:      "info",
		MaxLogsToKeep: 2,
		MaxLogLines:   100,
	}, &config.Loki{})

	logger, err := manager.GetLogger()
	require.NoError(t, err)

	logger.Info("Check finished")
	logger.Debug("below level")
	_ = logger.Sync()
	manager.Stop()

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	require.Len(t, names, 2)
	assert.Contains(t, names, "2020-01-03_00-00-00")
	assert.Contains(t, names, filepath.Base(manager.GetCurrentSessionDir()))

	content, err := os.ReadFile(filepath.Join(manager.GetCurrentSessionDir(), "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Check finished")
	assert.Contains(t, string(content), manager.GetInstanceID())
	assert.NotContains(t, string(content), "below level")
}

func TestManagerRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	manager := telemetry.NewManager(t.Context(), t.TempDir(), &config.Debug{
		LogLevel:      "loud",
		MaxLogsToKeep: 1,
		MaxLogLines:   100,
	}, &config.Loki{})

	_, err := manager.GetLogger()
	require.Error(t, err)
}
