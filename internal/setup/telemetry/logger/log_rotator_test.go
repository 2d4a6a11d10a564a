package logger_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robalyx/rollcall/internal/setup/telemetry/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	return strings.Split(strings.TrimRight(string(content), "\n"), "\n")
}

func TestLogRotatorKeepsRecentLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "main.log")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)

	rotator := logger.NewLogRotator(file, 3, path)
	t.Cleanup(func() { _ = rotator.Close() })

	for i := range 5 {
		_, err := fmt.Fprintf(rotator, "line %d\n", i)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"line 0", "line 1", "line 2", "line 3", "line 4"}, readLines(t, path))

	// The sixth line reaches twice the capacity and truncates the file
	_, err = rotator.Write([]byte("line 5\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"line 3", "line 4", "line 5"}, readLines(t, path))

	_, err = rotator.Write([]byte("line 6\nline 7\n"))
	require.NoError(t, err)
	require.NoError(t, rotator.Sync())
	assert.Equal(t, []string{"line 3", "line 4", "line 5", "line 6", "line 7"}, readLines(t, path))
}
