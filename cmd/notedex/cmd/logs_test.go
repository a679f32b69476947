package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"time":"2024-01-02T09:15:00.000Z","level":"INFO","msg":"index_started","path":"/notes"}
{"time":"2024-01-02T09:15:00.100Z","level":"WARN","msg":"note_skipped","path":"/notes/draft.md"}
{"time":"2024-01-02T09:15:00.200Z","level":"INFO","msg":"index_complete","notes":2}
`

func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notedex.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))
	return path
}

func TestLogsCmd_Tail(t *testing.T) {
	// Given: a log file with three entries
	isolateEnv(t)
	path := writeLog(t)

	// When: showing the last two lines
	stdout, stderr, err := execute(t, "logs", "--file", path, "-n", "2", "--no-color")

	// Then: only those entries are printed, formatted
	require.NoError(t, err)
	assert.Contains(t, stderr, "Log file: "+path)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "WARN  note_skipped path=/notes/draft.md")
	assert.Contains(t, lines[1], "INFO  index_complete notes=2")
}

func TestLogsCmd_LevelFilter(t *testing.T) {
	isolateEnv(t)
	path := writeLog(t)

	stdout, _, err := execute(t, "logs", "--file", path, "--level", "warn", "--no-color")

	require.NoError(t, err)
	assert.Contains(t, stdout, "note_skipped")
	assert.NotContains(t, stdout, "index_started")
	assert.NotContains(t, stdout, "index_complete")
}

func TestLogsCmd_PatternFilter(t *testing.T) {
	isolateEnv(t)
	path := writeLog(t)

	stdout, _, err := execute(t, "logs", "--file", path, "--filter", `draft\.md`, "--no-color")

	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "\n"))
	assert.Contains(t, stdout, "note_skipped")
}

func TestLogsCmd_InvalidPattern(t *testing.T) {
	isolateEnv(t)
	path := writeLog(t)

	_, _, err := execute(t, "logs", "--file", path, "--filter", "(")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestLogsCmd_MissingFile(t *testing.T) {
	// Given: no log has been written yet
	isolateEnv(t)

	// When: viewing logs
	_, _, err := execute(t, "logs")

	// Then: the user is told where the log is expected
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log file found")
}
