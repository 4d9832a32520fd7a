package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	var file, stdout bytes.Buffer
	l := NewWriter(&file, LevelInfo, true)
	l.stdout = &stdout

	l.Debug("hidden %d", 1)
	l.Info("hello %s", "world")
	l.Warn("[Retry] %s: Attempt %d/%d - Error: %v", "u", 1, 3, "boom")

	lines := strings.Split(strings.TrimSpace(file.String()), "\n")
	require.Len(t, lines, 2)
	assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} \[INFO\] hello world$`), lines[0])
	assert.Contains(t, lines[1], "[WARN] [Retry] u: Attempt 1/3 - Error: boom")
	assert.Contains(t, stdout.String(), "hello world")
	assert.NotContains(t, stdout.String(), "hidden")
}

func TestStdoutOff(t *testing.T) {
	var file, stdout bytes.Buffer
	l := NewWriter(&file, LevelDebug, false)
	l.stdout = &stdout

	l.Debug("debug line")
	l.Error("error line")

	assert.Contains(t, file.String(), "[DEBUG] debug line")
	assert.Contains(t, file.String(), "[ERROR] error line")
	assert.Empty(t, stdout.String())
}

func TestWrite(t *testing.T) {
	var file bytes.Buffer
	l := NewWriter(&file, LevelInfo, false)

	n, err := l.Write([]byte("GET /api/runs 200\n"))
	require.NoError(t, err)
	assert.Equal(t, 18, n)
	assert.Contains(t, file.String(), "[INFO] GET /api/runs 200")

	_, _ = l.Write([]byte("   \n"))
	assert.Equal(t, 1, strings.Count(file.String(), "\n"))
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "modfetch.log")

	l, err := New(path, LevelInfo, false)
	require.NoError(t, err)
	l.Info("to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] to file")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}
