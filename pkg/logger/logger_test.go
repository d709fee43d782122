package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestLevelBasedMuxHandler_DebugStaysOnStdout(t *testing.T) {
	var stdout, file bytes.Buffer
	log := slog.New(NewLevelBasedMuxHandler(&stdout, &file, slog.LevelDebug))

	log.Debug("rule evaluated", slog.String("rule", "velocity"))
	log.Info("batch finished", slog.Int("total", 3))

	stdoutRecs := decodeLines(t, &stdout)
	fileRecs := decodeLines(t, &file)

	require.Len(t, stdoutRecs, 2)
	require.Len(t, fileRecs, 1)
	assert.Equal(t, "batch finished", fileRecs[0]["msg"])
	assert.Contains(t, fileRecs[0], "source")
	assert.NotContains(t, stdoutRecs[1], "source")
}

func TestLevelBasedMuxHandler_WithAttrsPropagates(t *testing.T) {
	var stdout, file bytes.Buffer
	log := slog.New(NewLevelBasedMuxHandler(&stdout, &file, slog.LevelInfo)).
		With(slog.String("trace_id", "abc"))

	log.Warn("dropped")

	for _, buf := range []*bytes.Buffer{&stdout, &file} {
		recs := decodeLines(t, buf)
		require.Len(t, recs, 1)
		assert.Equal(t, "abc", recs[0]["trace_id"])
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := NewLoggerWithFile(path, slog.LevelInfo)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	_, err = NewLoggerWithFile(filepath.Join(t.TempDir(), "missing", "app.log"), slog.LevelInfo)
	assert.Error(t, err)
}
