package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Config{Level: "debug", Format: "json", Output: &buf})
	logger.Info("report written", "path", "/tmp/crash_1.log")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "report written", rec["msg"])
	assert.Equal(t, "/tmp/crash_1.log", rec["path"])
	assert.Equal(t, "INFO", rec["level"])
}

func TestNew_LevelFilters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Format: "text", Output: &buf})
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestNew_AutoFormatNonTerminal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Config{Format: "auto", Output: &buf})
	logger.Info("plain")

	// A buffer is never a terminal, so the text handler is used.
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestNew_RedactsSecrets(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Config{Format: "text", Output: &buf})
	token := "ghp_" + strings.Repeat("a", 36)

	logger.Error("upload failed with "+token,
		"dsn", "postgres://admin:hunter22@db:5432/app",
		"error", errors.New("auth: Bearer abcdefghijklmnopqrstuvwxyz"),
	)

	out := buf.String()
	assert.NotContains(t, out, token)
	assert.NotContains(t, out, "hunter22")
	assert.NotContains(t, out, "abcdefghijklmnopqrstuvwxyz")
	assert.Contains(t, out, "[REDACTED]")
}

func TestNew_RedactsAttrsAndGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf}).
		With("auth", "password=supersecret1")
	logger.Info("request", slog.Group("req", slog.String("key", "api_key=ABCDEFGHIJKLMNOPQRSTUVWX")))

	out := buf.String()
	assert.NotContains(t, out, "supersecret1")
	assert.NotContains(t, out, "ABCDEFGHIJKLMNOPQRSTUVWX")
}

func TestLogger_WithComponentAndSession(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf}).
		WithComponent("interceptor").
		WithSession("sess-1")
	logger.Info("ready")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "interceptor", rec["component"])
	assert.Equal(t, "sess-1", rec["session_id"])
	assert.NotNil(t, logger.Sanitizer())
}

func TestNewNop(t *testing.T) {
	t.Parallel()

	logger := NewNop()
	require.NotNil(t, logger)
	logger.Error("discarded")
	assert.Equal(t, "plain", logger.Sanitize("plain"))
}

func TestOpenOutput(t *testing.T) {
	t.Parallel()

	w, closeFn, err := OpenOutput("")
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, w)
	require.NoError(t, closeFn())

	path := filepath.Join(t.TempDir(), "logs", "crashlog.log")
	w, closeFn, err = OpenOutput(path)
	require.NoError(t, err)

	logger := New(Config{Format: "text", Output: w})
	logger.Info("to file")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestPrettyHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, slog.LevelInfo)
	logger := slog.New(h.WithGroup("crash").WithAttrs([]slog.Attr{slog.Int("code", 1)}))

	logger.Debug("skipped")
	logger.Error("terminating", "grace", "3s")

	out := buf.String()
	assert.NotContains(t, out, "skipped")
	assert.Contains(t, out, "ERR")
	assert.Contains(t, out, "terminating")
	assert.Contains(t, out, "crash.code")
	assert.Contains(t, out, "crash.grace")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}
