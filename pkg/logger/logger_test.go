package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	zl "github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zl.Level
	}{
		{name: "debug", level: DebugLevel, want: zl.DebugLevel},
		{name: "info", level: InfoLevel, want: zl.InfoLevel},
		{name: "warn", level: WarnLevel, want: zl.WarnLevel},
		{name: "error", level: ErrorLevel, want: zl.ErrorLevel},
		{name: "unknown falls back to info", level: "verbose", want: zl.InfoLevel},
		{name: "empty falls back to info", level: "", want: zl.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getLogLevel(tt.level))
		})
	}
}

func capture(t *testing.T, level zl.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	engine := zl.New(&buf).Level(level)
	prev := log
	log = &logger{engine: &engine}
	t.Cleanup(func() { log = prev })
	return &buf
}

func TestDecisionFields(t *testing.T) {
	buf := capture(t, zl.DebugLevel)
	Decision("req-1", "/emby/videos/1/stream.mkv", "redirect", "no rule matched")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry[requestIDField])
	assert.Equal(t, "/emby/videos/1/stream.mkv", entry[pathField])
	assert.Equal(t, "redirect", entry[actionField])
	assert.Equal(t, "no rule matched", entry[reasonField])
	assert.True(t, strings.HasPrefix(entry[lineOfCode], "pkg/logger/logger_test.go:"), entry[lineOfCode])
}

func TestErrorWithAndWithoutCause(t *testing.T) {
	buf := capture(t, zl.DebugLevel)
	Error(errors.New("boom"), "failed")
	Errorf(nil, "failed %d", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"error":"boom"`)
	assert.Contains(t, lines[1], `"message":"failed 2"`)
	assert.NotContains(t, lines[1], `"error":`)
}

func TestDisabledLevelsAreDropped(t *testing.T) {
	buf := capture(t, zl.WarnLevel)
	Debugf("hidden %s", "x")
	Info("hidden")
	Warn("shown")

	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "shown")
}
