package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogf_IncludesTopic(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo)

	l.Logf("scanner", "failed to process %s", "/p/a.c")

	out := buf.String()
	assert.Contains(t, out, "topic=scanner")
	assert.Contains(t, out, "failed to process /p/a.c")
}

func TestDebugf_FilteredByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo)

	l.Debugf("scanner", "hidden")

	assert.Empty(t, buf.String())
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelFromString("DEBUG"))
	assert.Equal(t, slog.LevelWarn, LevelFromString("warning"))
	assert.Equal(t, slog.LevelError, LevelFromString("error"))
	assert.Equal(t, slog.LevelInfo, LevelFromString("nonsense"))
}

func TestErrorLog_WritesAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelWarn)

	l.ErrorLog("mcp").Printf("read stdin: %s", "broken pipe")

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "topic=mcp")
	assert.Contains(t, out, "read stdin: broken pipe")
}
