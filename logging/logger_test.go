package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewTextLogger(&buf, slog.LevelInfo)

	l.Debug("hidden %d", 1)
	l.Info("loaded %s", "/etc/ntp.conf")
	l.With("component", "session").Warn("index %d out of range", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "loaded /etc/ntp.conf")
	assert.Contains(t, out, "component=session")
	assert.Contains(t, out, "index 4 out of range")
}

func TestOrNop(t *testing.T) {
	assert.IsType(t, NopLogger{}, OrNop(nil))
	l := NewSlogLogger(nil)
	assert.Same(t, l, OrNop(l))
}
