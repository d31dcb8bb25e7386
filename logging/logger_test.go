package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Debug("d")
	l.Info("i", "k", "v")
	l.Warn("w")
	l.Error("e")
	assert.Equal(t, NopLogger{}, l.With("k", "v"))
	assert.Equal(t, NopLogger{}, OrNop(nil))
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := NewSlogAdapter(slog.New(handler)).With("run_id", "abc")

	l.Info("unit generated", "provider", "slack")

	out := buf.String()
	assert.Contains(t, out, "unit generated")
	assert.Contains(t, out, "run_id=abc")
	assert.Contains(t, out, "provider=slack")
}

func TestSlogAdapterDefaultsToSlogDefault(t *testing.T) {
	require.NotNil(t, NewSlogAdapter(nil).logger)
}

func TestZapAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapAdapter(zap.New(core)).With("run_id", "abc")

	l.Debug("fetching spec", "source", "specs/slack.json")
	l.Warn("operation dropped", "operation", "files_upload")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "fetching spec", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "abc", entries[1].ContextMap()["run_id"])
	assert.Equal(t, "files_upload", entries[1].ContextMap()["operation"])
}

func TestZapAdapterNil(t *testing.T) {
	l := NewZapAdapter(nil)
	l.Info("discarded")
	assert.NoError(t, l.Sync())
}
