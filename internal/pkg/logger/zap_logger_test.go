package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerAttachesModuleAndDetails(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.Info("SESSION", "session started", map[string]interface{}{"session_id": "abc"})
	l.Warn("SPEECH", "synthesis degraded", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "session started", entries[0].Message)
	assert.Equal(t, "SESSION", first["module"])
	assert.Equal(t, map[string]interface{}{"session_id": "abc"}, first["details"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, map[string]interface{}{}, entries[1].ContextMap()["details"])
}

func TestZapLoggerErrorKeepsErrorRef(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.Error("AUDIT", "insert failed", map[string]interface{}{"error": "boom"})

	entries := logs.FilterMessage("insert failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["error_ref"])
}

func TestNopLoggerIsSilent(t *testing.T) {
	l := NewNopLogger()
	l.Info("X", "nothing", nil)
	assert.NoError(t, l.Sync())
}
