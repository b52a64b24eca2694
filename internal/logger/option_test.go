package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestWithLevel drops entries below the pinned level.
func TestWithLevel(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	l := zap.New(core, WithLevel(zapcore.WarnLevel))

	l.Info("dropped")
	l.Warn("kept")

	require.Equal(t, 1, logs.Len())
	require.Equal(t, "kept", logs.All()[0].Message)
}

// TestStdLogger returns a usable standard logger.
func TestStdLogger(t *testing.T) {
	t.Parallel()

	require.NotNil(t, StdLogger("mqtt", zapcore.WarnLevel))
}
