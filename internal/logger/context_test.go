package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestFromContext_FallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithNameAndKV verifies names and fields propagate through the context.
func TestWithNameAndKV(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "ledger")
	ctx = WithKV(ctx, "alert_id", "a-1")

	InfoKV(ctx, "Alert opened", "label", "Call for help")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "ledger", entries[0].LoggerName)
	require.Equal(t, "Alert opened", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, "a-1", fields["alert_id"])
	require.Equal(t, "Call for help", fields["label"])
}
