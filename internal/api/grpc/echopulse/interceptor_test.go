package echopulse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/oshokin/echopulse/internal/domain/failure"
	"github.com/oshokin/echopulse/internal/logger"
)

// TestAuditInterceptor logs the method, the actor and failed calls.
func TestAuditInterceptor(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	base := logger.ToContext(context.Background(), zap.New(core).Sugar())

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(ActorMetadataKey, "jane@home"))
	info := &grpc.UnaryServerInfo{FullMethod: FullMethod(MethodResolveAlert)}

	_, err := AuditInterceptor(base)(ctx, nil, info, func(context.Context, any) (any, error) {
		return nil, StatusError(failure.ErrNotFound)
	})
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "Request failed", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, "/echopulse.v1.EchoPulseService/ResolveAlert", fields["method"])
	require.Equal(t, "jane@home", fields["actor"])
	require.Equal(t, "NotFound", fields["code"])
}

// TestActorFromContext is empty without metadata.
func TestActorFromContext(t *testing.T) {
	t.Parallel()

	require.Empty(t, ActorFromContext(context.Background()))
}
