package echopulse

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/oshokin/echopulse/internal/logger"
)

// ActorMetadataKey carries the "username@hostname" of the caller.
const ActorMetadataKey = "x-echopulse-actor"

// ActorFromContext returns the caller identity sent by the client, if any.
func ActorFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	if values := md.Get(ActorMetadataKey); len(values) > 0 {
		return values[0]
	}

	return ""
}

// AuditInterceptor puts the base logger, the method and the actor into the
// request context and logs every call outcome.
func AuditInterceptor(base context.Context) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx = logger.ToContext(ctx, logger.FromContext(base))
		ctx = logger.WithKV(ctx, "method", info.FullMethod)

		if actor := ActorFromContext(ctx); actor != "" {
			ctx = logger.WithKV(ctx, "actor", actor)
		}

		startedAt := time.Now()
		resp, err := handler(ctx, req)

		if err != nil {
			logger.WarnKV(ctx, "Request failed", "code", status.Code(err).String(), "took", time.Since(startedAt))
		} else {
			logger.DebugKV(ctx, "Request served", "took", time.Since(startedAt))
		}

		return resp, err
	}
}
