package client

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/echopulse/internal/domain/alert"
	"github.com/oshokin/echopulse/internal/logger"
)

// defaultPushInterval defines retry delay when pushing a detection to the server.
const defaultPushInterval = 1 * time.Second

// DetectionSubmitter submits a detection to the server.
type DetectionSubmitter interface {
	HandleDetection(ctx context.Context, label string, confidence int) (*alert.Alert, error)
}

// SubmitDetection pushes a detection until the server answers. Only an
// unavailable server is retried; every other error is final.
func SubmitDetection(
	ctx context.Context,
	submitter DetectionSubmitter,
	label string,
	confidence int,
) (*alert.Alert, error) {
	// attempt tries once, returns (alert, retry, error).
	attempt := func() (*alert.Alert, bool, error) {
		opened, err := submitter.HandleDetection(ctx, label, confidence)
		if err == nil {
			return opened, false, nil
		}

		if status.Code(err) == codes.Unavailable {
			// Log error but continue retrying for transient failures.
			logger.WarnKV(ctx, "Server unavailable, retrying", "error", err)

			return nil, true, nil
		}

		return nil, false, err
	}

	// Attempt immediately before starting retry loop.
	if opened, retry, err := attempt(); !retry {
		return opened, err
	}

	// Setup retry timer for subsequent attempts.
	ticker := time.NewTicker(defaultPushInterval)
	defer ticker.Stop()

	// Retry loop until success or cancellation.
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			if opened, retry, err := attempt(); !retry {
				return opened, err
			}
		}
	}
}
