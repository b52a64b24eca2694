package echopulse

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/echopulse/internal/domain/failure"
)

// ErrorDomain is the ErrorInfo domain of EchoPulse errors.
const ErrorDomain = "echopulse"

// ErrorInfo reasons, one per domain sentinel.
const (
	ReasonValidation              = "VALIDATION"
	ReasonNotFound                = "NOT_FOUND"
	ReasonPrimaryContactProtected = "PRIMARY_CONTACT_PROTECTED"
	ReasonSessionNotListening     = "SESSION_NOT_LISTENING"
)

var sentinels = []struct {
	err    error
	code   codes.Code
	reason string
}{
	{failure.ErrValidation, codes.InvalidArgument, ReasonValidation},
	{failure.ErrNotFound, codes.NotFound, ReasonNotFound},
	{failure.ErrPrimaryContactProtected, codes.FailedPrecondition, ReasonPrimaryContactProtected},
	{failure.ErrSessionNotListening, codes.FailedPrecondition, ReasonSessionNotListening},
}

// StatusError converts a domain error into a gRPC status error.
// Unknown errors become Internal without leaking their text.
func StatusError(err error) error {
	if err == nil {
		return nil
	}

	for _, s := range sentinels {
		if !errors.Is(err, s.err) {
			continue
		}

		st := status.New(s.code, err.Error())

		detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
			Reason: s.reason,
			Domain: ErrorDomain,
		})
		if detailErr != nil {
			return st.Err()
		}

		return detailed.Err()
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// FromStatus restores the domain sentinel carried by a gRPC status error,
// so callers can keep using errors.Is. Other errors are returned unchanged.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return err
	}

	for _, detail := range st.Details() {
		info, isInfo := detail.(*errdetails.ErrorInfo)
		if !isInfo || info.GetDomain() != ErrorDomain {
			continue
		}

		for _, s := range sentinels {
			if s.reason == info.GetReason() {
				return &remoteError{sentinel: s.err, status: err, message: st.Message()}
			}
		}
	}

	return err
}

// remoteError matches both the domain sentinel and the original status error.
type remoteError struct {
	sentinel error
	status   error
	message  string
}

func (e *remoteError) Error() string {
	return e.message
}

func (e *remoteError) Unwrap() []error {
	return []error{e.sentinel, e.status}
}
