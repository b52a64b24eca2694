// Package failure declares the error taxonomy shared by the EchoPulse core.
//
// Services wrap these sentinels with context using fmt.Errorf("%w: ...") so
// callers (the gRPC transport, the CLI) can match them with errors.Is.
package failure
