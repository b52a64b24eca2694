// Package echopulse exposes the EchoPulse engine over gRPC.
//
// The service is declared by hand instead of generated: requests and
// responses are protobuf well-known types (Struct and Empty) whose fields are
// described in package wire. Domain errors travel as status codes with an
// ErrorInfo detail naming the exact sentinel, so clients can restore them.
package echopulse
