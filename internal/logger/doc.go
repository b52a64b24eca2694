// Package logger wraps zap for the EchoPulse binaries:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and configuration,
//   - leveled helpers (Infof, WarnKV, ErrorKV, ...).
//
// Services receive a context and extract the logger from it, so names and
// key-value pairs attached upstream (component, alert_id) follow the call.
package logger
