// Package wire converts domain types to and from protobuf Struct messages.
//
// The gRPC service and the roster file share these encodings, so a contact
// looks the same on the wire and on disk. Timestamps are RFC 3339 strings and
// durations use time.Duration notation.
package wire
