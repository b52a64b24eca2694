// Package common holds helpers shared by the command-line services.
//
// It provides a gRPC client wrapper with timeouts that speaks domain types,
// and detects the current system actor (hostname/username) that is sent
// along with every call for the server audit log.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
