// Package version holds the build metadata of the echopulse binaries.
//
// Version, Commit and BuildTime are set with -ldflags "-X ..." by the build.
package version
