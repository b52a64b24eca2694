// Package roster owns the emergency contact roster.
//
// Every mutation runs under a single writer lock and builds the next roster
// state aside, checks the single-primary invariant, persists it and only
// then publishes it. Readers therefore never observe zero primaries in a
// non-empty roster, or two primaries.
package roster
